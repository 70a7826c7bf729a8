package state

import (
	"bytes"
	"log/slog"
)

type tally struct {
	Count int
	Label string
}

type add struct {
	By int `mapstructure:"by"`
}

func (add) ActionType() string { return "tally/add" }

type rename struct {
	Label string `mapstructure:"label"`
}

func (rename) ActionType() string { return "tally/rename" }

type noop struct{}

func (noop) ActionType() string { return "tally/noop" }

type unknown struct{}

func (unknown) ActionType() string { return "tally/unknown" }

var countLens = Lens[*tally, int]{
	Get: func(t *tally) int { return t.Count },
	Set: func(t *tally, c int) *tally {
		next := *t
		next.Count = c
		return &next
	},
}

func tallyReducer() *Reducer[*tally] {
	return MustReducer(
		OnLens(countLens, func(c int, a add) int { return c + a.By }),
		On(func(t *tally, a rename) *tally {
			next := *t
			next.Label = a.Label
			return &next
		}),
		On(func(t *tally, _ noop) *tally { return t }),
	)
}

// listener records store notifications.
type listener struct {
	snapshots []*tally
	errs      []error
	completed int
	onChange  func(*tally)
}

func (l *listener) OnExternalChange(next *tally) {
	l.snapshots = append(l.snapshots, next)
	if l.onChange != nil {
		l.onChange(next)
	}
}

func (l *listener) OnError(err error) { l.errs = append(l.errs, err) }
func (l *listener) OnCompleted()      { l.completed++ }

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
