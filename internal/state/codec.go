package state

import (
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// Codec converts between actions and their kind plus argument map, the form
// actions take in scenario files, HTTP requests and the journal. Argument
// keys follow the actions' mapstructure tags.
type Codec struct {
	decoders map[string]func(args map[string]any) (Action, error)
}

// NewCodec returns an empty codec.
func NewCodec() *Codec {
	return &Codec{decoders: make(map[string]func(map[string]any) (Action, error))}
}

// Register adds action type A under its kind. A must be a struct type.
// Registering the same kind twice replaces the earlier registration.
func Register[A Action](c *Codec) {
	var zero A
	c.decoders[zero.ActionType()] = func(args map[string]any) (Action, error) {
		var a A
		if len(args) == 0 {
			return a, nil
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &a,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(args); err != nil {
			return nil, err
		}
		return a, nil
	}
}

// Decode builds the action registered under kind from args. Unknown kinds
// return ErrUnknownAction; unknown or mistyped arguments are errors.
func (c *Codec) Decode(kind string, args map[string]any) (Action, error) {
	decode, ok := c.decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	a, err := decode(args)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return a, nil
}

// Encode returns the kind and argument map of a.
func (c *Codec) Encode(a Action) (string, map[string]any, error) {
	if a == nil {
		return "", nil, ErrNilAction
	}
	args := map[string]any{}
	if err := mapstructure.Decode(a, &args); err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", a.ActionType(), err)
	}
	return a.ActionType(), args, nil
}

// Kinds returns the registered kinds, sorted.
func (c *Codec) Kinds() []string {
	kinds := make([]string, 0, len(c.decoders))
	for k := range c.decoders {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
