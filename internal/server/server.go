// Package server exposes a running engine over HTTP: the current snapshot,
// the selector values, action dispatch, a server-sent event stream of
// selector changes, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/selgraph/internal/engine"
	"github.com/roach88/selgraph/internal/metrics"
	"github.com/roach88/selgraph/internal/payload"
	"github.com/roach88/selgraph/internal/state"
)

// Selectors is the set of named derived values served by the handler.
// Its methods are only called on the engine loop.
type Selectors interface {
	Names() []string
	Values() map[string]any
	Watch(fn func(name string, value any)) (func(), error)
}

// Option configures the handler.
type Option func(*config)

type config struct {
	metrics *metrics.Collector
	logger  *slog.Logger
	buffer  int
}

// WithMetrics serves c on /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(cfg *config) {
		cfg.metrics = c
	}
}

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithEventBuffer sets how many changes an event stream may lag behind
// before changes are dropped. Defaults to 64.
func WithEventBuffer(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.buffer = n
		}
	}
}

// Server serves one engine.
type Server[S comparable] struct {
	Engine    *engine.Engine[S]
	Selectors Selectors
	logger    *slog.Logger
	buffer    int
}

// DispatchRequest is the body of POST /dispatch.
type DispatchRequest struct {
	Kind string         `json:"kind"`
	Args map[string]any `json:"args,omitempty"`
}

// SelectorsResponse is the body of GET /selectors.
type SelectorsResponse struct {
	Tick   int64          `json:"tick"`
	Seq    int64          `json:"seq"`
	Values map[string]any `json:"values"`
}

// SelectorResponse is the body of GET /selectors/{name}.
type SelectorResponse struct {
	Tick  int64  `json:"tick"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler builds the router for e.
func NewHandler[S comparable](e *engine.Engine[S], sel Selectors, opts ...Option) http.Handler {
	cfg := config{logger: slog.Default(), buffer: 64}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server[S]{Engine: e, Selectors: sel, logger: cfg.logger, buffer: cfg.buffer}

	r := chi.NewRouter()
	r.Get("/healthz", s.Health)
	r.Get("/state", s.GetState)
	r.Get("/selectors", s.GetSelectors)
	r.Get("/selectors/{name}", s.GetSelector)
	r.Post("/dispatch", s.Dispatch)
	r.Get("/events", s.SubscribeEvents)
	if cfg.metrics != nil {
		r.Handle("/metrics", cfg.metrics.Handler())
	}
	return r
}

// Health handles GET /healthz.
func (s *Server[S]) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

// GetState handles GET /state. The ETag is the snapshot digest, so clients
// can poll with If-None-Match.
func (s *Server[S]) GetState(w http.ResponseWriter, r *http.Request) {
	v, err := payload.FromGo(s.Engine.Store().Current())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("encode state: %w", err))
		return
	}
	digest, err := payload.SnapshotDigest(v)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("digest state: %w", err))
		return
	}

	etag := `"` + digest + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := payload.MarshalCanonical(v)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// GetSelectors handles GET /selectors.
func (s *Server[S]) GetSelectors(w http.ResponseWriter, r *http.Request) {
	var resp SelectorsResponse
	err := s.Engine.Call(r.Context(), func() error {
		resp = SelectorsResponse{
			Values: s.Selectors.Values(),
			Tick:   int64(s.Engine.Graph().CurrentTime()),
			Seq:    s.Engine.Seq(),
		}
		return nil
	})
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetSelector handles GET /selectors/{name}.
func (s *Server[S]) GetSelector(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var (
		resp  SelectorResponse
		found bool
	)
	err := s.Engine.Call(r.Context(), func() error {
		var value any
		value, found = s.Selectors.Values()[name]
		resp = SelectorResponse{
			Tick:  int64(s.Engine.Graph().CurrentTime()),
			Name:  name,
			Value: value,
		}
		return nil
	})
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	if !found {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown selector %q", name))
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Dispatch handles POST /dispatch. It waits until the action has been
// processed and answers with the selector values at that point.
func (s *Server[S]) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Kind == "" {
		s.fail(w, http.StatusBadRequest, errors.New("kind is required"))
		return
	}

	if err := s.Engine.EnqueueEncoded(body.Kind, normalizeArgs(body.Args)); err != nil {
		s.fail(w, statusFor(err), err)
		return
	}

	s.GetSelectors(w, r)
}

// SubscribeEvents handles GET /events. Every selector value is sent once
// on connect, then each change as it happens.
func (s *Server[S]) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	type change struct {
		Tick  int64  `json:"tick"`
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	events := make(chan change, s.buffer)

	var cancel func()
	err := s.Engine.Call(r.Context(), func() error {
		var err error
		cancel, err = s.Selectors.Watch(func(name string, value any) {
			c := change{Tick: int64(s.Engine.Graph().CurrentTime()), Name: name, Value: value}
			select {
			case events <- c:
			default:
				s.logger.Warn("event stream lagging, change dropped", "node", name, "tick", c.Tick)
			}
		})
		return err
	})
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	defer func() {
		// The request context is already done here.
		if err := s.Engine.Call(context.Background(), func() error {
			cancel()
			return nil
		}); err != nil {
			s.logger.Debug("event stream cleanup skipped", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-events:
			data, err := json.Marshal(c)
			if err != nil {
				s.logger.Error("event encode failed", "error", err, "node", c.Name)
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server[S]) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server[S]) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "status", status)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, state.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	}
}

// normalizeArgs turns JSON numbers into integers where they are whole, so
// that arguments decode into int fields.
func normalizeArgs(args map[string]any) map[string]any {
	for k, v := range args {
		switch val := v.(type) {
		case float64:
			if val == float64(int64(val)) {
				args[k] = int64(val)
			}
		case map[string]any:
			args[k] = normalizeArgs(val)
		}
	}
	return args
}
