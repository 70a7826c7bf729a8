package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/selgraph/internal/engine"
	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/logging"
	"github.com/roach88/selgraph/internal/metrics"
	"github.com/roach88/selgraph/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr            string
	Database        string
	Session         string
	MaxSteps        int
	ShutdownTimeout time.Duration

	// Ready, if set, is called with the bound address once the server
	// accepts connections.
	Ready func(addr net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the counter engine over HTTP",
		Long: `Start the single-writer engine and serve it over HTTP.

Routes:
  GET  /healthz           liveness
  GET  /state             canonical JSON snapshot, ETag is its digest
  GET  /selectors         every selector value with tick and seq
  GET  /selectors/{name}  one selector value
  POST /dispatch          {"kind": "...", "args": {...}}
  GET  /events            server-sent selector changes
  GET  /metrics           Prometheus metrics

With --db every applied action is journaled; --session resumes a
journaled session before serving.

Example:
  selgraph serve --addr :8080
  selgraph serve --addr :8080 --db ./selgraph.db --session 0192...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "journaled session to resume (requires --db)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 10000, "actions processed without the queue draining before the rest are rejected (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "time allowed for in-flight requests on shutdown")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	if opts.Session != "" && opts.Database == "" {
		return NewExitError(ExitCommandError, "--session requires --db")
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewWriter(cmd.ErrOrStderr(), level)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var j *journal.Journal
	if opts.Database != "" {
		var err error
		j, err = journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Error("error closing journal", "error", err)
			}
		}()
	}

	collector := metrics.New()
	engineOpts := append(collector.EngineOptions(), engine.WithMaxSteps(opts.MaxSteps))
	app, err := startCounterApp(ctx, appConfig{
		Journal: j,
		Session: opts.Session,
		Label:   "serve",
		Logger:  logger,
		Options: engineOpts,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}
	defer app.Close()

	err = collector.TrackLiveNodes(func() int {
		callCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		var n int
		_ = app.Engine.Call(callCtx, func() error {
			n = app.Engine.Graph().Len()
			return nil
		})
		return n
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	handler := server.NewHandler(app.Engine, app.Selectors,
		server.WithMetrics(collector),
		server.WithLogger(logger),
	)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to listen on %s", opts.Addr), err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	logger.Info("serving", "addr", ln.Addr().String(), "session", app.Engine.Session(), "restored", app.Restored)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving session %s on %s\n", app.Engine.Session(), ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr())
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
