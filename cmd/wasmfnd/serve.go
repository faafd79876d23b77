package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wasmfn/wasmfn/config"
	"github.com/wasmfn/wasmfn/domain/policy"
	"github.com/wasmfn/wasmfn/host"
	"github.com/wasmfn/wasmfn/infrastructure/kvstore"
	"github.com/wasmfn/wasmfn/infrastructure/wazero"
	"github.com/wasmfn/wasmfn/log"
	"github.com/wasmfn/wasmfn/metrics"
	"github.com/wasmfn/wasmfn/transport"
	"github.com/wasmfn/wasmfn/worker"
)

const drainTimeout = time.Minute

type serveOptions struct {
	configFile string
	socket     string
	logLevel   string
}

func newServeCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve [OPTIONS]",
		Short: "Load the guest module and serve invocations until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.socket != "" {
				cfg.Transport.Socket = opts.socket
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := log.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			log.SetLogger(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "/etc/wasmfn/wasmfn.yaml", "Configuration file")
	flags.StringVar(&opts.socket, "socket", "", "Override transport.socket")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override log.level")
	return cmd
}

// runServe serves until ctx is done, then stops accepting connections and
// lets the worker drain its queue.
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	bytecode, err := os.ReadFile(cfg.Guest.Path)
	if err != nil {
		return fmt.Errorf("failed to read guest module: %w", err)
	}

	store, err := kvstore.Open(cfg.Store.Driver, cfg.Store.Path, cfg.Store.Timeout.Std())
	if err != nil {
		return err
	}
	// The store stays open while a worker that did not drain may still use it.
	drained := true
	defer func() {
		if !drained {
			logger.Warn("leaving store open, worker still running")
			return
		}
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	pol, err := policy.NewPolicy(
		policy.WithAllowed(cfg.Capabilities...),
		policy.WithDenialHandler(&policy.LogDenialHandler{Logger: logger}),
	)
	if err != nil {
		return err
	}
	logger.Info("capability policy loaded", zap.Strings("capabilities", pol.Patterns()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	loaderOpts := []wazero.LoaderOption{wazero.WithLogger(logger)}
	if cfg.Guest.MaxPayloadSize > 0 {
		loaderOpts = append(loaderOpts, wazero.WithMaxPayloadSize(uint32(cfg.Guest.MaxPayloadSize)))
	}

	w, err := worker.Start(ctx, bytecode,
		worker.WithLogger(logger),
		worker.WithMetrics(m),
		worker.WithCoreOptions(
			host.WithLoader(wazero.NewLoader(loaderOpts...)),
			host.WithStore(store),
			host.WithPolicy(pol),
		),
	)
	if err != nil {
		return err
	}

	l, err := transport.Listen(cfg.Transport.Socket)
	if err != nil {
		w.Close()
		<-w.Done()
		return err
	}

	adapter := transport.NewAdapter(w, transport.WithInvokeTimeout(cfg.Transport.InvokeTimeout.Std()))
	srv := transport.NewServer(adapter,
		transport.WithBufferSize(cfg.Transport.BufferSize),
		transport.WithServerLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, l)
	})
	if cfg.Metrics.Address != "" {
		serveMetrics(gctx, g, cfg.Metrics.Address, reg, logger)
	}

	err = g.Wait()

	logger.Info("draining worker", zap.Int("pending", w.Pending()))
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	drained = drainWorker(drainCtx, w, logger)
	return err
}

// drainWorker shuts w down and reports whether it finished before ctx was done.
func drainWorker(ctx context.Context, w *worker.Worker, logger *zap.Logger) bool {
	if err := w.Shutdown(ctx); err != nil {
		logger.Warn("worker did not drain in time", zap.Error(err), zap.Int("pending", w.Pending()))
		return false
	}
	return true
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("metrics listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
