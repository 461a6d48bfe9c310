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

	"github.com/DoyleJ11/impostor-client/internal/config"
	"github.com/DoyleJ11/impostor-client/internal/conn"
	"github.com/DoyleJ11/impostor-client/internal/httpapi"
	"github.com/DoyleJ11/impostor-client/internal/session"
	"github.com/DoyleJ11/impostor-client/internal/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("client stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := openStore(cfg)
	if err != nil {
		return err
	}

	mgr := conn.NewManager(cfg.ServerURL, conn.RetryPolicy{
		Attempts: cfg.ReconnectAttempts,
		Delay:    cfg.ReconnectDelay,
	}, log)

	sessCfg := session.DefaultConfig()
	sessCfg.RoleRevealDelay = cfg.RoleRevealDelay
	sessCfg.ResumeSettleDelay = cfg.ResumeSettleDelay
	sess := session.New(ctx, mgr, tokens, sessCfg, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(sess, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	defer func() {
		err = multierr.Combine(err, sess.Close(), tokens.Close())
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := mgr.Run(gctx)
		if errors.Is(err, conn.ErrRetriesExhausted) {
			// The view reports it; the local surface stays up until shutdown.
			log.Warn("server unreachable", zap.String("url", cfg.ServerURL), zap.Error(err))
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("server", cfg.ServerURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(cfg config.Config) (store.TokenStore, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StorePostgres:
		return store.NewPostgres(cfg.DatabaseURL)
	default:
		return store.NewFile(cfg.StorePath)
	}
}
