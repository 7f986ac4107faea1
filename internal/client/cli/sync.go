package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	clientsync "github.com/XavierGuerrero1989/sistema-impo/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	actor, err := c.requireActor()
	if err != nil {
		return err
	}

	c.io.Println("=== Synchronization ===")
	c.io.Println()
	c.io.Println("Starting synchronization with server...")

	result, err := c.engine.RunCycle(ctx, actor)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	switch result.Status {
	case storage.SyncStatusOK:
		c.io.Println("✓ Synchronization completed successfully!")
	case storage.SyncStatusPartial:
		c.io.Println("⚠️  Synchronization completed with errors, failed changes will be retried")
	default:
		c.io.Println("✗ Synchronization failed, changes stay queued locally")
	}
	c.io.Println()
	c.io.Printf("Sent to server:     %d\n", result.Sent)
	if result.Failed > 0 {
		c.io.Printf("Failed (queued):    %d\n", result.Failed)
	}
	if result.Skipped+result.Discarded > 0 {
		c.io.Printf("Dropped:            %d\n", result.Skipped+result.Discarded)
	}
	c.io.Printf("Pulled from server: %d\n", result.Pulled)
	c.io.Printf("Updated locally:    %d\n", result.Applied)
	if result.PullErr != nil {
		c.io.Printf("Pull error:         %v\n", result.PullErr)
	}

	return nil
}

// runDaemon держит фоновую синхронизацию до отмены ctx
func (c *Cli) runDaemon(ctx context.Context) error {
	if _, err := c.requireActor(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	if c.cfg.MetricsAddr != "" {
		start(func(ctx context.Context) { serveMetrics(ctx, c.cfg.MetricsAddr, c.logger) })
	}
	if c.monitor != nil {
		start(c.monitor.Run)
	}
	start(c.sessions.Watch)

	sub := c.sessions.Subscribe(func(a *session.Actor) {
		if a == nil {
			c.logger.Warn("Session ended, background sync paused until next login")
		}
	})
	defer sub.Unsubscribe()

	var conn clientsync.Connectivity
	if c.monitor != nil {
		conn = c.monitor
	}
	scheduler := clientsync.NewScheduler(c.engine, c.sessions, conn, c.cfg.SyncInterval, c.logger)

	c.logger.Info("Client running", "server", c.cfg.ServerURL, "sync_interval", c.cfg.SyncInterval.String())
	scheduler.Run(ctx)

	cancel()
	wg.Wait()
	c.logger.Info("Client stopped")
	return nil
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics endpoint online", "url", "http://"+addr+"/metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", "error", err)
	}
}
