package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-booking-backend/internal/clock"
	httpapi "github.com/tbourn/go-booking-backend/internal/http"
	"github.com/tbourn/go-booking-backend/internal/observability"
	"github.com/tbourn/go-booking-backend/internal/queue"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
)

const (
	shutdownTimeout = 15 * time.Second
	effectTimeout   = 10 * time.Second
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply schema migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	rt, err := setup(ctx, observability.ProcessAPI)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())
	cfg := rt.cfg

	if migrateOnStart {
		if err := repo.AutoMigrate(rt.db); err != nil {
			return err
		}
	}

	effects := &services.AsyncEffects{Timeout: effectTimeout}
	svcs, err := httpapi.NewServices(rt.db, cfg, queue.New(rt.db, clock.System{}), effects)
	if err != nil {
		return err
	}

	var rdb redis.Scripter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; rate limiter will fail open")
		}
		rdb = client
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, rt.db, svcs, rdb, cfg)

	if cfg.Queue.Inline {
		stopWorker, err := startWorker(ctx, rt)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	// Let in-flight notifications and job enqueues finish before the DB closes.
	effects.Wait()
	log.Info().Msg("http server stopped")
	return nil
}
