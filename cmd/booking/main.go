// Command booking runs the appointment booking backend.
//
//	booking serve     HTTP API (optionally with an inline job worker)
//	booking worker    background job worker (cancellation mail) and reaper
//	booking migrate   create or update the schema
//	booking user add  register a user known to the identity service
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first when present.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/config"
	"github.com/tbourn/go-booking-backend/internal/observability"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "booking",
	Short:         "Appointment booking backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func main() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the state every subcommand shares: configuration, the
// process-wide logger and tracer, and the database.
type app struct {
	cfg config.Config
	db  *gorm.DB

	shutdownOTel func(context.Context) error
}

// setup loads configuration, installs logging and tracing for process, and
// opens the instrumented database.
func setup(ctx context.Context, process string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, process)

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version, process)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	dsn := cfg.DBPath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	if err := repo.Instrument(db); err != nil {
		log.Warn().Err(err).Msg("gorm tracing plugin not installed")
	}

	log.Info().
		Str("version", version).
		Str("db_driver", cfg.DBDriver).
		Bool("otel", cfg.OTEL.Enabled).
		Msg("runtime ready")
	return &app{cfg: cfg, db: db, shutdownOTel: shutdown}, nil
}

// close releases the database and flushes pending spans.
func (rt *app) close(ctx context.Context) {
	if sqlDB, err := rt.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := rt.shutdownOTel(ctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
}
