package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/mail"
	"github.com/tbourn/go-booking-backend/internal/observability"
	"github.com/tbourn/go-booking-backend/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := setup(ctx, observability.ProcessWorker)
		if err != nil {
			return err
		}
		defer rt.close(context.Background())

		stop, err := startWorker(ctx, rt)
		if err != nil {
			return err
		}
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// startWorker registers the job handlers, starts the polling worker and the
// stale-job reaper, and returns a function that stops both.
func startWorker(ctx context.Context, rt *app) (func(), error) {
	cfg := rt.cfg
	loc, err := clock.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	var sender mail.Sender = mail.LogSender{}
	if cfg.Mail.Host != "" {
		sender = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
	} else {
		log.Warn().Msg("SMTP_HOST not set; mail is logged, not sent")
	}
	sender = mail.NewBreakerSender(sender, mail.BreakerSettings{
		MaxFailures: cfg.Mail.BreakerMaxFailures,
		OpenTimeout: cfg.Mail.BreakerOpenTimeout,
	})

	w := queue.NewWorker(rt.db, clock.System{}, queue.WorkerConfig{
		PollInterval: cfg.Queue.PollInterval,
		BatchSize:    cfg.Queue.BatchSize,
		JobTimeout:   cfg.Queue.JobTimeout,
	})
	w.Register(mail.KindCancellation, &mail.CancellationHandler{
		Sender:   sender,
		Location: loc,
		Locale:   clock.ParseLocale(cfg.NotifyLocale),
	})

	reaper, err := queue.NewReaper(rt.db, clock.System{}, cfg.Queue.ReapSchedule, cfg.Queue.VisibilityTimeout)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	reaper.Start()

	return func() {
		w.Stop()
		reaper.Stop()
	}, nil
}
