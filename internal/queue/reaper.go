package queue

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// DefaultReapSchedule runs the reaper once a minute.
const DefaultReapSchedule = "@every 1m"

// Reaper returns processing jobs whose lock is older than the visibility
// timeout to pending, and purges expired idempotency records. It runs on a
// cron schedule.
type Reaper struct {
	db         *gorm.DB
	clock      clock.Clock
	visibility time.Duration
	logger     zerolog.Logger

	cron *cron.Cron
}

// NewReaper schedules the reaper with a robfig/cron spec (standard five-field
// expressions or descriptors such as "@every 30s"). The schedule does not run
// until Start is called.
func NewReaper(db *gorm.DB, clk clock.Clock, schedule string, visibility time.Duration) (*Reaper, error) {
	if clk == nil {
		clk = clock.System{}
	}
	if schedule == "" {
		schedule = DefaultReapSchedule
	}
	r := &Reaper{
		db:         db,
		clock:      clk,
		visibility: visibility,
		logger:     log.With().Str("component", "reaper").Logger(),
		cron:       cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, err
	}
	return r, nil
}

// Start runs the schedule in its own goroutine.
func (r *Reaper) Start() {
	r.cron.Start()
	r.logger.Info().Dur("visibility_timeout", r.visibility).Msg("job reaper started")
}

// Stop halts the schedule and waits for a running tick to return.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("job reaper stopped")
}

func (r *Reaper) tick() {
	ctx := context.Background()
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("requeue stale jobs")
	}
	if n, err := repo.PurgeExpiredIdempotency(ctx, r.db, r.clock.Now()); err != nil {
		r.logger.Error().Err(err).Msg("purge idempotency keys")
	} else if n > 0 {
		r.logger.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
	}
	if err := r.recordDepth(ctx); err != nil {
		r.logger.Error().Err(err).Msg("count jobs by status")
	}
}

// recordDepth publishes the per-status job counts. Statuses with no rows are
// reported as zero so a drained queue does not keep a stale value.
func (r *Reaper) recordDepth(ctx context.Context) error {
	counts, err := repo.CountJobsByStatus(ctx, r.db)
	if err != nil {
		return err
	}
	for _, st := range []domain.JobStatus{domain.JobPending, domain.JobProcessing, domain.JobCompleted, domain.JobFailed} {
		jobsByStatus.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
	return nil
}

// RunOnce requeues stale jobs immediately and reports how many were released.
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := r.clock.Now().Add(-r.visibility)
	n, err := repo.RequeueStaleJobs(ctx, r.db, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		jobsReaped.Add(float64(n))
		r.logger.Warn().Int64("requeued", n).Time("cutoff", cutoff).Msg("stale jobs returned to pending")
	}
	return n, nil
}
