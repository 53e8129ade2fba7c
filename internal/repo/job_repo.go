package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// claimAttempts bounds how often ClaimNextJob retries when another worker
// wins the race for the same candidate row.
const claimAttempts = 5

// EnqueueJob persists a pending job of kind with an already-encoded payload.
func EnqueueJob(ctx context.Context, db *gorm.DB, kind, payload string, runAt time.Time) (*domain.Job, error) {
	j := &domain.Job{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
		Status:  domain.JobPending,
		RunAt:   runAt.UTC(),
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

// GetJob fetches a job by ID or returns ErrNotFound.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error) {
	var j domain.Job
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// ClaimNextJob moves the oldest due pending job to processing and returns it.
//
// The claim is a conditional update on status, so concurrent workers never
// both own a job; the loser simply looks at the next candidate. Returns
// ErrNotFound when nothing is due.
func ClaimNextJob(ctx context.Context, db *gorm.DB, now time.Time) (*domain.Job, error) {
	now = now.UTC()
	for i := 0; i < claimAttempts; i++ {
		var cand domain.Job
		err := db.WithContext(ctx).
			Where("status = ? AND run_at <= ?", domain.JobPending, now).
			Order("run_at asc").
			Order("created_at asc").
			First(&cand).Error
		if err != nil {
			return nil, err
		}

		res := db.WithContext(ctx).
			Model(&domain.Job{}).
			Where("id = ? AND status = ?", cand.ID, domain.JobPending).
			Updates(map[string]any{
				"status":    domain.JobProcessing,
				"attempts":  gorm.Expr("attempts + 1"),
				"locked_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return GetJob(ctx, db, cand.ID)
		}
	}
	return nil, ErrNotFound
}

// CompleteJob marks a processing job completed.
func CompleteJob(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return finishJob(ctx, db, id, domain.JobCompleted, "", at)
}

// FailJob marks a processing job failed and records the error message.
func FailJob(ctx context.Context, db *gorm.DB, id, lastErr string, at time.Time) error {
	return finishJob(ctx, db, id, domain.JobFailed, lastErr, at)
}

func finishJob(ctx context.Context, db *gorm.DB, id string, status domain.JobStatus, lastErr string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, domain.JobProcessing).
		Updates(map[string]any{
			"status":      status,
			"last_error":  lastErr,
			"finished_at": at.UTC(),
			"locked_at":   nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("job " + id + " is not processing")
	}
	return nil
}

// RequeueStaleJobs returns processing jobs locked before cutoff to pending.
// It reports how many rows were released.
func RequeueStaleJobs(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("status = ? AND locked_at < ?", domain.JobProcessing, cutoff.UTC()).
		Updates(map[string]any{
			"status":    domain.JobPending,
			"locked_at": nil,
		})
	return res.RowsAffected, res.Error
}

// CountJobsByStatus returns the number of jobs in each status.
func CountJobsByStatus(ctx context.Context, db *gorm.DB) (map[domain.JobStatus]int64, error) {
	var rows []struct {
		Status domain.JobStatus
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Job{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.JobStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
