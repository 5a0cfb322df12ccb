package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	domjobs "github.com/soulkun/soulkun-backend/internal/domain/jobs"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type JobRunRepo interface {
	Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.JobRun{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.Status == "" {
			row.Status = domjobs.StatusQueued
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.JobRun
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// ClaimNextRunnable locks and claims the oldest runnable job: queued, failed
// below the attempt cap past its retry delay, or running with a stale
// heartbeat. SKIP LOCKED keeps concurrent workers from contending.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)

	var claimed *types.JobRun
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		err := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`(
				status = ?
				OR (status = ? AND attempts < ? AND (last_error_at IS NULL OR last_error_at < ?))
				OR (status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?)
			)`,
				domjobs.StatusQueued,
				domjobs.StatusFailed, maxAttempts, retryCutoff,
				domjobs.StatusRunning, staleCutoff).
			Order("created_at ASC").
			First(&job).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		updates := map[string]interface{}{
			"status":       domjobs.StatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		}
		if err := txx.Model(&types.JobRun{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
			return err
		}
		job.Status = domjobs.StatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.UpdateFields(dbc, id, map[string]interface{}{"heartbeat_at": now})
}
