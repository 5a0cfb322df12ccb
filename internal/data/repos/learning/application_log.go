package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type ApplicationLogRepo interface {
	Create(dbc dbctx.Context, row *types.LearningApplicationLog) (*types.LearningApplicationLog, error)
	ExistsRecent(dbc dbctx.Context, orgID, learningID uuid.UUID, contextHash string, since time.Time) (bool, error)
	SetFeedback(dbc dbctx.Context, orgID, id uuid.UUID, feedback string) error
}

type applicationLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationLogRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationLogRepo {
	return &applicationLogRepo{db: db, log: baseLog.With("repo", "LearningApplicationLogRepo")}
}

func (r *applicationLogRepo) Create(dbc dbctx.Context, row *types.LearningApplicationLog) (*types.LearningApplicationLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ExistsRecent is the DB-side duplicate-application check, the fallback when
// the Redis window cache is unavailable.
func (r *applicationLogRepo) ExistsRecent(dbc dbctx.Context, orgID, learningID uuid.UUID, contextHash string, since time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.LearningApplicationLog{}).
		Where("organization_id = ? AND learning_id = ? AND context_hash = ? AND created_at >= ?",
			orgID, learningID, contextHash, since).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *applicationLogRepo) SetFeedback(dbc dbctx.Context, orgID, id uuid.UUID, feedback string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.LearningApplicationLog{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		UpdateColumn("feedback", feedback).Error
}
