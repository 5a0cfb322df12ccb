package goals

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type LogRepo interface {
	Create(dbc dbctx.Context, rows []*types.GoalSettingLog) ([]*types.GoalSettingLog, error)
	ListBySession(dbc dbctx.Context, orgID, sessionID uuid.UUID) ([]*types.GoalSettingLog, error)
}

type logRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLogRepo(db *gorm.DB, baseLog *logger.Logger) LogRepo {
	return &logRepo{db: db, log: baseLog.With("repo", "GoalLogRepo")}
}

func (r *logRepo) Create(dbc dbctx.Context, rows []*types.GoalSettingLog) ([]*types.GoalSettingLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.GoalSettingLog{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *logRepo) ListBySession(dbc dbctx.Context, orgID, sessionID uuid.UUID) ([]*types.GoalSettingLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.GoalSettingLog{}
	err := t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND session_id = ?", orgID, sessionID).
		Order("created_at ASC, attempt ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
