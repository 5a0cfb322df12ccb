package goals

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, row *types.GoalSettingSession) (*types.GoalSettingSession, error)
	GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.GoalSettingSession, error)
	GetActive(dbc dbctx.Context, orgID, userID uuid.UUID, roomID string) (*types.GoalSettingSession, error)
	Save(dbc dbctx.Context, row *types.GoalSettingSession) error
	ExpireStale(dbc dbctx.Context, orgID uuid.UUID, now time.Time) (int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "GoalSessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, row *types.GoalSettingSession) (*types.GoalSettingSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, apperrors.ErrInvalidArgument
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrSessionConflict
		}
		return nil, err
	}
	return row, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.GoalSettingSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.GoalSettingSession
	err := t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) GetActive(dbc dbctx.Context, orgID, userID uuid.UUID, roomID string) (*types.GoalSettingSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.GoalSettingSession
	err := t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND user_id = ? AND room_id = ? AND status = ?",
			orgID, userID, roomID, goals.StatusInProgress).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) Save(dbc dbctx.Context, row *types.GoalSettingSession) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return apperrors.ErrInvalidArgument
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).Save(row).Error
}

// ExpireStale flips every in_progress session past its expiry to abandoned.
// A single guarded UPDATE: running it twice in a row affects zero rows the
// second time.
func (r *sessionRepo) ExpireStale(dbc dbctx.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.GoalSettingSession{}).
		Where("organization_id = ? AND status = ? AND expires_at < ?",
			orgID, goals.StatusInProgress, now).
		Updates(map[string]interface{}{
			"status":     goals.StatusAbandoned,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLSTATE 23505 from the postgres driver.
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
