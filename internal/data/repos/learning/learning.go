package learning

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/learning"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

// MatchContext carries the live-interaction context a learning trigger is
// matched against.
type MatchContext struct {
	Text       string
	ContextKey string
	UserID     uuid.UUID
	RoomID     string
	Now        time.Time
}

type LearningRepo interface {
	Create(dbc dbctx.Context, row *types.Learning) (*types.Learning, error)
	GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.Learning, error)
	FindActiveOverlapping(dbc dbctx.Context, orgID uuid.UUID, triggerValue, scope, scopeTarget string) ([]*types.Learning, error)
	MarkSuperseded(dbc dbctx.Context, orgID, oldID, newID uuid.UUID) error
	FindApplicable(dbc dbctx.Context, orgID uuid.UUID, mc MatchContext) ([]*types.Learning, error)
	IncrementApplication(dbc dbctx.Context, orgID, id uuid.UUID, succeeded bool, at time.Time) error
	DecayConfidence(dbc dbctx.Context, orgID uuid.UUID, now time.Time) (int64, error)
}

type learningRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningRepo(db *gorm.DB, baseLog *logger.Logger) LearningRepo {
	return &learningRepo{db: db, log: baseLog.With("repo", "LearningRepo")}
}

func (r *learningRepo) Create(dbc dbctx.Context, row *types.Learning) (*types.Learning, error) {
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
		return nil, err
	}
	return row, nil
}

func (r *learningRepo) GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.Learning, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Learning
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

// FindActiveOverlapping returns active learnings with the same trigger value
// whose scope overlaps the given one. Scopes overlap when they are the same
// (scope, scope_target) pair or when either side is global.
func (r *learningRepo) FindActiveOverlapping(dbc dbctx.Context, orgID uuid.UUID, triggerValue, scope, scopeTarget string) ([]*types.Learning, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	triggerValue = strings.TrimSpace(triggerValue)
	if triggerValue == "" {
		return nil, apperrors.ErrInvalidArgument
	}
	out := []*types.Learning{}
	q := t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND trigger_value = ? AND is_active = true", orgID, triggerValue)
	if scope != learning.ScopeGlobal {
		q = q.Where("(scope = ? OR (scope = ? AND scope_target = ?))",
			learning.ScopeGlobal, scope, scopeTarget)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *learningRepo) MarkSuperseded(dbc dbctx.Context, orgID, oldID, newID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Learning{}).
		Where("organization_id = ? AND id = ?", orgID, oldID).
		Updates(map[string]interface{}{
			"is_active":        false,
			"superseded_by_id": newID,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// FindApplicable returns active learnings whose trigger matches the context
// and whose validity window covers now. Expired temporary learnings are
// filtered here at query time, never eagerly deactivated. Results are
// authority-ordered by the caller (rank is a Go-side total order).
func (r *learningRepo) FindApplicable(dbc dbctx.Context, orgID uuid.UUID, mc MatchContext) ([]*types.Learning, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := mc.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	out := []*types.Learning{}
	err := t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND is_active = true", orgID).
		Where("(valid_from IS NULL OR valid_from <= ?)", now).
		Where("(valid_until IS NULL OR valid_until > ?)", now).
		Where(`(
			trigger_type = ?
			OR (trigger_type = ? AND ? ILIKE '%' || trigger_value || '%')
			OR (trigger_type = ? AND trigger_value = ?)
			OR (trigger_type = ? AND ? ~ trigger_value)
		)`,
			learning.TriggerAlways,
			learning.TriggerKeyword, mc.Text,
			learning.TriggerContext, mc.ContextKey,
			learning.TriggerPattern, mc.Text).
		Where(`(
			scope IN (?, ?)
			OR (scope = ? AND scope_target = ?)
			OR (scope = ? AND scope_target = ?)
		)`,
			learning.ScopeGlobal, learning.ScopeTemporary,
			learning.ScopeUser, mc.UserID.String(),
			learning.ScopeRoom, mc.RoomID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *learningRepo) IncrementApplication(dbc dbctx.Context, orgID, id uuid.UUID, succeeded bool, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	updates := map[string]interface{}{
		"applied_count":   gorm.Expr("applied_count + 1"),
		"last_applied_at": at,
		"updated_at":      at,
	}
	if succeeded {
		updates["success_count"] = gorm.Expr("success_count + 1")
	} else {
		updates["failure_count"] = gorm.Expr("failure_count + 1")
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Learning{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Updates(updates).Error
}

// DecayConfidence applies exponential per-day decay in one batch UPDATE.
// last_decayed_at tracks elapsed time so re-running immediately is a no-op
// (multiplies by ~1.0).
func (r *learningRepo) DecayConfidence(dbc dbctx.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).Exec(`
		UPDATE learnings
		SET confidence = GREATEST(0, confidence * POWER(1 - confidence_decay_rate,
				EXTRACT(EPOCH FROM (? - last_decayed_at)) / 86400.0)),
			last_decayed_at = ?,
			updated_at = ?
		WHERE organization_id = ?
		  AND is_active = true
		  AND confidence_decay_rate > 0
		  AND deleted_at IS NULL`,
		now, now, now, orgID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
