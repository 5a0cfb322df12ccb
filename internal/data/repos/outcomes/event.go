package outcomes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/outcomes"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

// GroupStat is one aggregation group re-derived from resolved events.
type GroupStat struct {
	PatternType  string
	Scope        string
	ScopeTarget  string
	SampleCount  int64
	SuccessCount int64
	FailureCount int64
}

type EventRepo interface {
	Create(dbc dbctx.Context, row *types.OutcomeEvent) (*types.OutcomeEvent, error)
	GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.OutcomeEvent, error)
	Resolve(dbc dbctx.Context, orgID, id uuid.UUID, outcome string, at time.Time) error
	AggregateResolved(dbc dbctx.Context, orgID uuid.UUID) ([]GroupStat, error)
	LinkGroupToPattern(dbc dbctx.Context, orgID uuid.UUID, g GroupStat, patternID uuid.UUID) error
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "OutcomeEventRepo")}
}

func (r *eventRepo) Create(dbc dbctx.Context, row *types.OutcomeEvent) (*types.OutcomeEvent, error) {
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
	if row.Outcome == "" {
		row.Outcome = outcomes.OutcomePending
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *eventRepo) GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.OutcomeEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.OutcomeEvent
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

func (r *eventRepo) Resolve(dbc dbctx.Context, orgID, id uuid.UUID, outcome string, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.OutcomeEvent{}).
		Where("organization_id = ? AND id = ?", orgID, id).
		Updates(map[string]interface{}{
			"outcome":          outcome,
			"outcome_detected": true,
			"outcome_at":       at,
			"updated_at":       at,
		}).Error
}

// AggregateResolved re-derives group counts from scratch over all resolved
// events. Full re-derivation keeps aggregation idempotent: no incremental
// counters, so a re-run over the same events produces identical stats.
func (r *eventRepo) AggregateResolved(dbc dbctx.Context, orgID uuid.UUID) ([]GroupStat, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []GroupStat{}
	err := t.WithContext(dbc.Ctx).Raw(`
		SELECT
			pattern_type,
			scope,
			COALESCE(scope_target, '') AS scope_target,
			COUNT(*) AS sample_count,
			COUNT(*) FILTER (WHERE outcome IN ?) AS success_count,
			COUNT(*) FILTER (WHERE outcome NOT IN ?) AS failure_count
		FROM outcome_events
		WHERE organization_id = ?
		  AND outcome_detected = true
		GROUP BY pattern_type, scope, COALESCE(scope_target, '')`,
		outcomes.SuccessOutcomes, outcomes.SuccessOutcomes, orgID).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) LinkGroupToPattern(dbc dbctx.Context, orgID uuid.UUID, g GroupStat, patternID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.OutcomeEvent{}).
		Where("organization_id = ? AND pattern_type = ? AND scope = ? AND COALESCE(scope_target, '') = ? AND pattern_id IS NULL",
			orgID, g.PatternType, g.Scope, g.ScopeTarget).
		UpdateColumn("pattern_id", patternID).Error
}
