package outcomes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type PatternRepo interface {
	UpsertGroup(dbc dbctx.Context, row *types.OutcomePattern) (*types.OutcomePattern, error)
	GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.OutcomePattern, error)
	ListEligible(dbc dbctx.Context, orgID uuid.UUID, minSamples int64, minConfidence float64) ([]*types.OutcomePattern, error)
	SetPromoted(dbc dbctx.Context, orgID, id, learningID uuid.UUID) error
}

type patternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternRepo(db *gorm.DB, baseLog *logger.Logger) PatternRepo {
	return &patternRepo{db: db, log: baseLog.With("repo", "OutcomePatternRepo")}
}

// UpsertGroup writes the freshly re-derived stats for one aggregation group,
// keyed on the (org, pattern_type, scope, scope_target) unique index. Counts
// are replaced wholesale, never added to.
func (r *patternRepo) UpsertGroup(dbc dbctx.Context, row *types.OutcomePattern) (*types.OutcomePattern, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.LastAggregatedAt == nil {
		row.LastAggregatedAt = &now
	}
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organization_id"},
				{Name: "pattern_type"},
				{Name: "scope"},
				{Name: "scope_target"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"sample_count",
				"success_count",
				"failure_count",
				"success_rate",
				"confidence_score",
				"last_aggregated_at",
				"updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the surviving row (the insert ID is
	// discarded when the conflict path ran).
	var got types.OutcomePattern
	err = t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND pattern_type = ? AND scope = ? AND scope_target = ?",
			row.OrganizationID, row.PatternType, row.Scope, row.ScopeTarget).
		Limit(1).
		Find(&got).Error
	if err != nil {
		return nil, err
	}
	return &got, nil
}

func (r *patternRepo) GetByID(dbc dbctx.Context, orgID, id uuid.UUID) (*types.OutcomePattern, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.OutcomePattern
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

func (r *patternRepo) ListEligible(dbc dbctx.Context, orgID uuid.UUID, minSamples int64, minConfidence float64) ([]*types.OutcomePattern, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.OutcomePattern{}
	err := t.WithContext(dbc.Ctx).
		Where("organization_id = ? AND promoted_to_learning_id IS NULL", orgID).
		Where("sample_count >= ? AND confidence_score >= ?", minSamples, minConfidence).
		Order("confidence_score DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patternRepo) SetPromoted(dbc dbctx.Context, orgID, id, learningID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.OutcomePattern{}).
		Where("organization_id = ? AND id = ? AND promoted_to_learning_id IS NULL", orgID, id).
		UpdateColumn("promoted_to_learning_id", learningID).Error
}
