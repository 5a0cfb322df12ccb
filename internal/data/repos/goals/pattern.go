package goals

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

type PatternRepo interface {
	GetByCode(dbc dbctx.Context, code string) (*types.GoalSettingPattern, error)
	ListAll(dbc dbctx.Context) ([]*types.GoalSettingPattern, error)
	UpsertByCode(dbc dbctx.Context, row *types.GoalSettingPattern) error
	IncrementOccurrence(dbc dbctx.Context, code string) error
}

type patternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternRepo(db *gorm.DB, baseLog *logger.Logger) PatternRepo {
	return &patternRepo{db: db, log: baseLog.With("repo", "GoalPatternRepo")}
}

func (r *patternRepo) GetByCode(dbc dbctx.Context, code string) (*types.GoalSettingPattern, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var row types.GoalSettingPattern
	if err := t.WithContext(dbc.Ctx).Where("code = ?", code).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *patternRepo) ListAll(dbc dbctx.Context) ([]*types.GoalSettingPattern, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.GoalSettingPattern{}
	if err := t.WithContext(dbc.Ctx).Order("priority ASC, code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *patternRepo) UpsertByCode(dbc dbctx.Context, row *types.GoalSettingPattern) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || strings.TrimSpace(row.Code) == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()

	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"description",
				"keywords",
				"strategy",
				"is_ng",
				"priority",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *patternRepo) IncrementOccurrence(dbc dbctx.Context, code string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.GoalSettingPattern{}).
		Where("code = ?", code).
		UpdateColumn("occurrence_count", gorm.Expr("occurrence_count + 1")).Error
}
