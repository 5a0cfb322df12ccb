package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
	domlearning "github.com/soulkun/soulkun-backend/internal/domain/learning"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, userID uuid.UUID, roomID string) *types.GoalSettingSession {
	tb.Helper()
	now := time.Now().UTC()
	s := &types.GoalSettingSession{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		RoomID:         roomID,
		Status:         goals.StatusInProgress,
		CurrentStep:    goals.StepIntro,
		StepAttempt:    1,
		Classification: "internal",
		StartedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(24 * time.Hour),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedLearning(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, triggerValue string, authority domlearning.AuthorityLevel) *types.Learning {
	tb.Helper()
	l := &types.Learning{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Category:       domlearning.CategoryFact,
		TriggerType:    domlearning.TriggerKeyword,
		TriggerValue:   triggerValue,
		Content:        datatypes.JSON([]byte(`{"value":"seed"}`)),
		Scope:          domlearning.ScopeGlobal,
		Authority:      authority,
		Confidence:     1.0,
		LastDecayedAt:  time.Now().UTC(),
		IsActive:       true,
		Classification: "internal",
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed learning: %v", err)
	}
	return l
}

func SeedPatternCatalog(tb testing.TB, ctx context.Context, tx *gorm.DB) {
	tb.Helper()
	rows := []*types.GoalSettingPattern{
		{ID: uuid.New(), Code: goals.PatternOK, Name: "OK", Strategy: goals.StrategyProceed, Priority: 900},
		{ID: uuid.New(), Code: goals.PatternExit, Name: "Exit", Strategy: goals.StrategyAccept, Priority: 10,
			Keywords: datatypes.JSON([]byte(`["やめる","キャンセル","中止"]`))},
		{ID: uuid.New(), Code: goals.PatternNGAbstract, Name: "Abstract", Strategy: goals.StrategyAskSpecificity, IsNG: true, Priority: 100,
			Keywords: datatypes.JSON([]byte(`["成長","頑張り"]`))},
	}
	for _, row := range rows {
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed pattern catalog: %v", err)
		}
	}
}

func SeedOutcomeEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, patternType, outcome string) *types.OutcomeEvent {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.OutcomeEvent{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		ActionType:      "reminder",
		PatternType:     patternType,
		Scope:           "global",
		SentAt:          now,
		Outcome:         outcome,
		OutcomeDetected: outcome != "pending",
		Classification:  "internal",
	}
	if outcome != "pending" {
		e.OutcomeAt = &now
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed outcome event: %v", err)
	}
	return e
}
