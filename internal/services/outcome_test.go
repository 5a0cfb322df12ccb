package services

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domlearning "github.com/soulkun/soulkun-backend/internal/domain/learning"
	domoutcomes "github.com/soulkun/soulkun-backend/internal/domain/outcomes"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/tenant"
)

func TestWilsonLowerBound(t *testing.T) {
	// Zero samples scores zero.
	if got := wilsonLowerBound(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty sample, got %f", got)
	}

	// Small samples stay well below the raw rate: 3/3 is not certainty.
	small := wilsonLowerBound(3, 3)
	if small >= 1.0 {
		t.Fatalf("3/3 should not score 1.0, got %f", small)
	}
	if small > 0.75 {
		t.Fatalf("3/3 should be discounted hard, got %f", small)
	}

	// Large samples converge toward the raw rate.
	large := wilsonLowerBound(900, 1000)
	if large <= small {
		t.Fatalf("900/1000 (%f) should outscore 3/3 (%f)", large, small)
	}
	if math.Abs(large-0.9) > 0.05 {
		t.Fatalf("900/1000 should be near 0.9, got %f", large)
	}

	// More evidence at the same rate means more confidence.
	if wilsonLowerBound(9, 10) >= wilsonLowerBound(90, 100) {
		t.Fatalf("confidence should grow with sample size at a fixed rate")
	}
}

func newOutcomeService(t *testing.T, cfg OutcomeConfig) (OutcomeService, LearningService) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	learningRepo := repos.NewLearningRepo(db, log)
	svc := NewOutcomeService(db, log, cfg,
		repos.NewOutcomeEventRepo(db, log),
		repos.NewOutcomePatternRepo(db, log),
		learningRepo,
	)
	lsvc := NewLearningService(db, log, LearningConfig{}, nil,
		learningRepo, repos.NewLearningApplicationLogRepo(db, log))
	return svc, lsvc
}

func recordAndResolve(t *testing.T, svc OutcomeService, orgID uuid.UUID, patternType, outcome string) {
	t.Helper()
	ctx := context.Background()
	ev, err := svc.RecordOutcome(ctx, orgID, OutcomeInput{
		ActionType:  "reminder",
		PatternType: patternType,
	})
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if err := svc.ResolveOutcome(ctx, orgID, ev.ID, outcome); err != nil {
		t.Fatalf("resolve outcome: %v", err)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	svc, _ := newOutcomeService(t, OutcomeConfig{PromoteMinSamples: 100})
	ctx := context.Background()
	orgID := uuid.New()

	for i := 0; i < 3; i++ {
		recordAndResolve(t, svc, orgID, "morning_reminder", domoutcomes.OutcomeAdopted)
	}
	// Partial adoption counts toward successes; ignored does not.
	recordAndResolve(t, svc, orgID, "morning_reminder", domoutcomes.OutcomePartial)
	recordAndResolve(t, svc, orgID, "morning_reminder", domoutcomes.OutcomeIgnored)

	// A pending event must not be counted.
	if _, err := svc.RecordOutcome(ctx, orgID, OutcomeInput{
		ActionType: "reminder", PatternType: "morning_reminder",
	}); err != nil {
		t.Fatalf("record pending: %v", err)
	}

	if _, err := svc.Aggregate(ctx, orgID); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	// Second run over the same events must not double-count.
	if _, err := svc.Aggregate(ctx, orgID); err != nil {
		t.Fatalf("second aggregate: %v", err)
	}

	rows := listPatterns(t, orgID)
	if len(rows) != 1 {
		t.Fatalf("expected 1 pattern group, got %d", len(rows))
	}
	p := rows[0]
	if p.SampleCount != 5 || p.SuccessCount != 4 || p.FailureCount != 1 {
		t.Fatalf("unexpected counts after re-run: %+v", p)
	}
	if math.Abs(p.SuccessRate-0.8) > 0.0001 {
		t.Fatalf("expected success_rate 0.8, got %f", p.SuccessRate)
	}
	if p.ConfidenceScore >= p.SuccessRate {
		t.Fatalf("Wilson bound (%f) should sit below the raw rate (%f) for 5 samples",
			p.ConfidenceScore, p.SuccessRate)
	}
}

func listPatterns(t *testing.T, orgID uuid.UUID) []*types.OutcomePattern {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	patternRepo := repos.NewOutcomePatternRepo(db, log)

	var out []*types.OutcomePattern
	err := tenant.Scope(context.Background(), db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
		var err error
		out, err = patternRepo.ListEligible(dbc, orgID, 0, 0)
		return err
	})
	if err != nil {
		t.Fatalf("list patterns: %v", err)
	}
	return out
}

func TestAggregateSkippedWhenMonitorDisabled(t *testing.T) {
	svc, _ := newOutcomeService(t, OutcomeConfig{Disabled: true})
	ctx := context.Background()
	orgID := uuid.New()

	recordAndResolve(t, svc, orgID, "morning_reminder", domoutcomes.OutcomeAdopted)

	n, err := svc.Aggregate(ctx, orgID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if n != 0 {
		t.Fatalf("disabled monitor should aggregate nothing, got %d groups", n)
	}
	if rows := listPatterns(t, orgID); len(rows) != 0 {
		t.Fatalf("disabled monitor wrote %d pattern rows", len(rows))
	}
}

func TestPromoteDryRunWritesNothing(t *testing.T) {
	svc, lsvc := newOutcomeService(t, OutcomeConfig{
		PromoteMinSamples:    3,
		PromoteMinConfidence: 0.1,
		DryRun:               true,
	})
	ctx := context.Background()
	orgID := uuid.New()

	for i := 0; i < 5; i++ {
		recordAndResolve(t, svc, orgID, "evening_summary", domoutcomes.OutcomeAdopted)
	}
	if _, err := svc.Aggregate(ctx, orgID); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	promoted, err := svc.PromoteEligible(ctx, orgID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("dry run should promote nothing, got %d", promoted)
	}
	got, err := lsvc.FindApplicable(ctx, orgID, ApplicableQuery{ContextKey: "evening_summary"})
	if err != nil {
		t.Fatalf("find learnings: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("dry run wrote %d learnings", len(got))
	}
}

func TestPromoteEligibleOnlyOnce(t *testing.T) {
	svc, lsvc := newOutcomeService(t, OutcomeConfig{PromoteMinSamples: 5, PromoteMinConfidence: 0.5})
	ctx := context.Background()
	orgID := uuid.New()

	for i := 0; i < 9; i++ {
		recordAndResolve(t, svc, orgID, "evening_summary", domoutcomes.OutcomeAdopted)
	}
	recordAndResolve(t, svc, orgID, "evening_summary", domoutcomes.OutcomeRejected)

	if _, err := svc.Aggregate(ctx, orgID); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	promoted, err := svc.PromoteEligible(ctx, orgID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("expected 1 promotion, got %d", promoted)
	}

	// The guard keeps a second sweep from promoting again.
	promoted, err = svc.PromoteEligible(ctx, orgID)
	if err != nil {
		t.Fatalf("second promote: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("expected 0 promotions on re-run, got %d", promoted)
	}

	// The promoted learning is system-authored and findable by context.
	got, err := lsvc.FindApplicable(ctx, orgID, ApplicableQuery{ContextKey: "evening_summary"})
	if err != nil {
		t.Fatalf("find promoted learning: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 promoted learning, got %d", len(got))
	}
	if got[0].Authority != domlearning.AuthoritySystem {
		t.Fatalf("expected system authority, got %s", got[0].Authority)
	}
	if got[0].Confidence <= 0 || got[0].Confidence >= 1 {
		t.Fatalf("expected Wilson-bounded confidence in (0,1), got %f", got[0].Confidence)
	}
}
