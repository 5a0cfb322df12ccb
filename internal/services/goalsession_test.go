package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/tenant"
)

func newGoalService(t *testing.T, cfg GoalSessionConfig) (GoalSessionService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	patternRepo := repos.NewGoalPatternRepo(db, log)
	if err := SeedPatternCatalog(context.Background(), log, patternRepo, ""); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	svc := NewGoalSessionService(db, log, cfg,
		repos.NewGoalSessionRepo(db, log),
		repos.NewGoalLogRepo(db, log),
		patternRepo,
	)
	return svc, db
}

const (
	specificWhy  = "今期の売上目標を達成できる営業になるため、月10件の商談を作りたいです"
	specificWhat = "3ヶ月以内に新規顧客を15件獲得して、受注率を25%まで上げます"
	specificHow  = "毎週5件の架電リストを作って、火曜と木曜の午前に集中して架電します"
)

func TestGoalSessionHappyPath(t *testing.T) {
	svc, _ := newGoalService(t, GoalSessionConfig{SessionTTL: time.Hour})
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	sess, intro, err := svc.StartSession(ctx, orgID, userID, "room-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if sess.CurrentStep != goals.StepIntro || sess.Status != goals.StatusInProgress {
		t.Fatalf("unexpected initial state: %+v", sess)
	}
	if intro == "" {
		t.Fatalf("expected intro prompt")
	}

	// Intro acknowledgment advances to WHY.
	turn, err := svc.SubmitAnswer(ctx, orgID, sess.ID, "よろしくおねがいします")
	if err != nil {
		t.Fatalf("intro turn: %v", err)
	}
	if turn.Session.CurrentStep != goals.StepWhy || turn.Session.StepAttempt != 1 {
		t.Fatalf("expected why/1, got %s/%d", turn.Session.CurrentStep, turn.Session.StepAttempt)
	}

	for i, answer := range []string{specificWhy, specificWhat, specificHow} {
		turn, err = svc.SubmitAnswer(ctx, orgID, sess.ID, answer)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if turn.Log.Result != goals.ResultAccepted {
			t.Fatalf("answer %d: expected accepted, got %s (pattern %s)", i, turn.Log.Result, turn.Classification.Code)
		}
	}
	if !turn.Completed {
		t.Fatalf("expected completed session, got step %s", turn.Session.CurrentStep)
	}
	if turn.Session.Status != goals.StatusCompleted || turn.Session.CompletedAt == nil {
		t.Fatalf("unexpected final state: %+v", turn.Session)
	}
	if turn.Session.WhyAnswer != specificWhy || turn.Session.HowAnswer != specificHow {
		t.Fatalf("answers not captured: %+v", turn.Session)
	}

	// A completed session rejects further answers.
	_, err = svc.SubmitAnswer(ctx, orgID, sess.ID, "もうひとつ")
	if !errors.Is(err, apperrors.ErrInvalidSessionState) {
		t.Fatalf("expected ErrInvalidSessionState, got %v", err)
	}
}

func TestGoalSessionVagueRetriesThenForceAdvance(t *testing.T) {
	svc, _ := newGoalService(t, GoalSessionConfig{SessionTTL: time.Hour})
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	sess, _, err := svc.StartSession(ctx, orgID, userID, "room-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, orgID, sess.ID, "はじめます"); err != nil {
		t.Fatalf("intro turn: %v", err)
	}

	// First vague answer: classified abstract, step stays, attempt becomes 2.
	turn, err := svc.SubmitAnswer(ctx, orgID, sess.ID, "成長したい")
	if err != nil {
		t.Fatalf("vague answer 1: %v", err)
	}
	if turn.Classification.Code != goals.PatternNGAbstract {
		t.Fatalf("expected ng_abstract, got %s", turn.Classification.Code)
	}
	if turn.Classification.Strategy != goals.StrategyAskSpecificity {
		t.Fatalf("expected ask_for_specificity, got %s", turn.Classification.Strategy)
	}
	if turn.Session.CurrentStep != goals.StepWhy || turn.Session.StepAttempt != 2 {
		t.Fatalf("expected why/2, got %s/%d", turn.Session.CurrentStep, turn.Session.StepAttempt)
	}
	if turn.Log.Result != goals.ResultRetry || turn.Log.Attempt != 1 {
		t.Fatalf("unexpected log: result=%s attempt=%d", turn.Log.Result, turn.Log.Attempt)
	}

	// Second vague answer: still retrying.
	turn, err = svc.SubmitAnswer(ctx, orgID, sess.ID, "もっと頑張る")
	if err != nil {
		t.Fatalf("vague answer 2: %v", err)
	}
	if turn.Session.StepAttempt != 3 || turn.Session.CurrentStep != goals.StepWhy {
		t.Fatalf("expected why/3, got %s/%d", turn.Session.CurrentStep, turn.Session.StepAttempt)
	}

	// Third vague answer hits the cap: the step advances anyway.
	turn, err = svc.SubmitAnswer(ctx, orgID, sess.ID, "とにかく成長です")
	if err != nil {
		t.Fatalf("vague answer 3: %v", err)
	}
	if turn.Session.CurrentStep != goals.StepWhat {
		t.Fatalf("expected forced advance to what, got %s", turn.Session.CurrentStep)
	}
	if turn.Session.StepAttempt != 1 {
		t.Fatalf("attempt should reset to 1, got %d", turn.Session.StepAttempt)
	}
	if turn.Log.Result != goals.ResultAccepted {
		t.Fatalf("forced advance logs accepted, got %s", turn.Log.Result)
	}
	if !turn.Classification.Eval.ForcedAdvance {
		t.Fatalf("expected forced_advance flag on evaluation")
	}
}

func TestGoalSessionCancelFromAnyStep(t *testing.T) {
	svc, _ := newGoalService(t, GoalSessionConfig{SessionTTL: time.Hour})
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	sess, _, err := svc.StartSession(ctx, orgID, userID, "room-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	turn, err := svc.SubmitAnswer(ctx, orgID, sess.ID, "やっぱりキャンセルで")
	if err != nil {
		t.Fatalf("cancel turn: %v", err)
	}
	if !turn.Abandoned || turn.Session.Status != goals.StatusAbandoned {
		t.Fatalf("expected abandoned session, got %+v", turn.Session)
	}
	if turn.Classification.Code != goals.PatternExit {
		t.Fatalf("expected exit pattern, got %s", turn.Classification.Code)
	}
}

func TestGoalSessionStartConflict(t *testing.T) {
	svc, _ := newGoalService(t, GoalSessionConfig{SessionTTL: time.Hour})
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	if _, _, err := svc.StartSession(ctx, orgID, userID, "room-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	_, _, err := svc.StartSession(ctx, orgID, userID, "room-1")
	if !errors.Is(err, apperrors.ErrSessionConflict) {
		t.Fatalf("expected ErrSessionConflict, got %v", err)
	}

	// A different room is a different session slot.
	if _, _, err := svc.StartSession(ctx, orgID, userID, "room-2"); err != nil {
		t.Fatalf("different room should start: %v", err)
	}
}

func TestSubmitAnswerToExpiredSessionAbandonsIt(t *testing.T) {
	svc, db := newGoalService(t, GoalSessionConfig{SessionTTL: time.Nanosecond})
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	sess, _, err := svc.StartSession(ctx, orgID, userID, "room-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	_, err = svc.SubmitAnswer(ctx, orgID, sess.ID, "よろしくおねがいします")
	if !errors.Is(err, apperrors.ErrInvalidSessionState) {
		t.Fatalf("expected ErrInvalidSessionState, got %v", err)
	}

	// The abandonment must survive the rejected turn: the status flip commits
	// even though the caller sees an error.
	repo := repos.NewGoalSessionRepo(db, testutil.Logger(t))
	var got *types.GoalSettingSession
	err = tenant.Scope(ctx, db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		got, err = repo.GetByID(dbc, orgID, sess.ID)
		return err
	})
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if got == nil || got.Status != goals.StatusAbandoned {
		t.Fatalf("expected abandoned session after expired touch, got %+v", got)
	}

	// Nothing left for the sweep job.
	n, err := svc.ExpireStaleSessions(ctx, orgID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweep should find nothing after touch-abandonment, got %d", n)
	}
}

func TestExpireStaleSessionsIsIdempotent(t *testing.T) {
	svc, _ := newGoalService(t, GoalSessionConfig{SessionTTL: time.Nanosecond})
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	if _, _, err := svc.StartSession(ctx, orgID, userID, "room-1"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	n, err := svc.ExpireStaleSessions(ctx, orgID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	n, err = svc.ExpireStaleSessions(ctx, orgID)
	if err != nil {
		t.Fatalf("second expire: %v", err)
	}
	if n != 0 {
		t.Fatalf("second run should affect 0 rows, got %d", n)
	}
}
