package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/domain/goals"
	"github.com/soulkun/soulkun-backend/internal/platform/ctxutil"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/tenant"
)

// MaxRetryCount is the per-step retry cap. An answer submitted on the final
// allowed attempt advances the step even when it still classifies NG, so the
// user never gets stuck on a question.
const MaxRetryCount = 3

// GoalSessionConfig carries the dialogue engine knobs injected at construction.
type GoalSessionConfig struct {
	SessionTTL time.Duration
	MaxRetry   int
}

func (c GoalSessionConfig) withDefaults() GoalSessionConfig {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = MaxRetryCount
	}
	return c
}

// TurnResult is what one SubmitAnswer call hands back to the caller.
type TurnResult struct {
	Session        *types.GoalSettingSession
	Log            *types.GoalSettingLog
	Classification Classification
	Reply          string
	Completed      bool
	Abandoned      bool
}

// GoalSessionService drives the WHY→WHAT→HOW goal-setting dialogue. All
// mutations run under tenant.Scope so RLS sees the caller's organization.
type GoalSessionService interface {
	StartSession(ctx context.Context, orgID, userID uuid.UUID, roomID string) (*types.GoalSettingSession, string, error)
	SubmitAnswer(ctx context.Context, orgID, sessionID uuid.UUID, text string) (*TurnResult, error)
	ExpireStaleSessions(ctx context.Context, orgID uuid.UUID) (int64, error)
}

type goalSessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      GoalSessionConfig
	sessions repos.GoalSessionRepo
	logs     repos.GoalLogRepo
	patterns repos.GoalPatternRepo
}

func NewGoalSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg GoalSessionConfig,
	sessions repos.GoalSessionRepo,
	logs repos.GoalLogRepo,
	patterns repos.GoalPatternRepo,
) GoalSessionService {
	return &goalSessionService{
		db:       db,
		log:      baseLog.With("service", "GoalSessionService"),
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		logs:     logs,
		patterns: patterns,
	}
}

// StartSession creates a fresh in_progress session at step intro. The partial
// unique index backs this: of two concurrent calls for the same (org, user,
// room), exactly one succeeds and the other gets ErrSessionConflict.
func (s *goalSessionService) StartSession(ctx context.Context, orgID, userID uuid.UUID, roomID string) (*types.GoalSettingSession, string, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || userID == uuid.Nil || strings.TrimSpace(roomID) == "" {
		return nil, "", apperrors.ErrInvalidArgument
	}

	var created *types.GoalSettingSession
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		now := time.Now().UTC()
		row := &types.GoalSettingSession{
			OrganizationID: orgID,
			UserID:         userID,
			RoomID:         roomID,
			Status:         goals.StatusInProgress,
			CurrentStep:    goals.StepIntro,
			StepAttempt:    1,
			Classification: types.ClassificationInternal,
			StartedAt:      now,
			LastActivityAt: now,
			ExpiresAt:      now.Add(s.cfg.SessionTTL),
		}
		var err error
		created, err = s.sessions.Create(dbc, row)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	s.log.Info("Goal session started",
		"session_id", created.ID,
		"organization_id", orgID,
		"user_id", userID,
	)
	return created, introPrompt, nil
}

// SubmitAnswer processes one user turn. Everything — the session update, the
// append-only log row and the pattern occurrence bump — commits in a single
// transaction, so a crash mid-turn leaves no half-recorded state.
func (s *goalSessionService) SubmitAnswer(ctx context.Context, orgID, sessionID uuid.UUID, text string) (*TurnResult, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || sessionID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}

	var out *TurnResult
	expired := false
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		sess, err := s.sessions.GetByID(dbc, orgID, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return apperrors.ErrNotFound
		}
		if sess.Status != goals.StatusInProgress {
			return apperrors.ErrInvalidSessionState
		}

		now := time.Now().UTC()
		if now.After(sess.ExpiresAt) {
			// Return nil so the abandonment commits; returning the state
			// error from here would roll the transaction back and leave the
			// session in_progress until the sweep job catches it.
			sess.Status = goals.StatusAbandoned
			sess.LastActivityAt = now
			expired = true
			return s.sessions.Save(dbc, sess)
		}

		catalog, err := s.patterns.ListAll(dbc)
		if err != nil {
			return err
		}
		cls := NewClassifier(catalog).Classify(text)

		turn, err := s.applyTurn(dbc, sess, text, cls, now)
		if err != nil {
			return err
		}
		out = turn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.log.Info("Goal session expired on touch",
			"session_id", sessionID,
			"organization_id", orgID,
		)
		return nil, apperrors.ErrInvalidSessionState
	}

	s.log.Info("Goal session turn",
		"session_id", sessionID,
		"organization_id", orgID,
		"step", out.Log.Step,
		"attempt", out.Log.Attempt,
		"pattern", out.Classification.Code,
		"result", out.Log.Result,
	)
	return out, nil
}

// applyTurn resolves the state transition for one classified answer and
// persists it. Caller holds the transaction.
func (s *goalSessionService) applyTurn(dbc dbctx.Context, sess *types.GoalSettingSession, text string, cls Classification, now time.Time) (*TurnResult, error) {
	step := sess.CurrentStep
	attempt := sess.StepAttempt

	turn := &TurnResult{Session: sess, Classification: cls}
	result := goals.ResultRetry
	reply := ""

	switch {
	case cls.Code == goals.PatternExit:
		// Cancel wins from any step.
		sess.Status = goals.StatusAbandoned
		result = goals.ResultAbandoned
		reply = promptFor(goals.StrategyAccept)
		turn.Abandoned = true

	case step == goals.StepIntro:
		// The intro turn is an acknowledgment; the first real question is WHY.
		s.advance(sess, text, now)
		result = goals.ResultAccepted
		reply = questionFor(sess.CurrentStep)

	case cls.Code == goals.PatternOK:
		s.advance(sess, text, now)
		result = goals.ResultAccepted
		reply = questionFor(sess.CurrentStep)
		turn.Completed = sess.Status == goals.StatusCompleted

	case attempt >= s.cfg.MaxRetry:
		// Retry cap reached: take the answer as-is and move on. The user
		// never sees an error here.
		cls.Eval.ForcedAdvance = true
		turn.Classification = cls
		s.advance(sess, text, now)
		result = goals.ResultAccepted
		reply = forcedAdvancePrompt + "\n" + questionFor(sess.CurrentStep)
		turn.Completed = sess.Status == goals.StatusCompleted

	default:
		sess.StepAttempt = attempt + 1
		result = goals.ResultRetry
		reply = promptFor(cls.Strategy)
	}

	sess.LastActivityAt = now
	if err := s.sessions.Save(dbc, sess); err != nil {
		return nil, err
	}

	evalJSON, err := json.Marshal(cls.Eval)
	if err != nil {
		return nil, err
	}
	logRow := &types.GoalSettingLog{
		OrganizationID: sess.OrganizationID,
		SessionID:      sess.ID,
		Step:           step,
		Attempt:        attempt,
		UserMessage:    text,
		AIResponse:     reply,
		PatternCode:    cls.Code,
		Evaluation:     evalJSON,
		Result:         result,
		Classification: types.ClassificationInternal,
	}
	rows, err := s.logs.Create(dbc, []*types.GoalSettingLog{logRow})
	if err != nil {
		return nil, err
	}

	// Occurrence counters ride the same transaction as the log insert.
	if err := s.patterns.IncrementOccurrence(dbc, cls.Code); err != nil {
		return nil, err
	}

	turn.Log = rows[0]
	turn.Reply = reply
	return turn, nil
}

// advance records the answer for the current step and moves the session
// forward, resetting the attempt counter. Advancing past HOW completes the
// session.
func (s *goalSessionService) advance(sess *types.GoalSettingSession, text string, now time.Time) {
	switch sess.CurrentStep {
	case goals.StepWhy:
		sess.WhyAnswer = text
	case goals.StepWhat:
		sess.WhatAnswer = text
	case goals.StepHow:
		sess.HowAnswer = text
	}
	next := goals.NextStep(sess.CurrentStep)
	sess.CurrentStep = next
	sess.StepAttempt = 1
	if next == goals.StepComplete {
		sess.Status = goals.StatusCompleted
		sess.CompletedAt = &now
	}
}

// ExpireStaleSessions sweeps the organization's in_progress sessions past
// their expiry. One guarded UPDATE, safe to run from overlapping job runs.
func (s *goalSessionService) ExpireStaleSessions(ctx context.Context, orgID uuid.UUID) (int64, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return 0, apperrors.ErrInvalidArgument
	}

	var affected int64
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		affected, err = s.sessions.ExpireStale(dbc, orgID, time.Now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Info("Expired stale goal sessions", "organization_id", orgID, "count", affected)
	}
	return affected, nil
}
