package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domlearning "github.com/soulkun/soulkun-backend/internal/domain/learning"
	domoutcomes "github.com/soulkun/soulkun-backend/internal/domain/outcomes"
	"github.com/soulkun/soulkun-backend/internal/platform/ctxutil"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/tenant"
)

// OutcomeInput describes one proactive action to record.
type OutcomeInput struct {
	ActionType  string
	PatternType string
	Scope       string
	ScopeTarget string
	UserID      *uuid.UUID
	Payload     datatypes.JSON
	SentAt      time.Time
}

// OutcomeConfig carries the promotion thresholds and the monitor flags.
type OutcomeConfig struct {
	PromoteMinSamples    int64
	PromoteMinConfidence float64

	// Disabled pauses the aggregation and promotion sweeps while events keep
	// being recorded, so turning the monitor back on loses no history.
	Disabled bool
	// DryRun evaluates promotion eligibility but writes no learnings.
	DryRun bool
}

func (c OutcomeConfig) withDefaults() OutcomeConfig {
	if c.PromoteMinSamples <= 0 {
		c.PromoteMinSamples = 10
	}
	if c.PromoteMinConfidence <= 0 {
		c.PromoteMinConfidence = 0.6
	}
	return c
}

type OutcomeService interface {
	RecordOutcome(ctx context.Context, orgID uuid.UUID, in OutcomeInput) (*types.OutcomeEvent, error)
	ResolveOutcome(ctx context.Context, orgID, eventID uuid.UUID, outcome string) error
	Aggregate(ctx context.Context, orgID uuid.UUID) (int, error)
	PromoteEligible(ctx context.Context, orgID uuid.UUID) (int, error)
}

type outcomeService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       OutcomeConfig
	events    repos.OutcomeEventRepo
	patterns  repos.OutcomePatternRepo
	learnings repos.LearningRepo
}

func NewOutcomeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg OutcomeConfig,
	events repos.OutcomeEventRepo,
	patterns repos.OutcomePatternRepo,
	learnings repos.LearningRepo,
) OutcomeService {
	return &outcomeService{
		db:        db,
		log:       baseLog.With("service", "OutcomeService"),
		cfg:       cfg.withDefaults(),
		events:    events,
		patterns:  patterns,
		learnings: learnings,
	}
}

// RecordOutcome inserts a pending event for a just-sent proactive action.
func (s *outcomeService) RecordOutcome(ctx context.Context, orgID uuid.UUID, in OutcomeInput) (*types.OutcomeEvent, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || in.ActionType == "" || in.PatternType == "" {
		return nil, apperrors.ErrInvalidArgument
	}
	if in.Scope == "" {
		in.Scope = domlearning.ScopeGlobal
	}
	if in.SentAt.IsZero() {
		in.SentAt = time.Now().UTC()
	}

	var created *types.OutcomeEvent
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row := &types.OutcomeEvent{
			OrganizationID: orgID,
			ActionType:     in.ActionType,
			PatternType:    in.PatternType,
			Scope:          in.Scope,
			ScopeTarget:    in.ScopeTarget,
			UserID:         in.UserID,
			Payload:        in.Payload,
			SentAt:         in.SentAt,
			Outcome:        domoutcomes.OutcomePending,
			Classification: types.ClassificationInternal,
		}
		var err error
		created, err = s.events.Create(dbc, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ResolveOutcome marks an event with the observed result.
func (s *outcomeService) ResolveOutcome(ctx context.Context, orgID, eventID uuid.UUID, outcome string) error {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || eventID == uuid.Nil {
		return apperrors.ErrInvalidArgument
	}
	switch outcome {
	case domoutcomes.OutcomeAdopted, domoutcomes.OutcomeIgnored, domoutcomes.OutcomeRejected,
		domoutcomes.OutcomeDelayed, domoutcomes.OutcomePartial:
	default:
		return apperrors.ErrInvalidArgument
	}
	return tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		ev, err := s.events.GetByID(dbc, orgID, eventID)
		if err != nil {
			return err
		}
		if ev == nil {
			return apperrors.ErrNotFound
		}
		return s.events.Resolve(dbc, orgID, eventID, outcome, time.Now().UTC())
	})
}

// Aggregate re-derives every (pattern_type, scope, scope_target) group from
// the organization's resolved events and upserts the stats wholesale. Running
// it twice over the same events yields identical rows. Returns the number of
// groups written.
func (s *outcomeService) Aggregate(ctx context.Context, orgID uuid.UUID) (int, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return 0, apperrors.ErrInvalidArgument
	}
	if s.cfg.Disabled {
		s.log.Info("Outcome monitor disabled; skipping aggregation", "organization_id", orgID)
		return 0, nil
	}

	written := 0
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		groups, err := s.events.AggregateResolved(dbc, orgID)
		if err != nil {
			return err
		}
		for _, g := range groups {
			rate := 0.0
			if g.SampleCount > 0 {
				rate = float64(g.SuccessCount) / float64(g.SampleCount)
			}
			row := &types.OutcomePattern{
				OrganizationID:  orgID,
				PatternType:     g.PatternType,
				Scope:           g.Scope,
				ScopeTarget:     g.ScopeTarget,
				SampleCount:     g.SampleCount,
				SuccessCount:    g.SuccessCount,
				FailureCount:    g.FailureCount,
				SuccessRate:     rate,
				ConfidenceScore: wilsonLowerBound(g.SuccessCount, g.SampleCount),
				Classification:  types.ClassificationInternal,
			}
			saved, err := s.patterns.UpsertGroup(dbc, row)
			if err != nil {
				return err
			}
			if err := s.events.LinkGroupToPattern(dbc, orgID, g, saved.ID); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("Aggregated outcome patterns", "organization_id", orgID, "groups", written)
	return written, nil
}

// PromoteEligible promotes every qualifying pattern that has not been
// promoted yet. The promoted_to_learning_id guard makes a second sweep a
// no-op, so repeated job runs never produce duplicate learnings.
func (s *outcomeService) PromoteEligible(ctx context.Context, orgID uuid.UUID) (int, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return 0, apperrors.ErrInvalidArgument
	}
	if s.cfg.Disabled {
		s.log.Info("Outcome monitor disabled; skipping promotion", "organization_id", orgID)
		return 0, nil
	}

	promoted := 0
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		eligible, err := s.patterns.ListEligible(dbc, orgID, s.cfg.PromoteMinSamples, s.cfg.PromoteMinConfidence)
		if err != nil {
			return err
		}
		for _, p := range eligible {
			if s.cfg.DryRun {
				s.log.Info("Dry run: would promote outcome pattern",
					"organization_id", orgID,
					"pattern_type", p.PatternType,
					"confidence", p.ConfidenceScore,
					"samples", p.SampleCount,
				)
				continue
			}
			if err := s.promote(dbc, orgID, p); err != nil {
				return err
			}
			promoted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if promoted > 0 {
		s.log.Info("Promoted outcome patterns", "organization_id", orgID, "count", promoted)
	}
	return promoted, nil
}

// promote converts one statistically validated pattern into a system-authored
// rule learning. Caller holds the transaction.
func (s *outcomeService) promote(dbc dbctx.Context, orgID uuid.UUID, p *types.OutcomePattern) error {
	content := fmt.Sprintf(
		`{"pattern_type":%q,"scope":%q,"scope_target":%q,"success_rate":%.4f,"confidence":%.4f,"samples":%d}`,
		p.PatternType, p.Scope, p.ScopeTarget, p.SuccessRate, p.ConfidenceScore, p.SampleCount,
	)
	row := &types.Learning{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Category:       domlearning.CategoryRule,
		TriggerType:    domlearning.TriggerContext,
		TriggerValue:   p.PatternType,
		Content:        datatypes.JSON([]byte(content)),
		Scope:          p.Scope,
		ScopeTarget:    p.ScopeTarget,
		Authority:      domlearning.AuthoritySystem,
		Confidence:     p.ConfidenceScore,
		LastDecayedAt:  time.Now().UTC(),
		IsActive:       true,
		Classification: types.ClassificationInternal,
	}
	created, err := s.learnings.Create(dbc, row)
	if err != nil {
		return err
	}
	return s.patterns.SetPromoted(dbc, orgID, p.ID, created.ID)
}

// wilsonLowerBound is the lower bound of the Wilson score interval at 95%
// confidence. Sample-size aware: small samples score well below their raw
// success rate, large samples converge toward it.
func wilsonLowerBound(successes, samples int64) float64 {
	if samples <= 0 {
		return 0
	}
	const z = 1.96
	n := float64(samples)
	p := float64(successes) / n
	z2 := z * z
	denom := 1 + z2/n
	center := p + z2/(2*n)
	margin := z * math.Sqrt((p*(1-p)+z2/(4*n))/n)
	lb := (center - margin) / denom
	if lb < 0 {
		return 0
	}
	return lb
}
