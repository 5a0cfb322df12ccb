package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/soulkun/soulkun-backend/internal/clients/redis"
	"github.com/soulkun/soulkun-backend/internal/data/repos"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domlearning "github.com/soulkun/soulkun-backend/internal/domain/learning"
	"github.com/soulkun/soulkun-backend/internal/platform/ctxutil"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/tenant"
)

// TeachInput is everything a caller supplies when teaching a new learning.
type TeachInput struct {
	Category     string
	TriggerType  string
	TriggerValue string
	Content      datatypes.JSON
	Scope        string
	ScopeTarget  string
	Authority    domlearning.AuthorityLevel
	TaughtBy     uuid.UUID

	ValidFrom           *time.Time
	ValidUntil          *time.Time
	ConfidenceDecayRate float64
	SourceMessageID     string
	SourceContext       string
}

// ApplicableQuery matches live-interaction context against learning triggers.
type ApplicableQuery struct {
	Text       string
	ContextKey string
	UserID     uuid.UUID
	RoomID     string
	Limit      int
}

// ApplicationInput records one application of a learning.
type ApplicationInput struct {
	LearningID     uuid.UUID
	TriggerMessage string
	ContextHash    string
	Succeeded      bool
	LatencyMS      int64
}

// LearningConfig carries the learning-store knobs.
type LearningConfig struct {
	// DedupWindow bounds how soon the same (learning, context) pair may be
	// recorded again.
	DedupWindow time.Duration
}

func (c LearningConfig) withDefaults() LearningConfig {
	if c.DedupWindow <= 0 {
		c.DedupWindow = 10 * time.Minute
	}
	return c
}

type LearningService interface {
	Teach(ctx context.Context, orgID uuid.UUID, in TeachInput) (*types.Learning, error)
	FindApplicable(ctx context.Context, orgID uuid.UUID, q ApplicableQuery) ([]*types.Learning, error)
	RecordApplication(ctx context.Context, orgID uuid.UUID, in ApplicationInput) (applied bool, err error)
	SetFeedback(ctx context.Context, orgID, applicationLogID uuid.UUID, feedback string) error
	DecayConfidence(ctx context.Context, orgID uuid.UUID) (int64, error)
}

type learningService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       LearningConfig
	cache     *redisclient.Client
	learnings repos.LearningRepo
	appLogs   repos.LearningApplicationLogRepo
}

func NewLearningService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg LearningConfig,
	cache *redisclient.Client,
	learnings repos.LearningRepo,
	appLogs repos.LearningApplicationLogRepo,
) LearningService {
	return &learningService{
		db:        db,
		log:       baseLog.With("service", "LearningService"),
		cfg:       cfg.withDefaults(),
		cache:     cache,
		learnings: learnings,
		appLogs:   appLogs,
	}
}

// Teach inserts a learning and supersedes any active learning with the same
// trigger value and overlapping scope. Last write wins per trigger; the old
// rows stay linked through the supersession pointers, so history is never
// lost. The overlap check and the insert share one transaction.
func (s *learningService) Teach(ctx context.Context, orgID uuid.UUID, in TeachInput) (*types.Learning, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}
	in.TriggerValue = strings.TrimSpace(in.TriggerValue)
	if in.TriggerValue == "" && in.TriggerType != domlearning.TriggerAlways {
		return nil, apperrors.ErrInvalidArgument
	}
	if len(in.Content) == 0 {
		return nil, apperrors.ErrInvalidArgument
	}
	if in.TriggerType == "" {
		in.TriggerType = domlearning.TriggerKeyword
	}
	if in.Scope == "" {
		in.Scope = domlearning.ScopeGlobal
	}
	if !in.Authority.Valid() {
		return nil, apperrors.ErrInvalidArgument
	}

	var created *types.Learning
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		now := time.Now().UTC()

		var old []*types.Learning
		if in.TriggerValue != "" {
			var err error
			old, err = s.learnings.FindActiveOverlapping(dbc, orgID, in.TriggerValue, in.Scope, in.ScopeTarget)
			if err != nil {
				return err
			}
		}

		row := &types.Learning{
			ID:                  uuid.New(),
			OrganizationID:      orgID,
			Category:            in.Category,
			TriggerType:         in.TriggerType,
			TriggerValue:        in.TriggerValue,
			Content:             in.Content,
			Scope:               in.Scope,
			ScopeTarget:         in.ScopeTarget,
			Authority:           in.Authority,
			ValidFrom:           in.ValidFrom,
			ValidUntil:          in.ValidUntil,
			TaughtBy:            in.TaughtBy,
			SourceMessageID:     in.SourceMessageID,
			SourceContext:       in.SourceContext,
			Confidence:          1.0,
			ConfidenceDecayRate: in.ConfidenceDecayRate,
			LastDecayedAt:       now,
			IsActive:            true,
			Classification:      types.ClassificationInternal,
		}
		if len(old) > 0 {
			// Newest predecessor becomes the direct parent in the chain.
			newest := old[0]
			for _, o := range old[1:] {
				if o.CreatedAt.After(newest.CreatedAt) {
					newest = o
				}
			}
			id := newest.ID
			row.SupersedesID = &id
			row.ContentVer = newest.ContentVer + 1
		}

		var err error
		created, err = s.learnings.Create(dbc, row)
		if err != nil {
			return err
		}
		for _, o := range old {
			if err := s.learnings.MarkSuperseded(dbc, orgID, o.ID, created.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Learning taught",
		"learning_id", created.ID,
		"organization_id", orgID,
		"category", created.Category,
		"scope", created.Scope,
		"authority", string(created.Authority),
	)
	return created, nil
}

// FindApplicable returns the matching active learnings ordered by authority
// rank (ceo first), then recency. Rank is a Go-side total order, not a string
// comparison, so new levels slot in without silent misordering.
func (s *learningService) FindApplicable(ctx context.Context, orgID uuid.UUID, q ApplicableQuery) ([]*types.Learning, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}

	var out []*types.Learning
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		mc := repos.LearningMatchContext{
			Text:       q.Text,
			ContextKey: q.ContextKey,
			UserID:     q.UserID,
			RoomID:     q.RoomID,
			Now:        time.Now().UTC(),
		}
		var err error
		out, err = s.learnings.FindApplicable(dbc, orgID, mc)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Authority.Rank(), out[j].Authority.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// RecordApplication logs one application and bumps the learning's counters in
// the same transaction. Duplicate applications within the dedup window are
// dropped: the window lives in Redis when available, with the application-log
// table as fallback. Returns false when the application was deduplicated.
func (s *learningService) RecordApplication(ctx context.Context, orgID uuid.UUID, in ApplicationInput) (bool, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || in.LearningID == uuid.Nil {
		return false, apperrors.ErrInvalidArgument
	}
	hash := in.ContextHash
	if hash == "" {
		hash = ContextHash(in.TriggerMessage)
	}

	claimedKey := ""
	if s.cache.Available() {
		key := fmt.Sprintf("dedup:apply:%s:%s:%s", orgID, in.LearningID, hash)
		won, err := s.cache.ClaimOnce(ctx, key, s.cfg.DedupWindow)
		switch {
		case err != nil:
			// Redis trouble is not a reason to drop the application; the
			// transaction below re-checks against the log table.
			s.log.Warn("Dedup cache unavailable, using DB check", "error", err)
		case !won:
			return false, nil
		default:
			claimedKey = key
		}
	}

	applied := false
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		since := time.Now().UTC().Add(-s.cfg.DedupWindow)

		dup, err := s.appLogs.ExistsRecent(dbc, orgID, in.LearningID, hash, since)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}

		row := &types.LearningApplicationLog{
			OrganizationID: orgID,
			LearningID:     in.LearningID,
			ContextHash:    hash,
			TriggerMessage: in.TriggerMessage,
			Succeeded:      in.Succeeded,
			LatencyMS:      in.LatencyMS,
			Classification: types.ClassificationInternal,
		}
		if _, err := s.appLogs.Create(dbc, row); err != nil {
			return err
		}
		if err := s.learnings.IncrementApplication(dbc, orgID, in.LearningID, in.Succeeded, time.Now().UTC()); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if claimedKey != "" {
			s.cache.Release(ctx, claimedKey)
		}
		return false, err
	}
	return applied, nil
}

func (s *learningService) SetFeedback(ctx context.Context, orgID, applicationLogID uuid.UUID, feedback string) error {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || applicationLogID == uuid.Nil {
		return apperrors.ErrInvalidArgument
	}
	switch feedback {
	case domlearning.FeedbackPositive, domlearning.FeedbackNegative:
	default:
		return apperrors.ErrInvalidArgument
	}
	return tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		return s.appLogs.SetFeedback(dbc, orgID, applicationLogID, feedback)
	})
}

// DecayConfidence applies the per-day multiplicative decay across the
// organization's active learnings. Safe under at-least-once scheduling:
// elapsed time comes from last_decayed_at, so back-to-back runs are no-ops.
func (s *learningService) DecayConfidence(ctx context.Context, orgID uuid.UUID) (int64, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return 0, apperrors.ErrInvalidArgument
	}
	var affected int64
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		affected, err = s.learnings.DecayConfidence(dbc, orgID, time.Now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Info("Decayed learning confidence", "organization_id", orgID, "count", affected)
	}
	return affected, nil
}

// ContextHash canonicalizes a trigger message into the duplicate-detection
// key. Whitespace-insensitive so trivially reformatted repeats still collide.
func ContextHash(message string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
