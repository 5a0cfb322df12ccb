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
	"github.com/soulkun/soulkun-backend/internal/platform/ctxutil"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
	"github.com/soulkun/soulkun-backend/internal/tenant"
)

// EpisodeInput is one interaction event to remember.
type EpisodeInput struct {
	UserID     uuid.UUID
	RoomID     string
	EventType  string
	Summary    string
	Content    string
	Keywords   []string
	Entities   []string
	Importance float64
	OccurredAt time.Time
}

type EpisodeService interface {
	RecordEpisode(ctx context.Context, orgID uuid.UUID, in EpisodeInput) (*types.Episode, error)
	RecallEpisodes(ctx context.Context, orgID uuid.UUID, q repos.EpisodeRecallQuery) ([]*types.Episode, error)
}

type episodeService struct {
	db       *gorm.DB
	log      *logger.Logger
	episodes repos.EpisodeRepo
}

func NewEpisodeService(db *gorm.DB, baseLog *logger.Logger, episodes repos.EpisodeRepo) EpisodeService {
	return &episodeService{
		db:       db,
		log:      baseLog.With("service", "EpisodeService"),
		episodes: episodes,
	}
}

func (s *episodeService) RecordEpisode(ctx context.Context, orgID uuid.UUID, in EpisodeInput) (*types.Episode, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil || in.UserID == uuid.Nil || strings.TrimSpace(in.Summary) == "" {
		return nil, apperrors.ErrInvalidArgument
	}
	if in.EventType == "" {
		in.EventType = "interaction"
	}
	if in.Importance <= 0 {
		in.Importance = 0.5
	}
	if in.Importance > 1 {
		in.Importance = 1
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now().UTC()
	}

	kw, err := json.Marshal(dedupeStrings(in.Keywords))
	if err != nil {
		return nil, err
	}
	en, err := json.Marshal(dedupeStrings(in.Entities))
	if err != nil {
		return nil, err
	}

	var created *types.Episode
	err = tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row := &types.Episode{
			OrganizationID: orgID,
			UserID:         in.UserID,
			RoomID:         in.RoomID,
			EventType:      in.EventType,
			Summary:        in.Summary,
			Content:        in.Content,
			Keywords:       kw,
			Entities:       en,
			Importance:     in.Importance,
			OccurredAt:     in.OccurredAt,
			Classification: types.ClassificationInternal,
		}
		rows, err := s.episodes.Create(dbc, []*types.Episode{row})
		if err != nil {
			return err
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *episodeService) RecallEpisodes(ctx context.Context, orgID uuid.UUID, q repos.EpisodeRecallQuery) ([]*types.Episode, error) {
	ctx = ctxutil.Default(ctx)
	if orgID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}
	var out []*types.Episode
	err := tenant.Scope(ctx, s.db, orgID, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		out, err = s.episodes.Recall(dbc, orgID, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
