package episodes

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

// RecallQuery narrows episode recall. Zero-value fields are ignored.
type RecallQuery struct {
	UserID  uuid.UUID
	RoomID  string
	Keyword string
	Entity  string
	Since   time.Time
	Until   time.Time
	Limit   int
}

type EpisodeRepo interface {
	Create(dbc dbctx.Context, rows []*types.Episode) ([]*types.Episode, error)
	Recall(dbc dbctx.Context, orgID uuid.UUID, q RecallQuery) ([]*types.Episode, error)
}

type episodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeRepo {
	return &episodeRepo{db: db, log: baseLog.With("repo", "EpisodeRepo")}
}

func (r *episodeRepo) Create(dbc dbctx.Context, rows []*types.Episode) ([]*types.Episode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Episode{}, nil
	}
	for _, row := range rows {
		if row == nil {
			return nil, apperrors.ErrInvalidArgument
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.OccurredAt.IsZero() {
			row.OccurredAt = time.Now().UTC()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *episodeRepo) Recall(dbc dbctx.Context, orgID uuid.UUID, q RecallQuery) ([]*types.Episode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	query := t.WithContext(dbc.Ctx).Where("organization_id = ?", orgID)
	if q.UserID != uuid.Nil {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.RoomID != "" {
		query = query.Where("room_id = ?", q.RoomID)
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		// Matches the jsonb keyword array or the text body.
		query = query.Where(`(keywords @> to_jsonb(ARRAY[?::text]) OR summary ILIKE ? OR content ILIKE ?)`,
			kw, "%"+kw+"%", "%"+kw+"%")
	}
	if en := strings.TrimSpace(q.Entity); en != "" {
		query = query.Where(`entities @> to_jsonb(ARRAY[?::text])`, en)
	}
	if !q.Since.IsZero() {
		query = query.Where("occurred_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		query = query.Where("occurred_at < ?", q.Until)
	}
	out := []*types.Episode{}
	err := query.
		Order("importance DESC, occurred_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
