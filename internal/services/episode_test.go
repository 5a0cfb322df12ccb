package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
)

func newEpisodeService(t *testing.T) EpisodeService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewEpisodeService(db, log, repos.NewEpisodeRepo(db, log))
}

func TestRecordAndRecallEpisodes(t *testing.T) {
	svc := newEpisodeService(t)
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()

	older := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := svc.RecordEpisode(ctx, orgID, EpisodeInput{
		UserID:     userID,
		RoomID:     "room-1",
		Summary:    "提案資料のレビュー依頼",
		Keywords:   []string{"提案", "レビュー"},
		Entities:   []string{"田中"},
		Importance: 0.3,
		OccurredAt: older,
	}); err != nil {
		t.Fatalf("record older episode: %v", err)
	}

	important, err := svc.RecordEpisode(ctx, orgID, EpisodeInput{
		UserID:     userID,
		RoomID:     "room-1",
		Summary:    "大口契約の受注報告",
		Keywords:   []string{"契約", "受注"},
		Entities:   []string{"田中", "佐藤"},
		Importance: 0.9,
	})
	if err != nil {
		t.Fatalf("record important episode: %v", err)
	}

	// Keyword recall.
	got, err := svc.RecallEpisodes(ctx, orgID, repos.EpisodeRecallQuery{UserID: userID, Keyword: "契約"})
	if err != nil {
		t.Fatalf("recall by keyword: %v", err)
	}
	if len(got) != 1 || got[0].ID != important.ID {
		t.Fatalf("expected the contract episode, got %d rows", len(got))
	}

	// Entity recall sees both; importance orders the big one first.
	got, err = svc.RecallEpisodes(ctx, orgID, repos.EpisodeRecallQuery{UserID: userID, Entity: "田中"})
	if err != nil {
		t.Fatalf("recall by entity: %v", err)
	}
	if len(got) != 2 || got[0].ID != important.ID {
		t.Fatalf("expected 2 rows with the important one first, got %d", len(got))
	}

	// Temporal filter excludes the older episode.
	got, err = svc.RecallEpisodes(ctx, orgID, repos.EpisodeRecallQuery{
		UserID: userID,
		Since:  time.Now().UTC().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("recall by time: %v", err)
	}
	if len(got) != 1 || got[0].ID != important.ID {
		t.Fatalf("expected only the recent episode, got %d rows", len(got))
	}
}

func TestRecordEpisodeValidation(t *testing.T) {
	svc := newEpisodeService(t)
	ctx := context.Background()

	if _, err := svc.RecordEpisode(ctx, uuid.New(), EpisodeInput{UserID: uuid.New(), Summary: "  "}); err == nil {
		t.Fatalf("expected error for empty summary")
	}
	if _, err := svc.RecordEpisode(ctx, uuid.Nil, EpisodeInput{UserID: uuid.New(), Summary: "x"}); err == nil {
		t.Fatalf("expected error for missing org")
	}
}
