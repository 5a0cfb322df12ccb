package goals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domgoals "github.com/soulkun/soulkun-backend/internal/domain/goals"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
)

func TestSessionCreateConflictOnActiveDuplicate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()
	testutil.WithOrg(t, ctx, tx, orgID)

	repo := NewSessionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	testutil.SeedSession(t, ctx, tx, orgID, userID, "room-1")

	dup := &types.GoalSettingSession{
		OrganizationID: orgID,
		UserID:         userID,
		RoomID:         "room-1",
		Status:         domgoals.StatusInProgress,
		CurrentStep:    domgoals.StepIntro,
		StepAttempt:    1,
		Classification: "internal",
		StartedAt:      time.Now().UTC(),
		LastActivityAt: time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}
	if _, err := repo.Create(dbc, dup); !errors.Is(err, apperrors.ErrSessionConflict) {
		t.Fatalf("expected ErrSessionConflict, got %v", err)
	}
}

func TestSessionCreateAllowedAfterCompletion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	orgID, userID := uuid.New(), uuid.New()
	testutil.WithOrg(t, ctx, tx, orgID)

	repo := NewSessionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	done := testutil.SeedSession(t, ctx, tx, orgID, userID, "room-1")
	done.Status = domgoals.StatusCompleted
	if err := repo.Save(dbc, done); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	// The partial index only guards in_progress rows.
	next := &types.GoalSettingSession{
		OrganizationID: orgID,
		UserID:         userID,
		RoomID:         "room-1",
		Status:         domgoals.StatusInProgress,
		CurrentStep:    domgoals.StepIntro,
		StepAttempt:    1,
		Classification: "internal",
		StartedAt:      time.Now().UTC(),
		LastActivityAt: time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}
	if _, err := repo.Create(dbc, next); err != nil {
		t.Fatalf("create after completion: %v", err)
	}
}

func TestExpireStaleOnlyTouchesExpiredRows(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	orgID := uuid.New()
	testutil.WithOrg(t, ctx, tx, orgID)

	repo := NewSessionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	stale := testutil.SeedSession(t, ctx, tx, orgID, uuid.New(), "room-1")
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := repo.Save(dbc, stale); err != nil {
		t.Fatalf("backdate session: %v", err)
	}
	fresh := testutil.SeedSession(t, ctx, tx, orgID, uuid.New(), "room-2")

	n, err := repo.ExpireStale(dbc, orgID, time.Now().UTC())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired row, got %d", n)
	}

	got, err := repo.GetByID(dbc, orgID, fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if got.Status != domgoals.StatusInProgress {
		t.Fatalf("fresh session should stay in progress, got %s", got.Status)
	}

	gotStale, err := repo.GetByID(dbc, orgID, stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if gotStale.Status != domgoals.StatusAbandoned {
		t.Fatalf("stale session should be abandoned, got %s", gotStale.Status)
	}
}
