package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/soulkun/soulkun-backend/internal/data/db"
	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	apperrors "github.com/soulkun/soulkun-backend/internal/platform/errors"
)

func TestScopeRequiresOrgID(t *testing.T) {
	gdb := testutil.DB(t)
	err := Scope(context.Background(), gdb, uuid.Nil, func(tx *gorm.DB) error { return nil })
	if !errors.Is(err, apperrors.ErrTenantContextMissing) {
		t.Fatalf("expected ErrTenantContextMissing, got %v", err)
	}
}

func TestOrgIDRoundTrip(t *testing.T) {
	gdb := testutil.DB(t)
	orgID := uuid.New()

	err := Scope(context.Background(), gdb, orgID, func(tx *gorm.DB) error {
		got, err := OrgID(tx)
		if err != nil {
			return err
		}
		if got != orgID {
			t.Fatalf("expected %s, got %s", orgID, got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scope: %v", err)
	}

	// Outside the transaction the setting is gone.
	err = gdb.Transaction(func(tx *gorm.DB) error {
		_, err := OrgID(tx)
		return err
	})
	if !errors.Is(err, apperrors.ErrTenantContextMissing) {
		t.Fatalf("expected missing context after scope ended, got %v", err)
	}
}

// TestRowLevelSecurityIsolation is the core cross-tenant invariant: rows
// written under org A are invisible under org B on every tenant table.
// Requires a non-superuser test role, since Postgres exempts superusers from
// RLS entirely.
func TestRowLevelSecurityIsolation(t *testing.T) {
	gdb := testutil.DB(t)
	if err := db.ApplyRLSPolicies(gdb); err != nil {
		t.Fatalf("apply RLS policies: %v", err)
	}
	testutil.SkipUnlessRLSEnforced(t, gdb)

	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()
	userID := uuid.New()

	err := Scope(ctx, gdb, orgA, func(tx *gorm.DB) error {
		testutil.SeedSession(t, ctx, tx, orgA, userID, "room-1")
		testutil.SeedLearning(t, ctx, tx, orgA, "秘密のキーワード", "user")
		return nil
	})
	if err != nil {
		t.Fatalf("seed under org A: %v", err)
	}

	err = Scope(ctx, gdb, orgB, func(tx *gorm.DB) error {
		var sessions []types.GoalSettingSession
		if err := tx.WithContext(ctx).Find(&sessions).Error; err != nil {
			return err
		}
		for _, s := range sessions {
			if s.OrganizationID == orgA {
				t.Fatalf("org B can see org A session %s", s.ID)
			}
		}

		var learnings []types.Learning
		if err := tx.WithContext(ctx).Find(&learnings).Error; err != nil {
			return err
		}
		for _, l := range learnings {
			if l.OrganizationID == orgA {
				t.Fatalf("org B can see org A learning %s", l.ID)
			}
		}

		return nil
	})
	if err != nil {
		t.Fatalf("query under org B: %v", err)
	}

	// Writing a row for another org violates the policy's WITH CHECK.
	err = Scope(ctx, gdb, orgB, func(tx *gorm.DB) error {
		bad := &types.Learning{
			ID:             uuid.New(),
			OrganizationID: orgA,
			Category:       "fact",
			TriggerType:    "keyword",
			TriggerValue:   "injected",
			Content:        datatypes.JSON([]byte(`{"value":"x"}`)),
			Authority:      "user",
			IsActive:       true,
			Classification: "internal",
		}
		return tx.WithContext(ctx).Create(bad).Error
	})
	if err == nil {
		t.Fatalf("org B wrote a row into org A")
	}
}
