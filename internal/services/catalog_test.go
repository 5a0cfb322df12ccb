package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
)

func TestSeedPatternCatalogFromConfiguredPath(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewGoalPatternRepo(db, log)
	ctx := context.Background()

	seed := filepath.Join(t.TempDir(), "patterns.yaml")
	body := `patterns:
  - code: seeded_from_file
    name: File seed
    strategy: proceed
    priority: 950
    keywords: ["ファイルシード"]
`
	if err := os.WriteFile(seed, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	if err := SeedPatternCatalog(ctx, log, repo, seed); err != nil {
		t.Fatalf("seed from path: %v", err)
	}

	rows, err := repo.ListAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	found := false
	for _, p := range rows {
		if p.Code == "seeded_from_file" {
			found = true
			if p.Priority != 950 {
				t.Fatalf("expected priority 950, got %d", p.Priority)
			}
		}
	}
	if !found {
		t.Fatalf("pattern from the configured seed path was not written")
	}

	// A bad path is a hard startup error, not a silent fallback.
	if err := SeedPatternCatalog(ctx, log, repo, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}
