package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gorm.io/datatypes"
	"gopkg.in/yaml.v3"

	"github.com/soulkun/soulkun-backend/internal/data/repos"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/ctxutil"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

//go:embed goal_patterns.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Patterns []catalogPattern `yaml:"patterns"`
}

type catalogPattern struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Strategy    string   `yaml:"strategy"`
	IsNG        bool     `yaml:"is_ng"`
	Priority    int      `yaml:"priority"`
	Keywords    []string `yaml:"keywords"`
}

// SeedPatternCatalog upserts the goal-setting pattern catalog from the YAML
// seed: the embedded default, or the file at seedPath when one is configured.
// Occurrence counters survive reseeding: the upsert never touches them.
func SeedPatternCatalog(ctx context.Context, log *logger.Logger, patternRepo repos.GoalPatternRepo, seedPath string) error {
	ctx = ctxutil.Default(ctx)

	raw := defaultCatalogYAML
	if path := strings.TrimSpace(seedPath); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read pattern seed %s: %w", path, err)
		}
		raw = b
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse pattern seed: %w", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	for _, p := range file.Patterns {
		kw, err := json.Marshal(p.Keywords)
		if err != nil {
			return fmt.Errorf("encode keywords for %s: %w", p.Code, err)
		}
		row := &types.GoalSettingPattern{
			Code:        p.Code,
			Name:        p.Name,
			Description: p.Description,
			Keywords:    datatypes.JSON(kw),
			Strategy:    p.Strategy,
			IsNG:        p.IsNG,
			Priority:    p.Priority,
		}
		if err := patternRepo.UpsertByCode(dbc, row); err != nil {
			return fmt.Errorf("upsert pattern %s: %w", p.Code, err)
		}
	}
	log.Info("Goal pattern catalog seeded", "patterns", len(file.Patterns))
	return nil
}
