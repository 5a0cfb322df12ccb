package testutil

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/soulkun/soulkun-backend/internal/domain"
	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := autoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// WithOrg sets the tenant context on the test transaction, same as
// tenant.Scope does in production (SET LOCAL, so it dies with the tx).
func WithOrg(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID) {
	tb.Helper()
	if err := tx.WithContext(ctx).Exec(`SELECT set_config('app.org_id', ?, true)`, orgID.String()).Error; err != nil {
		tb.Fatalf("set tenant context: %v", err)
	}
}

// SkipUnlessRLSEnforced skips tests asserting row-level security when the
// test role is a superuser, which Postgres exempts from RLS entirely.
func SkipUnlessRLSEnforced(tb testing.TB, tx *gorm.DB) {
	tb.Helper()
	var su string
	if err := tx.Raw(`SHOW is_superuser`).Scan(&su).Error; err != nil {
		tb.Fatalf("check superuser: %v", err)
	}
	if strings.EqualFold(strings.TrimSpace(su), "on") {
		tb.Skip("test role is superuser; RLS not enforced")
	}
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.GoalSettingPattern{},
		&types.GoalSettingSession{},
		&types.GoalSettingLog{},

		&types.Learning{},
		&types.LearningApplicationLog{},

		&types.OutcomeEvent{},
		&types.OutcomePattern{},

		&types.Episode{},

		&types.JobRun{},
	)
}
