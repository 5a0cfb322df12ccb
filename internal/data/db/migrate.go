package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/soulkun/soulkun-backend/internal/domain"
)

func migrate(db *gorm.DB) error {
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

// Tables carrying organization_id. Pattern catalogs and job runs are global
// and deliberately absent.
var tenantTables = []string{
	"goal_setting_sessions",
	"goal_setting_logs",
	"learnings",
	"learning_application_logs",
	"outcome_events",
	"outcome_patterns",
	"episodes",
}

// ApplyRLSPolicies enables row-level security on every tenant table and
// installs a policy keyed on the app.org_id session setting. The strict form
// of current_setting is used on purpose: a query issued without a tenant
// context errors instead of matching zero rows.
func ApplyRLSPolicies(db *gorm.DB) error {
	for _, tbl := range tenantTables {
		stmts := []string{
			fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, tbl),
			fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY`, tbl),
			fmt.Sprintf(`DROP POLICY IF EXISTS tenant_isolation ON %s`, tbl),
			fmt.Sprintf(
				`CREATE POLICY tenant_isolation ON %s
				 USING (organization_id = current_setting('app.org_id')::uuid)
				 WITH CHECK (organization_id = current_setting('app.org_id')::uuid)`, tbl),
		}
		for _, stmt := range stmts {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("apply RLS on %s: %w", tbl, err)
			}
		}
	}
	return nil
}
