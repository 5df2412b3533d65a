package db

import (
	"fmt"

	"github.com/yungbote/upwise-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureLedgerIndexes(db)
}

// EnsureLedgerIndexes adds indexes the struct tags cannot express. The
// statements are valid on both Postgres and SQLite.
func EnsureLedgerIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_purchase_user_active",
			sql:  `CREATE INDEX IF NOT EXISTS idx_purchase_user_active ON purchase (user_id) WHERE status = 'active';`,
		},
		{
			name: "idx_quiz_submission_user_submitted",
			sql:  `CREATE INDEX IF NOT EXISTS idx_quiz_submission_user_submitted ON quiz_submission (user_id, submitted_at DESC);`,
		},
		{
			name: "idx_user_activity_day_user_day",
			sql:  `CREATE INDEX IF NOT EXISTS idx_user_activity_day_user_day ON user_activity_day (user_id, day DESC);`,
		},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}
