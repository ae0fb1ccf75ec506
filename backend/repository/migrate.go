package repository

import (
	"fmt"

	"gorm.io/gorm"

	"quizplatform/backend/models"
)

// OpenSubmissionIndex keeps at most one in-progress submission per quiz and taker.
const OpenSubmissionIndex = "idx_quiz_submissions_open"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// Both postgres and sqlite accept partial indexes in this form.
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON quiz_submissions (quiz_id, quiz_taker_id) WHERE status = '%s'",
		OpenSubmissionIndex, models.SubmissionInProgress,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", OpenSubmissionIndex, err)
	}
	return nil
}
