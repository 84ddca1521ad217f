package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// Constraints AutoMigrate cannot express
var schemaStatements = []string{
	// At most one in-progress attempt per student and exam
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_exam_attempts_active
		ON exam_attempts (exam_id, student_id) WHERE status = 'in_progress'`,
	// ended_at is set exactly when the attempt is submitted
	`DO $$ BEGIN
		ALTER TABLE exam_attempts ADD CONSTRAINT chk_exam_attempts_ended
			CHECK ((status = 'submitted') = (ended_at IS NOT NULL));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		ALTER TABLE exam_attempts ADD CONSTRAINT chk_exam_attempts_status
			CHECK (status IN ('in_progress', 'submitted'));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
}

// Migrate creates or updates every table owned by the service
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Subject{},
		&models.Question{},
		&models.Exam{},
		&attemptRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	for _, stmt := range schemaStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
