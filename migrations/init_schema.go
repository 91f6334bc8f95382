package migrations

import (
	"database/sql"
	"fmt"
)

// InitSchema creates the archive tables if they do not exist. The archive is
// additive: nothing here drops or rewrites existing data.
func InitSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id UUID PRIMARY KEY,
			set_name TEXT NOT NULL,
			semester TEXT NOT NULL,
			program TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			student_count INT NOT NULL,
			pass_count INT NOT NULL,
			carryover_count INT NOT NULL,
			probation_count INT NOT NULL,
			withdrawn_count INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS semester_records (
			run_id UUID NOT NULL REFERENCES runs(run_id),
			exam_number TEXT NOT NULL,
			name TEXT NOT NULL,
			semester TEXT NOT NULL,
			set_name TEXT NOT NULL,
			serial INT NOT NULL,
			scores JSONB NOT NULL,
			cu_passed INT NOT NULL,
			cu_failed INT NOT NULL,
			total_cu INT NOT NULL,
			tcpe DOUBLE PRECISION NOT NULL,
			gpa DOUBLE PRECISION NOT NULL,
			cgpa DOUBLE PRECISION NOT NULL,
			average DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			remarks TEXT NOT NULL,
			PRIMARY KEY (run_id, exam_number)
		)`,
		`CREATE TABLE IF NOT EXISTS withdrawal_records (
			set_name TEXT NOT NULL,
			exam_number TEXT NOT NULL,
			name TEXT NOT NULL,
			withdrawn_semester TEXT NOT NULL,
			withdrawn_date TIMESTAMPTZ NOT NULL,
			reappeared_semesters JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (set_name, exam_number)
		)`,
		`CREATE TABLE IF NOT EXISTS carryover_records (
			set_name TEXT NOT NULL,
			semester TEXT NOT NULL,
			exam_number TEXT NOT NULL,
			course_code TEXT NOT NULL,
			name TEXT NOT NULL,
			course_title TEXT NOT NULL,
			credit_unit INT NOT NULL,
			original_score DOUBLE PRECISION NOT NULL,
			resit_score DOUBLE PRECISION,
			course_status TEXT NOT NULL,
			student_status TEXT NOT NULL,
			PRIMARY KEY (set_name, semester, exam_number, course_code)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating archive table: %w", err)
		}
	}
	return nil
}
