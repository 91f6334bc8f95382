// Package archive upserts the outputs of a processing run into Postgres.
// The workbook stays the system of record; the archive is a queryable copy
// and its failure never blocks a run.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
)

const defaultBatchSize = 500

// Archiver writes run outputs to the archive database.
type Archiver struct {
	db        *sql.DB
	BatchSize int
}

func New(db *sql.DB) *Archiver {
	return &Archiver{db: db, BatchSize: defaultBatchSize}
}

// RunSummary is what ArchiveRun reports back for the CLI printout.
type RunSummary struct {
	RunID       uuid.UUID
	Records     int
	Withdrawals int
	Carryovers  int
	Elapsed     time.Duration
}

// ArchiveRun stores one processed semester sheet plus the current withdrawal
// registry and carryover records under a fresh run ID, all in one
// transaction.
func (a *Archiver) ArchiveRun(ctx context.Context, program string, sheet *mastersheet.Sheet, withdrawals []models.WithdrawalRecord, carryovers []models.CarryoverRecord) (*RunSummary, error) {
	start := time.Now()
	runID := uuid.New()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting archive transaction: %w", err)
	}
	defer tx.Rollback()

	if err := a.insertRun(ctx, tx, runID, program, sheet); err != nil {
		return nil, err
	}
	if err := a.insertRecords(ctx, tx, runID, sheet); err != nil {
		return nil, err
	}
	if err := a.insertWithdrawals(ctx, tx, sheet.Set, withdrawals); err != nil {
		return nil, err
	}
	if err := a.insertCarryovers(ctx, tx, carryovers); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing archive transaction: %w", err)
	}

	summary := &RunSummary{
		RunID:       runID,
		Records:     len(sheet.Records),
		Withdrawals: len(withdrawals),
		Carryovers:  len(carryovers),
		Elapsed:     time.Since(start),
	}
	log.Printf("archive: run %s stored %d records, %d withdrawals, %d carryovers in %s",
		runID, summary.Records, summary.Withdrawals, summary.Carryovers, summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

func (a *Archiver) insertRun(ctx context.Context, tx *sql.Tx, runID uuid.UUID, program string, sheet *mastersheet.Sheet) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, set_name, semester, program, processed_at,
			student_count, pass_count, carryover_count, probation_count, withdrawn_count)
		VALUES ($1, $2, $3, $4, now(), $5, $6, $7, $8, $9)`,
		runValues(runID, program, sheet)...)
	if err != nil {
		return fmt.Errorf("inserting run row: %w", err)
	}
	return nil
}

// runValues lists the runs-row arguments in column order. The tallies come
// from the classifier statuses on the sheet.
func runValues(runID uuid.UUID, program string, sheet *mastersheet.Sheet) []interface{} {
	counts := sheet.Summary()
	return []interface{}{
		runID, sheet.Set, sheet.Semester, program,
		len(sheet.Records), counts.Passed, counts.Carryover, counts.Probation, counts.Withdrawn,
	}
}

func (a *Archiver) insertRecords(ctx context.Context, tx *sql.Tx, runID uuid.UUID, sheet *mastersheet.Sheet) error {
	columns := []string{
		"run_id", "exam_number", "name", "semester", "set_name", "serial",
		"scores", "cu_passed", "cu_failed", "total_cu", "tcpe", "gpa",
		"cgpa", "average", "status", "remarks",
	}
	stmt, err := tx.PrepareContext(ctx, upsertQuery("semester_records", columns, []string{"run_id", "exam_number"}))
	if err != nil {
		return fmt.Errorf("preparing record statement: %w", err)
	}
	defer stmt.Close()

	batch := a.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	for i, rec := range sheet.Records {
		scores, err := json.Marshal(rec.Scores)
		if err != nil {
			return fmt.Errorf("encoding scores for %s: %w", rec.ExamNumber, err)
		}
		_, err = stmt.ExecContext(ctx,
			runID, rec.ExamNumber, rec.Name, rec.Semester, rec.Set, rec.Serial,
			scores, rec.CUPassed, rec.CUFailed, rec.TotalCU, rec.TCPE, rec.GPA,
			rec.CGPA, rec.Average, string(rec.Status), rec.Remarks)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ExamNumber, err)
		}
		if (i+1)%batch == 0 {
			log.Printf("archive: %d/%d records written", i+1, len(sheet.Records))
		}
	}
	return nil
}

func (a *Archiver) insertWithdrawals(ctx context.Context, tx *sql.Tx, set string, withdrawals []models.WithdrawalRecord) error {
	columns := []string{
		"set_name", "exam_number", "name", "withdrawn_semester",
		"withdrawn_date", "reappeared_semesters",
	}
	stmt, err := tx.PrepareContext(ctx, upsertQuery("withdrawal_records", columns, []string{"set_name", "exam_number"}))
	if err != nil {
		return fmt.Errorf("preparing withdrawal statement: %w", err)
	}
	defer stmt.Close()

	for _, w := range withdrawals {
		reappeared, err := json.Marshal(valueOrEmpty(w.ReappearedSemesters))
		if err != nil {
			return fmt.Errorf("encoding reappearances for %s: %w", w.ExamNumber, err)
		}
		_, err = stmt.ExecContext(ctx,
			set, w.ExamNumber, w.Name, w.WithdrawnSemester, w.WithdrawnDate, reappeared)
		if err != nil {
			return fmt.Errorf("inserting withdrawal %s: %w", w.ExamNumber, err)
		}
	}
	return nil
}

func (a *Archiver) insertCarryovers(ctx context.Context, tx *sql.Tx, carryovers []models.CarryoverRecord) error {
	columns := []string{
		"set_name", "semester", "exam_number", "course_code", "name",
		"course_title", "credit_unit", "original_score", "resit_score",
		"course_status", "student_status",
	}
	stmt, err := tx.PrepareContext(ctx, upsertQuery("carryover_records", columns,
		[]string{"set_name", "semester", "exam_number", "course_code"}))
	if err != nil {
		return fmt.Errorf("preparing carryover statement: %w", err)
	}
	defer stmt.Close()

	for _, co := range carryovers {
		for _, fc := range co.FailedCourses {
			var resit sql.NullFloat64
			if fc.ResitScore != nil {
				resit = sql.NullFloat64{Float64: *fc.ResitScore, Valid: true}
			}
			_, err := stmt.ExecContext(ctx,
				co.Set, co.Semester, co.ExamNumber, fc.CourseCode, co.Name,
				fc.CourseTitle, fc.CreditUnit, fc.OriginalScore, resit,
				fc.Status, string(co.Status))
			if err != nil {
				return fmt.Errorf("inserting carryover %s/%s: %w", co.ExamNumber, fc.CourseCode, err)
			}
		}
	}
	return nil
}

// upsertQuery builds an INSERT ... ON CONFLICT ... DO UPDATE statement where
// every non-key column takes the EXCLUDED value.
func upsertQuery(table string, columns, conflictKeys []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	key := make(map[string]bool, len(conflictKeys))
	for _, k := range conflictKeys {
		key[k] = true
	}
	var updates []string
	for _, col := range columns {
		if key[col] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(conflictKeys, ", "),
		strings.Join(updates, ", "))
}

func valueOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
