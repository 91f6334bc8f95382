// Package tracker holds the per-run registries that carry state across
// semesters: the withdrawal registry, the student tracker and the carryover
// tracker. Each is an explicit service constructed once per run and passed
// into the processing stages; there is no package-level state.
package tracker

import (
	"sort"
	"strings"
	"time"

	"github.com/mtechcomputers/examresults/models"
)

// WithdrawalTracker is the process-wide registry of withdrawn students.
// Withdrawal is permanent for the remainder of the run: records are never
// purged, and a withdrawn student reappearing in later raw intake is logged
// as an anomaly, not silently processed.
type WithdrawalTracker struct {
	records map[string]*models.WithdrawalRecord
	order   []string
}

func NewWithdrawalTracker() *WithdrawalTracker {
	return &WithdrawalTracker{records: make(map[string]*models.WithdrawalRecord)}
}

// NormalizeExamNumber canonicalizes the join key used across all registries.
func NormalizeExamNumber(examNo string) string {
	return strings.ToUpper(strings.TrimSpace(examNo))
}

// MarkWithdrawn registers a withdrawal observed in the given semester. The
// first semester wins; marking an already-withdrawn student is a no-op.
func (t *WithdrawalTracker) MarkWithdrawn(examNo, name, semester string) {
	key := NormalizeExamNumber(examNo)
	if key == "" {
		return
	}
	if _, exists := t.records[key]; exists {
		return
	}
	t.records[key] = &models.WithdrawalRecord{
		ExamNumber:        key,
		Name:              name,
		WithdrawnSemester: semester,
		WithdrawnDate:     time.Now(),
	}
	t.order = append(t.order, key)
}

// IsWithdrawn reports whether the exam number has a withdrawal record.
func (t *WithdrawalTracker) IsWithdrawn(examNo string) bool {
	_, ok := t.records[NormalizeExamNumber(examNo)]
	return ok
}

// History returns the withdrawal record for an exam number, if any.
func (t *WithdrawalTracker) History(examNo string) (models.WithdrawalRecord, bool) {
	rec, ok := t.records[NormalizeExamNumber(examNo)]
	if !ok {
		return models.WithdrawalRecord{}, false
	}
	return *rec, true
}

// RecordReappearance appends the semester to the student's reappearance log.
// Duplicate sightings in the same semester collapse to one entry.
func (t *WithdrawalTracker) RecordReappearance(examNo, semester string) {
	rec, ok := t.records[NormalizeExamNumber(examNo)]
	if !ok {
		return
	}
	for _, s := range rec.ReappearedSemesters {
		if s == semester {
			return
		}
	}
	rec.ReappearedSemesters = append(rec.ReappearedSemesters, semester)
}

// FilterWithdrawn splits candidate records into those kept for normal
// processing and those removed because the student was withdrawn in an
// earlier semester. Every removal is logged into the reappearance history.
func (t *WithdrawalTracker) FilterWithdrawn(candidates []*models.SemesterRecord, semester string) (kept, removed []*models.SemesterRecord) {
	for _, rec := range candidates {
		key := NormalizeExamNumber(rec.ExamNumber)
		prior, withdrawn := t.records[key]
		if withdrawn && prior.WithdrawnSemester != semester {
			t.RecordReappearance(key, semester)
			removed = append(removed, rec)
			continue
		}
		kept = append(kept, rec)
	}
	return kept, removed
}

// Records returns all withdrawal records in registration order.
func (t *WithdrawalTracker) Records() []models.WithdrawalRecord {
	out := make([]models.WithdrawalRecord, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, *t.records[key])
	}
	return out
}

// Anomalies returns the records whose students reappeared after withdrawal,
// sorted by exam number. These need human review.
func (t *WithdrawalTracker) Anomalies() []models.WithdrawalRecord {
	var out []models.WithdrawalRecord
	for _, key := range t.order {
		if len(t.records[key].ReappearedSemesters) > 0 {
			out = append(out, *t.records[key])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExamNumber < out[j].ExamNumber })
	return out
}

func (t *WithdrawalTracker) Count() int { return len(t.records) }
