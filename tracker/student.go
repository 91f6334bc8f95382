package tracker

import "github.com/mtechcomputers/examresults/models"

// StudentTracker records which exam numbers were processed in each semester
// of the run, for cross-semester reporting.
type StudentTracker struct {
	semesters map[string][]string
	seen      map[string]string // exam number -> first seen display name
	order     []string
}

func NewStudentTracker() *StudentTracker {
	return &StudentTracker{
		semesters: make(map[string][]string),
		seen:      make(map[string]string),
	}
}

// Track registers the students processed for a semester. Display names vary
// slightly across submissions; the first-seen spelling wins.
func (t *StudentTracker) Track(semester string, records []*models.SemesterRecord) {
	if _, ok := t.semesters[semester]; !ok {
		t.order = append(t.order, semester)
	}
	for _, rec := range records {
		key := NormalizeExamNumber(rec.ExamNumber)
		t.semesters[semester] = append(t.semesters[semester], key)
		if _, ok := t.seen[key]; !ok {
			t.seen[key] = rec.Name
		}
	}
}

// Name returns the first-seen display name for an exam number.
func (t *StudentTracker) Name(examNo string) string {
	return t.seen[NormalizeExamNumber(examNo)]
}

// Semesters returns the semesters tracked so far, in processing order.
func (t *StudentTracker) Semesters() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// CountIn returns how many students were processed in a semester.
func (t *StudentTracker) CountIn(semester string) int {
	return len(t.semesters[semester])
}

// CarryoverTracker indexes carryover records by (exam number, semester) for
// the duration of a run.
type CarryoverTracker struct {
	records map[string]*models.CarryoverRecord
	order   []string
}

func NewCarryoverTracker() *CarryoverTracker {
	return &CarryoverTracker{records: make(map[string]*models.CarryoverRecord)}
}

func carryoverKey(examNo, semester string) string {
	return NormalizeExamNumber(examNo) + "|" + semester
}

// Put stores or replaces the record for (student, semester).
func (t *CarryoverTracker) Put(rec *models.CarryoverRecord) {
	key := carryoverKey(rec.ExamNumber, rec.Semester)
	if _, exists := t.records[key]; !exists {
		t.order = append(t.order, key)
	}
	t.records[key] = rec
}

// Get returns the record for (student, semester), if any.
func (t *CarryoverTracker) Get(examNo, semester string) (*models.CarryoverRecord, bool) {
	rec, ok := t.records[carryoverKey(examNo, semester)]
	return rec, ok
}

// Remove drops a record once the student has cleared every failed course.
func (t *CarryoverTracker) Remove(examNo, semester string) {
	key := carryoverKey(examNo, semester)
	if _, ok := t.records[key]; !ok {
		return
	}
	delete(t.records, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Records returns all live records in insertion order.
func (t *CarryoverTracker) Records() []*models.CarryoverRecord {
	out := make([]*models.CarryoverRecord, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.records[key])
	}
	return out
}
