// Package mastersheet models the authoritative multi-sheet workbook of
// record for one academic set: the per-semester result sheets, the derived
// CGPA_SUMMARY and ANALYSIS sheets, and the recoverable update protocol that
// is the single writer of durable state.
package mastersheet

import (
	"sort"
	"strings"

	"github.com/mtechcomputers/examresults/grading"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/tracker"
)

// Sheet is the in-memory form of one semester's result sheet.
type Sheet struct {
	Semester      string
	Set           string
	Courses       []models.Course // catalog order
	Records       []*models.SemesterRecord
	PassThreshold float64

	// UpgradeMin and UpgradedScores document the threshold upgrade rule
	// applied when the sheet was produced; zero when the rule was off.
	UpgradeMin     int
	UpgradedScores int
}

// CourseCodes returns the course codes in column order.
func (s *Sheet) CourseCodes() []string {
	codes := make([]string, len(s.Courses))
	for i, c := range s.Courses {
		codes[i] = c.Code
	}
	return codes
}

// Units returns the code -> credit unit map for the sheet.
func (s *Sheet) Units() map[string]int {
	units := make(map[string]int, len(s.Courses))
	for _, c := range s.Courses {
		units[c.Code] = c.CreditUnit
	}
	return units
}

// TotalCU is the registered credit-unit load for the semester.
func (s *Sheet) TotalCU() int {
	var total int
	for _, c := range s.Courses {
		total += c.CreditUnit
	}
	return total
}

// Find locates a student's record by normalized exam number.
func (s *Sheet) Find(examNo string) *models.SemesterRecord {
	key := tracker.NormalizeExamNumber(examNo)
	for _, rec := range s.Records {
		if tracker.NormalizeExamNumber(rec.ExamNumber) == key {
			return rec
		}
	}
	return nil
}

// Recompute re-derives every record's aggregates and status from its current
// course scores. Running it twice is a no-op, which is what makes the update
// protocol idempotent.
func (s *Sheet) Recompute() {
	units := s.Units()
	for _, rec := range s.Records {
		stats := grading.ComputeStats(rec.Scores, units, s.PassThreshold)
		rec.TCPE = stats.TCPE
		rec.CUPassed = stats.CUPassed
		rec.CUFailed = stats.CUFailed
		rec.TotalCU = stats.TotalCU
		rec.GPA = stats.GPA
		rec.Average = stats.Average
		rec.FailedCourses = stats.FailedCourses
		rec.Status = grading.Classify(stats.GPA, stats.CUFailed, stats.TotalCU)
		rec.Remarks = Remarks(stats.FailedCourses)
	}
}

// Remarks renders the REMARKS cell: "Passed" or the sorted failed-code list.
func Remarks(failedCourses []string) string {
	if len(failedCourses) == 0 {
		return "Passed"
	}
	sorted := make([]string, len(failedCourses))
	copy(sorted, failedCourses)
	sort.Strings(sorted)
	return "Failed: " + strings.Join(sorted, ", ")
}

// Sort orders records by status priority (Pass, Carryover, Probation,
// Withdrawn), then GPA descending, then exam number ascending, and rewrites
// serial numbers 1..N. The ordering is total, so re-sorting is stable.
func (s *Sheet) Sort() {
	sort.Slice(s.Records, func(i, j int) bool {
		a, b := s.Records[i], s.Records[j]
		if pa, pb := a.Status.SortPriority(), b.Status.SortPriority(); pa != pb {
			return pa < pb
		}
		if a.GPA != b.GPA {
			return a.GPA > b.GPA
		}
		return tracker.NormalizeExamNumber(a.ExamNumber) < tracker.NormalizeExamNumber(b.ExamNumber)
	})
	for i, rec := range s.Records {
		rec.Serial = i + 1
	}
}

// SummaryCounts is the tally rendered in the sheet's SUMMARY block and the
// ANALYSIS sheet. Counts are taken from classifier output, never re-derived
// from a second eligibility predicate.
type SummaryCounts struct {
	Total     int
	Passed    int
	Carryover int
	Probation int
	Withdrawn int
}

func (s *Sheet) Summary() SummaryCounts {
	var c SummaryCounts
	for _, rec := range s.Records {
		c.Total++
		switch rec.Status {
		case models.StatusPass:
			c.Passed++
		case models.StatusCarryover:
			c.Carryover++
		case models.StatusProbation:
			c.Probation++
		case models.StatusWithdrawn:
			c.Withdrawn++
		}
	}
	return c
}
