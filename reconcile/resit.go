// Package reconcile matches resit submissions against the historical
// mastersheet, decides which scores are eligible to replace their originals
// and recomputes the affected records.
package reconcile

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/tracker"
)

// StudentNotFoundError reports a resit row whose exam number has no match in
// the mastersheet. The row is skipped and logged; the batch continues. No
// student is ever fabricated from a resit file.
type StudentNotFoundError struct {
	ExamNumber string
}

func (e *StudentNotFoundError) Error() string {
	return fmt.Sprintf("resit student %s not found in mastersheet", e.ExamNumber)
}

// Row is one parsed resit submission: resolved course code -> resit score.
type Row struct {
	ExamNumber string
	Name       string
	Scores     map[string]float64
}

var examHeaderNames = []string{
	"EXAM NUMBER", "EXAMS NUMBER", "EXAM NO", "EXAMS NO",
	"REG. NO", "REG NO", "REGISTRATION NUMBER", "MAT NO", "STUDENT ID",
}
var nameHeaderNames = []string{"NAME", "FULL NAME", "CANDIDATE NAME"}

// LoadResitFile parses the first sheet of a resit workbook. Course columns
// are resolved through the matcher; columns that resolve to no catalog
// course are dropped with a log line.
func LoadResitFile(path string, matcher *catalog.Matcher) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening resit file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("resit file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("resit file %s has no data rows", path)
	}

	header := rows[0]
	examCol, nameCol := -1, -1
	courseCols := make(map[int]string)
	for i, h := range header {
		clean := strings.ToUpper(strings.TrimSpace(h))
		switch {
		case clean == "" || clean == "S/N" || strings.HasPrefix(clean, "UNNAMED"):
		case contains(examHeaderNames, clean):
			examCol = i
		case contains(nameHeaderNames, clean):
			nameCol = i
		default:
			course, err := matcher.Resolve(h)
			if err != nil {
				log.Printf("reconcile: %v, column dropped", err)
				continue
			}
			courseCols[i] = course.Code
		}
	}
	if examCol < 0 {
		return nil, fmt.Errorf("resit file %s: exam number column not found", path)
	}
	if len(courseCols) == 0 {
		return nil, fmt.Errorf("resit file %s: no course columns resolved", path)
	}

	var out []Row
	for _, row := range rows[1:] {
		examNo := tracker.NormalizeExamNumber(cellAt(row, examCol))
		if examNo == "" || examNo == "NAN" || examNo == "NONE" {
			continue
		}
		r := Row{ExamNumber: examNo, Name: strings.TrimSpace(cellAt(row, nameCol)), Scores: make(map[string]float64)}
		for col, code := range courseCols {
			raw := strings.TrimSpace(cellAt(row, col))
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				log.Printf("reconcile: %s: unreadable %s score %q, skipped", examNo, code, raw)
				continue
			}
			r.Scores[code] = v
		}
		if len(r.Scores) > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// CourseOutcome records the decision taken for one submitted resit score.
type CourseOutcome struct {
	CourseCode    string
	OriginalScore float64
	ResitScore    float64
	Accepted      bool
	Passed        bool
	Reason        string
}

// StudentOutcome summarizes reconciliation for one student.
type StudentOutcome struct {
	ExamNumber string
	Courses    []CourseOutcome
	NewGPA     float64
	NewStatus  models.Status
	Remarks    string
}

// Outcome is the full result of reconciling one resit file against one
// semester sheet.
type Outcome struct {
	// Updates holds the accepted score substitutions, keyed by exam number
	// then course code, ready for the mastersheet update protocol.
	Updates  map[string]map[string]float64
	Students []StudentOutcome
	Skipped  []StudentNotFoundError
	Accepted int
	Rejected int
}

// Reconcile applies the eligibility rule to every resit row: a resit score
// replaces the original whenever the original failed, even when the new
// attempt also fails. Resits for already-passed courses are rejected. The
// sheet's records are recomputed with the substitutions in place.
func Reconcile(sheet *mastersheet.Sheet, rows []Row) *Outcome {
	out := &Outcome{Updates: make(map[string]map[string]float64)}
	threshold := sheet.PassThreshold

	for _, row := range rows {
		rec := sheet.Find(row.ExamNumber)
		if rec == nil {
			nf := StudentNotFoundError{ExamNumber: row.ExamNumber}
			log.Printf("reconcile: %v", &nf)
			out.Skipped = append(out.Skipped, nf)
			continue
		}

		so := StudentOutcome{ExamNumber: row.ExamNumber}
		for code, resitScore := range row.Scores {
			original, registered := rec.Scores[code]
			if !registered {
				so.Courses = append(so.Courses, CourseOutcome{
					CourseCode: code, ResitScore: resitScore,
					Reason: "course not in original record",
				})
				out.Rejected++
				continue
			}
			if original >= threshold {
				so.Courses = append(so.Courses, CourseOutcome{
					CourseCode: code, OriginalScore: original, ResitScore: resitScore,
					Reason: "already passed",
				})
				out.Rejected++
				continue
			}
			// The original failed, so the newest sitting stands even when
			// it fails again. Pass/fail only shapes the remarks and the
			// carryover course status.
			co := CourseOutcome{
				CourseCode: code, OriginalScore: original, ResitScore: resitScore,
				Accepted: true, Passed: resitScore >= threshold,
			}
			if !co.Passed {
				co.Reason = "resit score still below threshold"
			}
			so.Courses = append(so.Courses, co)
			if out.Updates[row.ExamNumber] == nil {
				out.Updates[row.ExamNumber] = make(map[string]float64)
			}
			out.Updates[row.ExamNumber][code] = resitScore
			rec.Scores[code] = resitScore
			out.Accepted++
		}

		if len(so.Courses) > 0 {
			out.Students = append(out.Students, so)
		}
	}

	// Substituted scores are part of the course set now; recompute the
	// whole sheet so TCPE and CU Passed/Failed reflect the corrected truth.
	sheet.Recompute()

	for i := range out.Students {
		so := &out.Students[i]
		rec := sheet.Find(so.ExamNumber)
		so.NewGPA = rec.GPA
		so.NewStatus = rec.Status
		so.Remarks = resitRemarks(so.Courses)
	}
	return out
}

// resitRemarks words the per-student summary over the eligible resit
// courses (those whose original score failed).
func resitRemarks(courses []CourseOutcome) string {
	attempted := 0
	passed := 0
	for _, c := range courses {
		if !c.Accepted {
			continue
		}
		attempted++
		if c.Passed {
			passed++
		}
	}
	switch {
	case attempted == 0:
		return "No eligible resit courses"
	case passed == attempted:
		return "All courses passed in resit"
	case passed == 0:
		return "No improvement in resit"
	default:
		return fmt.Sprintf("%d/%d courses passed in resit", passed, attempted)
	}
}

// IsStudentNotFound reports whether err is a StudentNotFoundError.
func IsStudentNotFound(err error) bool {
	var nf *StudentNotFoundError
	return errors.As(err, &nf)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
