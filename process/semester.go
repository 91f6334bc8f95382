package process

import (
	"log"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/grading"
	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/tracker"
)

// Options configures one semester processing run.
type Options struct {
	Semester      string
	Set           string
	PassThreshold float64
	UpgradeMin    int // 0 disables the upgrade rule

	// Previous holds each student's (GPA, credit-unit) history from earlier
	// semesters, keyed by normalized exam number. Empty history degrades
	// CGPA to the current GPA.
	Previous map[string][]grading.SemesterWeight

	Withdrawals *tracker.WithdrawalTracker
}

// Result is the outcome of one semester run.
type Result struct {
	Sheet *mastersheet.Sheet

	// Removed are students filtered out because they withdrew in an earlier
	// semester; their reappearance is already logged on the tracker.
	Removed []*models.SemesterRecord

	NewlyWithdrawn int
	SkippedSheets  []SkippedSheet
}

// Run merges a raw component workbook into a computed, classified, sorted
// semester sheet.
func Run(f *excelize.File, sc *catalog.SemesterCourses, opts Options) *Result {
	intake := LoadIntake(f, sc)
	sheet := BuildSheet(intake, sc, opts)

	res := &Result{Sheet: sheet, SkippedSheets: intake.Skipped}

	if opts.Withdrawals != nil {
		sheet.Records, res.Removed = opts.Withdrawals.FilterWithdrawn(sheet.Records, opts.Semester)
		for _, rec := range sheet.Records {
			if rec.Status != models.StatusWithdrawn {
				continue
			}
			if !opts.Withdrawals.IsWithdrawn(rec.ExamNumber) {
				res.NewlyWithdrawn++
			}
			opts.Withdrawals.MarkWithdrawn(rec.ExamNumber, rec.Name, opts.Semester)
		}
	}

	applyCGPA(sheet, opts.Previous)
	sheet.Sort()
	return res
}

// BuildSheet turns the merged intake into a semester sheet: composite scores
// per course, the upgrade rule, then the full aggregate recompute.
func BuildSheet(intake *Intake, sc *catalog.SemesterCourses, opts Options) *mastersheet.Sheet {
	sheet := &mastersheet.Sheet{
		Semester:      opts.Semester,
		Set:           opts.Set,
		Courses:       sheetCourses(intake, sc),
		PassThreshold: opts.PassThreshold,
		UpgradeMin:    opts.UpgradeMin,
	}

	for _, student := range intake.Students {
		rec := &models.SemesterRecord{
			ExamNumber: student.ExamNumber,
			Name:       student.Name,
			Semester:   opts.Semester,
			Set:        opts.Set,
			Scores:     make(map[string]float64, len(sheet.Courses)),
		}
		for _, course := range sheet.Courses {
			comp := student.Components[course.Code]
			if comp == nil {
				comp = &Components{}
			}
			score := grading.CompositeScore(comp.CA, comp.Obj, comp.Exam)
			if opts.UpgradeMin > 0 {
				if upgraded, ok := grading.UpgradeScore(score, opts.UpgradeMin); ok {
					score = upgraded
					sheet.UpgradedScores++
				}
			}
			rec.Scores[course.Code] = score
		}
		sheet.Records = append(sheet.Records, rec)
	}

	sheet.Recompute()
	return sheet
}

// sheetCourses is the catalog's column order plus any off-catalog codes the
// intake carried, appended in sorted order with fallback credit units.
func sheetCourses(intake *Intake, sc *catalog.SemesterCourses) []models.Course {
	courses := make([]models.Course, 0, len(sc.Codes))
	seen := make(map[string]bool, len(sc.Codes))
	for _, code := range sc.Codes {
		courses = append(courses, sc.ByCode[code])
		seen[code] = true
	}

	var extra []string
	for _, student := range intake.Students {
		for code := range student.Components {
			if !seen[code] {
				seen[code] = true
				extra = append(extra, code)
			}
		}
	}
	sort.Strings(extra)
	for _, code := range extra {
		log.Printf("process: off-catalog course %s on intake, using fallback credit unit", code)
		courses = append(courses, catalog.FallbackCourse(code, sc.Key))
	}
	return courses
}

func applyCGPA(sheet *mastersheet.Sheet, previous map[string][]grading.SemesterWeight) {
	for _, rec := range sheet.Records {
		history := previous[tracker.NormalizeExamNumber(rec.ExamNumber)]
		history = append(history[:len(history):len(history)],
			grading.SemesterWeight{GPA: rec.GPA, CU: rec.TotalCU})
		rec.CGPA = grading.CGPA(history)
	}
}

// LoadPreviousGPAs reads the earlier semester sheets of a mastersheet
// workbook and returns each student's (GPA, credit-unit) history in semester
// order, keyed by normalized exam number. Sheets that are absent or
// unreadable are skipped; a student absent from an earlier sheet simply has
// a shorter history.
func LoadPreviousGPAs(f *excelize.File, semesterKeys []string, upTo string, cat *catalog.Catalog, passThreshold float64) map[string][]grading.SemesterWeight {
	history := make(map[string][]grading.SemesterWeight)
	for _, key := range semesterKeys {
		if key == upTo {
			break
		}
		sc, ok := cat.Semester(key)
		if !ok {
			continue
		}
		sheet, err := mastersheet.ReadSheet(f, key, sc, passThreshold)
		if err != nil {
			log.Printf("process: no prior sheet %s: %v", key, err)
			continue
		}
		for _, rec := range sheet.Records {
			examNo := tracker.NormalizeExamNumber(rec.ExamNumber)
			history[examNo] = append(history[examNo],
				grading.SemesterWeight{GPA: rec.GPA, CU: rec.TotalCU})
		}
	}
	return history
}
