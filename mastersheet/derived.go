package mastersheet

import (
	"math"

	"github.com/mtechcomputers/examresults/grading"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/tracker"
)

// CGPARow is one student's line in the CGPA_SUMMARY sheet.
type CGPARow struct {
	ExamNumber string
	Name       string
	GPAs       map[string]float64 // semester key -> GPA
	CGPA       float64
	Status     models.Status
}

// BuildCGPASummary aggregates every student across the semester sheets. The
// CGPA is re-derived from the (GPA, total CU) sequence each time; no stored
// CGPA value is trusted. Status is the student's most recent classification,
// except that a withdrawal anywhere is terminal and dominates.
func BuildCGPASummary(sheets []*Sheet) ([]CGPARow, []string) {
	semesters := make([]string, 0, len(sheets))
	for _, s := range sheets {
		semesters = append(semesters, s.Semester)
	}

	byStudent := make(map[string]*CGPARow)
	var order []string
	history := make(map[string][]grading.SemesterWeight)

	for _, s := range sheets {
		for _, rec := range s.Records {
			key := tracker.NormalizeExamNumber(rec.ExamNumber)
			row, ok := byStudent[key]
			if !ok {
				row = &CGPARow{ExamNumber: key, Name: rec.Name, GPAs: make(map[string]float64)}
				byStudent[key] = row
				order = append(order, key)
			}
			row.GPAs[s.Semester] = rec.GPA
			history[key] = append(history[key], grading.SemesterWeight{GPA: rec.GPA, CU: rec.TotalCU})
			if row.Status != models.StatusWithdrawn {
				row.Status = rec.Status
			}
		}
	}

	rows := make([]CGPARow, 0, len(order))
	for _, key := range order {
		row := byStudent[key]
		row.CGPA = grading.CGPA(history[key])
		rows = append(rows, *row)
	}
	return rows, semesters
}

// AnalysisRow is one semester's line in the ANALYSIS sheet.
type AnalysisRow struct {
	Semester   string
	Total      int
	Passed     int
	Carryover  int
	Probation  int
	Withdrawn  int
	AverageGPA float64
	PassRate   float64
}

// BuildAnalysis tallies each semester sheet and appends an OVERALL row.
// Counts come straight from the classifier statuses on the records.
func BuildAnalysis(sheets []*Sheet) []AnalysisRow {
	rows := make([]AnalysisRow, 0, len(sheets)+1)
	var overall AnalysisRow
	overall.Semester = "OVERALL"
	var overallGPASum float64

	for _, s := range sheets {
		counts := s.Summary()
		row := AnalysisRow{
			Semester:  s.Semester,
			Total:     counts.Total,
			Passed:    counts.Passed,
			Carryover: counts.Carryover,
			Probation: counts.Probation,
			Withdrawn: counts.Withdrawn,
		}
		var gpaSum float64
		for _, rec := range s.Records {
			gpaSum += rec.GPA
		}
		if row.Total > 0 {
			row.AverageGPA = round2(gpaSum / float64(row.Total))
			row.PassRate = round2(float64(row.Passed) / float64(row.Total) * 100)
		}
		rows = append(rows, row)

		overall.Total += row.Total
		overall.Passed += row.Passed
		overall.Carryover += row.Carryover
		overall.Probation += row.Probation
		overall.Withdrawn += row.Withdrawn
		overallGPASum += gpaSum
	}

	if overall.Total > 0 {
		overall.AverageGPA = round2(overallGPASum / float64(overall.Total))
		overall.PassRate = round2(float64(overall.Passed) / float64(overall.Total) * 100)
	}
	rows = append(rows, overall)
	return rows
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
