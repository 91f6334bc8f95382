package mastersheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Semester sheet layout. Row 1 carries the set/semester banner, the column
// header sits at headerRow, student rows follow, and the SUMMARY block is
// written two rows below the last student.
const (
	bannerRow = 1
	headerRow = 3
)

// Derived sheet names.
const (
	CGPASummarySheet = "CGPA_SUMMARY"
	AnalysisSheet    = "ANALYSIS"
)

// Fixed columns around the per-course score columns.
var leadColumns = []string{"S/N", "EXAM NUMBER", "NAME"}
var trailColumns = []string{"REMARKS", "CU Passed", "CU Failed", "TCPE", "GPA", "AVERAGE"}

// WriteWorkbook writes a full mastersheet workbook: one sheet per semester
// in the given order plus the derived CGPA_SUMMARY and ANALYSIS sheets.
func WriteWorkbook(path string, sheets []*Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Semester); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Semester); err != nil {
			return err
		}
		if err := writeSemesterSheet(f, s); err != nil {
			return fmt.Errorf("writing sheet %s: %w", s.Semester, err)
		}
	}

	if err := writeDerivedSheets(f, sheets); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func writeSemesterSheet(f *excelize.File, s *Sheet) error {
	name := s.Semester

	banner := fmt.Sprintf("%s MASTERSHEET - %s", s.Set, s.Semester)
	if err := setRow(f, name, bannerRow, []interface{}{banner}); err != nil {
		return err
	}

	header := make([]interface{}, 0, len(leadColumns)+len(s.Courses)+len(trailColumns))
	for _, c := range leadColumns {
		header = append(header, c)
	}
	for _, course := range s.Courses {
		header = append(header, course.Code)
	}
	for _, c := range trailColumns {
		header = append(header, c)
	}
	if err := setRow(f, name, headerRow, header); err != nil {
		return err
	}

	row := headerRow
	for _, rec := range s.Records {
		row++
		cells := make([]interface{}, 0, len(header))
		cells = append(cells, rec.Serial, rec.ExamNumber, rec.Name)
		for _, course := range s.Courses {
			cells = append(cells, rec.Scores[course.Code])
		}
		cells = append(cells, rec.Remarks, rec.CUPassed, rec.CUFailed, rec.TCPE, rec.GPA, rec.Average)
		if err := setRow(f, name, row, cells); err != nil {
			return err
		}
	}

	return writeSummaryBlock(f, s, row+2)
}

func writeSummaryBlock(f *excelize.File, s *Sheet, startRow int) error {
	counts := s.Summary()
	lines := [][]interface{}{
		{"SUMMARY"},
		{"Total Students", counts.Total},
		{"Passed All Courses", counts.Passed},
		{"Carry Over", counts.Carryover},
		{"Probation", counts.Probation},
		{"Withdrawn", counts.Withdrawn},
	}
	if s.UpgradeMin > 0 {
		lines = append(lines, []interface{}{
			fmt.Sprintf("Upgrade rule %d-49 -> 50 applied", s.UpgradeMin), s.UpgradedScores,
		})
	}
	for i, line := range lines {
		if err := setRow(f, s.Semester, startRow+i, line); err != nil {
			return err
		}
	}
	return nil
}

// writeDerivedSheets replaces CGPA_SUMMARY and ANALYSIS with freshly built
// content. Existing copies are dropped first so stale rows never survive.
func writeDerivedSheets(f *excelize.File, sheets []*Sheet) error {
	for _, name := range []string{CGPASummarySheet, AnalysisSheet} {
		if idx, _ := f.GetSheetIndex(name); idx >= 0 {
			if err := f.DeleteSheet(name); err != nil {
				return err
			}
		}
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	if err := writeCGPASummary(f, sheets); err != nil {
		return err
	}
	return writeAnalysis(f, sheets)
}

func writeCGPASummary(f *excelize.File, sheets []*Sheet) error {
	rows, semesters := BuildCGPASummary(sheets)

	header := []interface{}{"S/N", "EXAM NUMBER", "NAME"}
	for _, sem := range semesters {
		header = append(header, sem+" GPA")
	}
	header = append(header, "CGPA", "STATUS")
	if err := setRow(f, CGPASummarySheet, 1, header); err != nil {
		return err
	}

	for i, r := range rows {
		cells := []interface{}{i + 1, r.ExamNumber, r.Name}
		for _, sem := range semesters {
			if gpa, ok := r.GPAs[sem]; ok {
				cells = append(cells, gpa)
			} else {
				cells = append(cells, "-")
			}
		}
		cells = append(cells, r.CGPA, string(r.Status))
		if err := setRow(f, CGPASummarySheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeAnalysis(f *excelize.File, sheets []*Sheet) error {
	rows := BuildAnalysis(sheets)

	header := []interface{}{
		"SEMESTER", "TOTAL", "PASSED", "CARRY OVER", "PROBATION", "WITHDRAWN", "AVERAGE GPA", "PASS RATE (%)",
	}
	if err := setRow(f, AnalysisSheet, 1, header); err != nil {
		return err
	}
	for i, r := range rows {
		cells := []interface{}{
			r.Semester, r.Total, r.Passed, r.Carryover, r.Probation, r.Withdrawn, r.AverageGPA, r.PassRate,
		}
		if err := setRow(f, AnalysisSheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
