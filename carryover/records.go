// Package carryover identifies students with outstanding failed courses and
// persists the carryover record files (JSON and Excel) for each
// (set, semester) run.
package carryover

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/reconcile"
)

// Identify builds one carryover record per student with at least one failing
// course on the sheet. Withdrawn students are included: their failed courses
// remain part of the historical record even though they leave normal intake.
func Identify(sheet *mastersheet.Sheet) []models.CarryoverRecord {
	var out []models.CarryoverRecord
	byCode := make(map[string]models.Course, len(sheet.Courses))
	for _, c := range sheet.Courses {
		byCode[c.Code] = c
	}

	for _, rec := range sheet.Records {
		if len(rec.FailedCourses) == 0 {
			continue
		}
		co := models.CarryoverRecord{
			ExamNumber: rec.ExamNumber,
			Name:       rec.Name,
			Semester:   sheet.Semester,
			Set:        sheet.Set,
			Status:     rec.Status,
		}
		for _, code := range rec.FailedCourses {
			course := byCode[code]
			co.FailedCourses = append(co.FailedCourses, models.FailedCourse{
				CourseCode:    code,
				CourseTitle:   course.Title,
				CreditUnit:    course.CreditUnit,
				OriginalScore: rec.Scores[code],
				Status:        models.FailedCourseOpen,
			})
		}
		out = append(out, co)
	}
	return out
}

// ApplyOutcome folds a reconciliation outcome back into the carryover
// records. Every substituted resit score is recorded; the course status
// flips to passed only when the new score clears the threshold, so a
// still-failing resit stays an open carryover with its latest attempt on
// file. Records whose failures are all cleared are dropped from the
// returned slice; the student has left carryover for that semester.
func ApplyOutcome(records []models.CarryoverRecord, out *reconcile.Outcome, passThreshold float64) []models.CarryoverRecord {
	accepted := make(map[string]map[string]float64, len(out.Updates))
	for examNo, courses := range out.Updates {
		accepted[strings.ToUpper(examNo)] = courses
	}

	var kept []models.CarryoverRecord
	for _, rec := range records {
		courses := accepted[strings.ToUpper(rec.ExamNumber)]
		open := 0
		for i := range rec.FailedCourses {
			fc := &rec.FailedCourses[i]
			if score, ok := courses[fc.CourseCode]; ok {
				s := score
				fc.ResitScore = &s
				if s >= passThreshold {
					fc.Status = models.FailedCoursePassed
				}
			}
			if fc.Status != models.FailedCoursePassed {
				open++
			}
		}
		if open == 0 {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func baseName(set, semester string) string {
	return fmt.Sprintf("carryover_%s_%s", set, semester)
}

// Save writes the JSON array and the Excel table for a (set, semester) run
// and returns both paths.
func Save(dir string, set, semester string, records []models.CarryoverRecord) (jsonPath, xlsxPath string, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	jsonPath = filepath.Join(dir, baseName(set, semester)+".json")
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", "", err
	}
	if err = os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", err
	}

	xlsxPath = filepath.Join(dir, baseName(set, semester)+".xlsx")
	if err = writeTable(xlsxPath, records); err != nil {
		return "", "", err
	}
	return jsonPath, xlsxPath, nil
}

// Load reads back the JSON carryover records for a (set, semester) run.
func Load(dir, set, semester string) ([]models.CarryoverRecord, error) {
	path := filepath.Join(dir, baseName(set, semester)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading carryover records %s: %w", path, err)
	}
	var records []models.CarryoverRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing carryover records %s: %w", path, err)
	}
	return records, nil
}

func writeTable(path string, records []models.CarryoverRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{
		"S/N", "EXAM NUMBER", "NAME", "COURSE CODE", "COURSE TITLE", "CU",
		"ORIGINAL SCORE", "RESIT SCORE", "COURSE STATUS", "STUDENT STATUS", "SEMESTER", "SET",
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	row := 1
	serial := 0
	for _, rec := range records {
		serial++
		for _, fc := range rec.FailedCourses {
			row++
			resit := interface{}("-")
			if fc.ResitScore != nil {
				resit = *fc.ResitScore
			}
			cells := []interface{}{
				serial, rec.ExamNumber, rec.Name, fc.CourseCode, fc.CourseTitle, fc.CreditUnit,
				fc.OriginalScore, resit, fc.Status, string(rec.Status), rec.Semester, rec.Set,
			}
			if err := setRow(f, row, cells); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow("Sheet1", cell, &values)
}
