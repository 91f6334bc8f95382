package mastersheet

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/models"
)

// courseCodePattern recognizes course-code column headers (NUR101, GNS111,
// EED216...) in sheets whose catalog entry is incomplete.
var courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3}$`)

// examHeaderNames are the accepted spellings of the exam-number column.
var examHeaderNames = []string{
	"EXAM NUMBER", "EXAMS NUMBER", "EXAM NO", "EXAMS NO",
	"REG. NO", "REG NO", "REGISTRATION NUMBER", "MAT NO", "STUDENT ID",
}

// ReadSheet parses one semester sheet back into its in-memory form. Credit
// units come from the catalog through the matcher; unmatched course columns
// degrade to the fallback credit unit.
func ReadSheet(f *excelize.File, sheetName string, sc *catalog.SemesterCourses, passThreshold float64) (*Sheet, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheetName, err)
	}

	hdrIdx, header := findHeaderRow(rows)
	if hdrIdx < 0 {
		return nil, fmt.Errorf("sheet %s: no EXAM NUMBER header row found", sheetName)
	}

	examCol, nameCol := -1, -1
	var courses []models.Course
	courseCols := make(map[int]string)
	trail := make(map[string]int)

	matcher := catalog.NewMatcher(sc)
	for i, h := range header {
		clean := strings.ToUpper(strings.TrimSpace(h))
		switch {
		case clean == "" || clean == "S/N":
			continue
		case IsExamNumberHeader(clean):
			examCol = i
		case clean == "NAME":
			nameCol = i
		case isTrailHeader(clean):
			trail[clean] = i
		default:
			course, err := matcher.Resolve(h)
			if err != nil {
				var matchErr *catalog.MatchError
				if errors.As(err, &matchErr) && courseCodePattern.MatchString(clean) {
					log.Printf("mastersheet: %v, using fallback credit unit %d", matchErr, catalog.FallbackCreditUnit)
					course = catalog.FallbackCourse(clean, sc.Key)
				} else {
					continue
				}
			}
			if _, dup := courseCols[i]; !dup {
				courseCols[i] = course.Code
				courses = append(courses, course)
			}
		}
	}
	if examCol < 0 {
		return nil, fmt.Errorf("sheet %s: exam number column not found", sheetName)
	}

	sheet := &Sheet{
		Semester:      sc.Key,
		Set:           parseBannerSet(rows),
		Courses:       courses,
		PassThreshold: passThreshold,
	}

	for _, row := range rows[hdrIdx+1:] {
		examNo := strings.TrimSpace(cellAt(row, examCol))
		if examNo == "" || strings.Contains(strings.ToUpper(examNo), "SUMMARY") {
			break
		}
		rec := &models.SemesterRecord{
			ExamNumber: strings.ToUpper(examNo),
			Name:       strings.TrimSpace(cellAt(row, nameCol)),
			Semester:   sc.Key,
			Scores:     make(map[string]float64),
		}
		for col, code := range courseCols {
			if v, ok := parseScore(cellAt(row, col)); ok {
				rec.Scores[code] = v
			}
		}
		sheet.Records = append(sheet.Records, rec)
	}

	// Derived fields are recomputed rather than trusted from the cells; the
	// stored values may predate a carryover update.
	sheet.Recompute()
	return sheet, nil
}

// parseBannerSet recovers the set name from the banner row written by the
// writer ("<SET> MASTERSHEET - <SEMESTER>").
func parseBannerSet(rows [][]string) string {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ""
	}
	banner := rows[0][0]
	if idx := strings.Index(banner, " MASTERSHEET"); idx > 0 {
		return strings.TrimSpace(banner[:idx])
	}
	return ""
}

func findHeaderRow(rows [][]string) (int, []string) {
	for i, row := range rows {
		for _, cell := range row {
			if IsExamNumberHeader(strings.ToUpper(strings.TrimSpace(cell))) {
				return i, row
			}
		}
	}
	return -1, nil
}

// IsExamNumberHeader reports whether an upper-cased, trimmed header cell is
// one of the accepted exam-number column spellings.
func IsExamNumberHeader(clean string) bool {
	for _, h := range examHeaderNames {
		if clean == h {
			return true
		}
	}
	return false
}

func isTrailHeader(clean string) bool {
	for _, h := range trailColumns {
		if strings.EqualFold(h, clean) {
			return true
		}
	}
	return false
}

func parseScore(raw string) (float64, bool) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
