// Package process runs the semester intake pipeline: it merges the raw CA,
// OBJ and EXAM component sheets into per-student composite scores, applies
// the threshold upgrade rule, filters withdrawn students, and produces the
// sorted semester sheet with GPA and CGPA aggregates.
package process

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/grading"
	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/tracker"
)

// Component sheet names accepted in a raw results workbook.
const (
	SheetCA   = "CA"
	SheetObj  = "OBJ"
	SheetExam = "EXAM"
)

var nameHeaderNames = []string{
	"NAME", "NAMES", "FULL NAME", "STUDENT NAME", "CANDIDATE NAME",
}

var codeShape = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3}$`)

// Components holds one student's three raw component scores for one course.
// An absent component stays zero-valued and scores as zero.
type Components struct {
	CA   grading.RawScore
	Obj  grading.RawScore
	Exam grading.RawScore
}

// Student is one merged intake row. A student present on any component sheet
// gets a row; components from sheets that miss the student stay absent.
type Student struct {
	ExamNumber string
	Name       string
	Components map[string]*Components // by course code
}

// SkippedSheet records a component sheet the intake could not use.
type SkippedSheet struct {
	Name string
	Err  error
}

// Intake is the outer merge of the component sheets, in first-seen student
// order.
type Intake struct {
	Students []*Student
	Skipped  []SkippedSheet

	index map[string]*Student
}

func (in *Intake) student(examNo, name string) *Student {
	key := tracker.NormalizeExamNumber(examNo)
	if s, ok := in.index[key]; ok {
		if s.Name == "" && name != "" {
			s.Name = name
		}
		return s
	}
	s := &Student{
		ExamNumber: key,
		Name:       name,
		Components: make(map[string]*Components),
	}
	in.index[key] = s
	in.Students = append(in.Students, s)
	return s
}

func (s *Student) components(code string) *Components {
	c, ok := s.Components[code]
	if !ok {
		c = &Components{}
		s.Components[code] = c
	}
	return c
}

// LoadIntake merges a raw workbook's CA, OBJ and EXAM sheets keyed by
// normalized exam number. Sheets without an exam-number column are skipped
// with a MissingColumnError and the rest of the workbook still loads.
func LoadIntake(f *excelize.File, sc *catalog.SemesterCourses) *Intake {
	in := &Intake{index: make(map[string]*Student)}
	matcher := catalog.NewMatcher(sc)

	for _, kind := range []string{SheetCA, SheetObj, SheetExam} {
		sheetName := findComponentSheet(f, kind)
		if sheetName == "" {
			log.Printf("intake: workbook has no %s sheet, components default to zero", kind)
			continue
		}
		if err := in.mergeSheet(f, sheetName, kind, sc, matcher); err != nil {
			log.Printf("intake: skipping sheet %s: %v", sheetName, err)
			in.Skipped = append(in.Skipped, SkippedSheet{Name: sheetName, Err: err})
		}
	}
	return in
}

func findComponentSheet(f *excelize.File, kind string) string {
	for _, name := range f.GetSheetList() {
		clean := strings.ToUpper(strings.TrimSpace(name))
		if clean == kind || strings.HasPrefix(clean, kind+" ") {
			return name
		}
	}
	return ""
}

func (in *Intake) mergeSheet(f *excelize.File, sheetName, kind string, sc *catalog.SemesterCourses, matcher *catalog.Matcher) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}

	headerIdx, header := findComponentHeader(rows)
	if headerIdx < 0 {
		return &MissingColumnError{Sheet: sheetName, Column: "exam number"}
	}

	examCol, nameCol := -1, -1
	courseCols := make(map[int]string)
	for i, cell := range header {
		clean := strings.ToUpper(strings.TrimSpace(cell))
		switch {
		case clean == "" || clean == "S/N" || clean == "SN":
			continue
		case mastersheet.IsExamNumberHeader(clean):
			examCol = i
		case isNameHeader(clean):
			nameCol = i
		default:
			course, err := matcher.Resolve(cell)
			if err != nil {
				if codeShape.MatchString(clean) {
					course = catalog.FallbackCourse(clean, sc.Key)
				} else {
					log.Printf("intake: %s column %q not a known course, dropped", sheetName, cell)
					continue
				}
			}
			courseCols[i] = course.Code
		}
	}
	if examCol < 0 {
		return &MissingColumnError{Sheet: sheetName, Column: "exam number"}
	}

	for _, row := range rows[headerIdx+1:] {
		examNo := tracker.NormalizeExamNumber(cellAt(row, examCol))
		if examNo == "" || examNo == "NAN" || examNo == "NONE" {
			continue
		}
		name := strings.TrimSpace(cellAt(row, nameCol))
		student := in.student(examNo, name)

		for col, code := range courseCols {
			value, ok := parseComponentScore(cellAt(row, col))
			if !ok {
				continue
			}
			comp := student.components(code)
			raw := grading.RawScore{Value: value, Present: true}
			switch kind {
			case SheetCA:
				comp.CA = raw
			case SheetObj:
				comp.Obj = raw
			case SheetExam:
				comp.Exam = raw
			}
		}
	}
	return nil
}

func findComponentHeader(rows [][]string) (int, []string) {
	for i, row := range rows {
		for _, cell := range row {
			if mastersheet.IsExamNumberHeader(strings.ToUpper(strings.TrimSpace(cell))) {
				return i, row
			}
		}
	}
	return -1, nil
}

func isNameHeader(clean string) bool {
	for _, h := range nameHeaderNames {
		if clean == h {
			return true
		}
	}
	return false
}

func parseComponentScore(raw string) (float64, bool) {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	if clean == "" || clean == "NAN" || clean == "NONE" || clean == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
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
