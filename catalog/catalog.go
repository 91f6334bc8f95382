// Package catalog loads the course catalog workbook and resolves raw course
// identifiers (column headers, resit codes) to canonical catalog entries.
package catalog

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/models"
)

// FallbackCreditUnit is assumed when a course cannot be resolved against the
// catalog. Processing degrades rather than aborting.
const FallbackCreditUnit = 2

// SemesterCourses is the catalog slice for one semester sheet.
type SemesterCourses struct {
	Key    string
	Codes  []string // catalog order
	ByCode map[string]models.Course
}

// TotalCredits sums the credit units of every course in the semester.
func (s *SemesterCourses) TotalCredits() int {
	var total int
	for _, c := range s.ByCode {
		total += c.CreditUnit
	}
	return total
}

// Units returns a code -> credit unit map for the semester.
func (s *SemesterCourses) Units() map[string]int {
	units := make(map[string]int, len(s.ByCode))
	for code, c := range s.ByCode {
		units[code] = c.CreditUnit
	}
	return units
}

// Catalog is the full course catalog, one entry per semester sheet, plus a
// flattened global view.
type Catalog struct {
	semesters map[string]*SemesterCourses
	lookup    map[string]string // normalized sheet-name variant -> semester key
	order     []string
}

// New assembles a catalog from prepared semester slices, in the given
// order. Load is the normal path; New exists for callers that already hold
// course data.
func New(semesters ...*SemesterCourses) *Catalog {
	cat := &Catalog{
		semesters: make(map[string]*SemesterCourses),
		lookup:    make(map[string]string),
	}
	for _, sc := range semesters {
		if _, dup := cat.semesters[sc.Key]; dup {
			continue
		}
		cat.semesters[sc.Key] = sc
		cat.order = append(cat.order, sc.Key)
		registerLookupVariants(cat.lookup, sc.Key)
	}
	return cat
}

// Semester returns the catalog slice for a semester key, matching the same
// name variants the loader registered (prefix dropped, separators swapped).
func (c *Catalog) Semester(key string) (*SemesterCourses, bool) {
	if sc, ok := c.semesters[key]; ok {
		return sc, true
	}
	if actual, ok := c.lookup[Normalize(key)]; ok {
		return c.semesters[actual], true
	}
	return nil, false
}

// Semesters returns the semester keys in workbook order.
func (c *Catalog) Semesters() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Global returns every course across all semesters, first occurrence wins.
func (c *Catalog) Global() map[string]models.Course {
	global := make(map[string]models.Course)
	for _, key := range c.order {
		for code, course := range c.semesters[key].ByCode {
			if _, seen := global[code]; !seen {
				global[code] = course
			}
		}
	}
	return global
}

var headerAliases = map[string][]string{
	"code":  {"COURSE CODE", "CODE", "COURSECODE"},
	"title": {"COURSE TITLE", "TITLE", "COURSE NAME", "COURSETITLE"},
	"cu":    {"CU", "CREDIT UNIT", "CREDIT UNITS", "UNIT", "UNITS"},
}

// Load reads the catalog workbook. Sheets missing the expected columns or
// containing no valid rows are skipped with a log line; a workbook yielding
// no courses at all is a fatal misconfiguration.
func Load(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening course catalog %s: %w", path, err)
	}
	defer f.Close()

	cat := &Catalog{
		semesters: make(map[string]*SemesterCourses),
		lookup:    make(map[string]string),
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			log.Printf("catalog: sheet %q has no data rows, skipped", sheet)
			continue
		}

		codeIdx := findHeader(rows[0], headerAliases["code"])
		titleIdx := findHeader(rows[0], headerAliases["title"])
		cuIdx := findHeader(rows[0], headerAliases["cu"])
		if codeIdx < 0 || titleIdx < 0 || cuIdx < 0 {
			log.Printf("catalog: sheet %q missing COURSE CODE/COURSE TITLE/CU columns, skipped", sheet)
			continue
		}

		sc := &SemesterCourses{Key: sheet, ByCode: make(map[string]models.Course)}
		for _, row := range rows[1:] {
			code := strings.TrimSpace(cell(row, codeIdx))
			title := strings.TrimSpace(cell(row, titleIdx))
			if code == "" || title == "" {
				continue
			}
			if strings.Contains(strings.ToUpper(code), "TOTAL") {
				continue
			}
			cu, err := parseCreditUnit(cell(row, cuIdx))
			if err != nil || cu <= 0 {
				continue
			}
			code = strings.ToUpper(code)
			if _, dup := sc.ByCode[code]; dup {
				continue
			}
			sc.ByCode[code] = models.Course{Code: code, Title: title, CreditUnit: cu, Semester: sheet}
			sc.Codes = append(sc.Codes, code)
		}

		if len(sc.Codes) == 0 {
			log.Printf("catalog: sheet %q has no valid rows after cleaning, skipped", sheet)
			continue
		}

		cat.semesters[sheet] = sc
		cat.order = append(cat.order, sheet)
		registerLookupVariants(cat.lookup, sheet)
	}

	if len(cat.semesters) == 0 {
		return nil, fmt.Errorf("no course data loaded from %s", path)
	}
	return cat, nil
}

// registerLookupVariants maps the sheet name and its common spellings
// (program prefix dropped, hyphen/space swapped) to the canonical key.
func registerLookupVariants(lookup map[string]string, sheet string) {
	norm := Normalize(sheet)
	variants := []string{norm}
	for _, prefix := range codePrefixes {
		p := strings.ToUpper(prefix)
		if v, ok := strings.CutPrefix(norm, p); ok {
			variants = append(variants, v)
		}
	}
	for _, v := range variants {
		if _, taken := lookup[v]; !taken {
			lookup[v] = sheet
		}
	}
}

func findHeader(header []string, candidates []string) int {
	for i, h := range header {
		clean := strings.ToUpper(strings.TrimSpace(h))
		for _, c := range candidates {
			if clean == c {
				return i
			}
		}
	}
	return -1
}

func parseCreditUnit(raw string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
