package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mtechcomputers/examresults/models"
)

// codePrefixes are the department prefixes that raw headers and resit codes
// gain or lose between submissions. Kept as data, not branching code.
var codePrefixes = []string{"ND-", "ND", "BN-", "BN", "BM-", "BM", "NUR", "NUS", "GNS", "EED", "COM"}

// titleSubstitutions repairs recurring typos and abbreviations seen in raw
// column headers before any matching runs.
var titleSubstitutions = map[string]string{
	"coomunication": "communication",
	"communciation": "communication",
	"nsg":           "nursing",
	"foundations":   "foundation",
}

// fuzzyMatchThreshold is the minimum similarity ratio for the edit-distance
// fallback. Below it the matcher reports a miss rather than guessing.
const fuzzyMatchThreshold = 0.6

// MatchError reports that no catalog entry resolves for a raw identifier.
// Callers degrade: FallbackCourse supplies a default credit unit and a
// marked title, and processing continues.
type MatchError struct {
	Raw      string
	Semester string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("no course match for %q in %s", e.Raw, e.Semester)
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9 ]+`)
var spaces = regexp.MustCompile(`\s+`)
var digits = regexp.MustCompile(`[0-9]+`)

// Normalize uppercases, strips punctuation and collapses whitespace. It is
// applied to both sides of every comparison in the matcher.
func Normalize(s string) string {
	up := strings.ToUpper(strings.TrimSpace(s))
	for old, sub := range titleSubstitutions {
		up = strings.ReplaceAll(up, strings.ToUpper(old), strings.ToUpper(sub))
	}
	up = nonAlnum.ReplaceAllString(up, "")
	return spaces.ReplaceAllString(up, "")
}

// NormalizeWords is Normalize but keeping single spaces, for token overlap.
func NormalizeWords(s string) string {
	up := strings.ToUpper(strings.TrimSpace(s))
	for old, sub := range titleSubstitutions {
		up = strings.ReplaceAll(up, strings.ToUpper(old), strings.ToUpper(sub))
	}
	up = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(up)
	up = nonAlnum.ReplaceAllString(up, "")
	return spaces.ReplaceAllString(up, " ")
}

// Matcher resolves raw course identifiers against one semester's catalog.
type Matcher struct {
	courses   *SemesterCourses
	byNorm    map[string]string // normalized code -> code
	byTitle   map[string]string // normalized title -> code
	byResidue map[string]string // numeric residue -> code, ambiguous residues removed
}

// NewMatcher indexes a semester's courses for resolution.
func NewMatcher(sc *SemesterCourses) *Matcher {
	m := &Matcher{
		courses:   sc,
		byNorm:    make(map[string]string),
		byTitle:   make(map[string]string),
		byResidue: make(map[string]string),
	}
	ambiguous := make(map[string]bool)
	for _, code := range sc.Codes {
		course := sc.ByCode[code]
		m.byNorm[Normalize(code)] = code
		m.byTitle[Normalize(course.Title)] = code

		if res := digits.FindString(code); res != "" {
			if _, dup := m.byResidue[res]; dup {
				ambiguous[res] = true
			} else {
				m.byResidue[res] = code
			}
		}
	}
	for res := range ambiguous {
		delete(m.byResidue, res)
	}
	return m
}

// Resolve maps a raw column header or resit course code to its catalog
// entry. Resolution order: exact normalized code or title, prefix variants,
// numeric residue, fuzzy title match. A miss returns a *MatchError.
func (m *Matcher) Resolve(raw string) (models.Course, error) {
	norm := Normalize(raw)
	if norm == "" {
		return models.Course{}, &MatchError{Raw: raw, Semester: m.courses.Key}
	}

	// 1. Exact normalized match against codes and titles.
	if code, ok := m.byNorm[norm]; ok {
		return m.courses.ByCode[code], nil
	}
	if code, ok := m.byTitle[norm]; ok {
		return m.courses.ByCode[code], nil
	}

	// 2. Prefix added/removed variants. A digit-only input skips this step:
	// prepending a prefix to a bare residue would pick whichever prefixed
	// code comes first instead of letting the residue index refuse an
	// ambiguous number.
	if digits.FindString(norm) != norm {
		for _, prefix := range codePrefixes {
			p := Normalize(prefix)
			if p == "" {
				continue
			}
			if code, ok := m.byNorm[p+norm]; ok {
				return m.courses.ByCode[code], nil
			}
			if rest, found := strings.CutPrefix(norm, p); found {
				if code, ok := m.byNorm[rest]; ok {
					return m.courses.ByCode[code], nil
				}
			}
		}
	}

	// 3. Numeric residue: "101" resolves when exactly one course carries it.
	if res := digits.FindString(norm); res != "" {
		if code, ok := m.byResidue[res]; ok {
			return m.courses.ByCode[code], nil
		}
	}

	// 4. Fuzzy title match: token overlap first, edit distance as the last
	// resort, both behind the documented threshold.
	if code, ok := m.fuzzyTitleMatch(raw); ok {
		return m.courses.ByCode[code], nil
	}

	return models.Course{}, &MatchError{Raw: raw, Semester: m.courses.Key}
}

func (m *Matcher) fuzzyTitleMatch(raw string) (string, bool) {
	rawWords := tokenSet(NormalizeWords(raw))
	if len(rawWords) == 0 {
		return "", false
	}

	bestCode := ""
	bestScore := 0
	for _, code := range m.courses.Codes {
		titleWords := tokenSet(NormalizeWords(m.courses.ByCode[code].Title))
		score := 0
		for w := range rawWords {
			if titleWords[w] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestCode = code
		}
	}
	if bestScore >= 2 {
		return bestCode, true
	}

	norm := Normalize(raw)
	bestCode = ""
	bestRatio := 0.0
	for _, code := range m.courses.Codes {
		ratio := similarity(norm, Normalize(m.courses.ByCode[code].Title))
		if ratio > bestRatio {
			bestRatio = ratio
			bestCode = code
		}
	}
	if bestRatio >= fuzzyMatchThreshold {
		return bestCode, true
	}
	return "", false
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if len(w) > 1 {
			set[w] = true
		}
	}
	return set
}

// FallbackCourse is the degraded catalog entry used after a MatchError.
func FallbackCourse(code, semester string) models.Course {
	clean := strings.ToUpper(strings.TrimSpace(code))
	return models.Course{
		Code:       clean,
		Title:      fmt.Sprintf("%s (Title Not Found)", clean),
		CreditUnit: FallbackCreditUnit,
		Semester:   semester,
	}
}

// similarity is 1 - levenshtein/maxlen, in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
