package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcomputers/examresults/models"
)

func testSemester() *SemesterCourses {
	sc := &SemesterCourses{
		Key:    "ND-FIRST-YEAR-FIRST-SEMESTER",
		ByCode: make(map[string]models.Course),
	}
	for _, c := range []models.Course{
		{Code: "NUR101", Title: "Foundations of Nursing I", CreditUnit: 4},
		{Code: "NUR102", Title: "Anatomy and Physiology I", CreditUnit: 3},
		{Code: "GNS101", Title: "Communication in English", CreditUnit: 2},
		{Code: "EED216", Title: "Entrepreneurship Development", CreditUnit: 2},
	} {
		c.Semester = sc.Key
		sc.ByCode[c.Code] = c
		sc.Codes = append(sc.Codes, c.Code)
	}
	return sc
}

func TestResolveExactCode(t *testing.T) {
	m := NewMatcher(testSemester())

	for _, raw := range []string{"NUR101", "nur101", " NUR 101 ", "NUR-101"} {
		course, err := m.Resolve(raw)
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, "NUR101", course.Code)
	}
}

func TestResolveExactTitle(t *testing.T) {
	m := NewMatcher(testSemester())

	course, err := m.Resolve("Communication in English")
	require.NoError(t, err)
	assert.Equal(t, "GNS101", course.Code)
}

func TestResolvePrefixVariants(t *testing.T) {
	m := NewMatcher(testSemester())

	// Prefix present in catalog, absent in the raw header.
	course, err := m.Resolve("ND-NUR102")
	require.NoError(t, err)
	assert.Equal(t, "NUR102", course.Code)
}

func TestResolveNumericResidue(t *testing.T) {
	m := NewMatcher(testSemester())

	// "216" belongs to exactly one course.
	course, err := m.Resolve("216")
	require.NoError(t, err)
	assert.Equal(t, "EED216", course.Code)

	// "101" is ambiguous (NUR101, GNS101): residue matching must not guess.
	_, err = m.Resolve("101")
	assert.Error(t, err)
}

func TestResolveFuzzyTitle(t *testing.T) {
	m := NewMatcher(testSemester())

	// Typo and abbreviation repaired by normalization, then token overlap.
	course, err := m.Resolve("Foundation of Nsg I")
	require.NoError(t, err)
	assert.Equal(t, "NUR101", course.Code)

	course, err = m.Resolve("ANATOMY & PHYSIOLOGY")
	require.NoError(t, err)
	assert.Equal(t, "NUR102", course.Code)
}

func TestResolveMiss(t *testing.T) {
	m := NewMatcher(testSemester())

	_, err := m.Resolve("BASKET WEAVING")
	var matchErr *MatchError
	require.ErrorAs(t, err, &matchErr)
	assert.Equal(t, "BASKET WEAVING", matchErr.Raw)

	fb := FallbackCourse("XYZ999", m.courses.Key)
	assert.Equal(t, FallbackCreditUnit, fb.CreditUnit)
	assert.Equal(t, "XYZ999 (Title Not Found)", fb.Title)
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("ABC", "ABC"))
	assert.Equal(t, 1, levenshteinDistance("ABC", "ABD"))
	assert.Equal(t, 3, levenshteinDistance("", "ABC"))
}
