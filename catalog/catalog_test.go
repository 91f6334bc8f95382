package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCatalogFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "ND-FIRST-YEAR-FIRST-SEMESTER"
	require.NoError(t, f.SetSheetName("Sheet1", sheet))

	rows := [][]interface{}{
		{"COURSE CODE", "COURSE TITLE", "CU"},
		{"NUR101", "Foundations of Nursing I", 4},
		{"NUR102", "Anatomy and Physiology I", 3},
		{"GNS101", "Communication in English", 2},
		{"", "", ""},
		{"TOTAL", "", 9},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	second := "ND-FIRST-YEAR-SECOND-SEMESTER"
	_, err := f.NewSheet(second)
	require.NoError(t, err)
	rows = [][]interface{}{
		{"COURSE CODE", "COURSE TITLE", "CU"},
		{"NUR103", "Foundations of Nursing II", 4},
		{"NUR104", "Anatomy and Physiology II", 3},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(second, cell, &row))
	}

	// A junk sheet that must be skipped, not fatal.
	_, err = f.NewSheet("NOTES")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("NOTES", "A1", "internal remarks"))

	path := filepath.Join(t.TempDir(), "course-code-creditUnit.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	cat, err := Load(writeCatalogFixture(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"ND-FIRST-YEAR-FIRST-SEMESTER", "ND-FIRST-YEAR-SECOND-SEMESTER"}, cat.Semesters())

	sc, ok := cat.Semester("ND-FIRST-YEAR-FIRST-SEMESTER")
	require.True(t, ok)
	assert.Equal(t, []string{"NUR101", "NUR102", "GNS101"}, sc.Codes)
	assert.Equal(t, 9, sc.TotalCredits())

	course := sc.ByCode["NUR101"]
	assert.Equal(t, "Foundations of Nursing I", course.Title)
	assert.Equal(t, 4, course.CreditUnit)

	// TOTAL marker rows and blank rows are dropped.
	_, hasTotal := sc.ByCode["TOTAL"]
	assert.False(t, hasTotal)

	global := cat.Global()
	assert.Len(t, global, 5)
}

func TestSemesterLookupVariants(t *testing.T) {
	cat, err := Load(writeCatalogFixture(t))
	require.NoError(t, err)

	for _, variant := range []string{
		"nd-first-year-first-semester",
		"FIRST-YEAR-FIRST-SEMESTER",
		"FIRST YEAR FIRST SEMESTER",
	} {
		sc, ok := cat.Semester(variant)
		require.True(t, ok, "variant %q", variant)
		assert.Equal(t, "ND-FIRST-YEAR-FIRST-SEMESTER", sc.Key)
	}

	_, ok := cat.Semester("ND-THIRD-YEAR-FIRST-SEMESTER")
	assert.False(t, ok)
}

func TestLoadEmptyCatalogIsFatal(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "nothing useful"))
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err := Load(path)
	assert.Error(t, err)
}
