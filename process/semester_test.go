package process

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/grading"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/tracker"
)

func TestRunComputesCompositeScoresAndSorts(t *testing.T) {
	res := Run(rawWorkbook(t), testSemesterCourses(), Options{
		Semester:      "ND-FIRST-YEAR-FIRST-SEMESTER",
		Set:           "2024 SET",
		PassThreshold: 50,
	})

	sheet := res.Sheet
	require.Len(t, sheet.Records, 2)

	// Sorted: Adamu passes, so he leads and serials restart at 1.
	adamu := sheet.Records[0]
	assert.Equal(t, "ND/24/001", adamu.ExamNumber)
	assert.Equal(t, 1, adamu.Serial)
	// CA 18/20, OBJ 16/20, EXAM 60/80 -> 0.2*90 + 0.8*(80+75)/2 = 80.
	assert.Equal(t, 80.0, adamu.Scores["NUR101"])
	assert.Equal(t, models.StatusPass, adamu.Status)

	chioma := sheet.Records[1]
	assert.Equal(t, "ND/24/002", chioma.ExamNumber)
	assert.Equal(t, 2, chioma.Serial)
	// No CA sheet entry: CA scores as zero, not an error.
	// OBJ 12/20, EXAM 48/80 -> 0.2*0 + 0.8*(60+60)/2 = 48.
	assert.Equal(t, 48.0, chioma.Scores["NUR101"])
	assert.NotEqual(t, models.StatusPass, chioma.Status)
}

func TestRunAppliesUpgradeRule(t *testing.T) {
	res := Run(rawWorkbook(t), testSemesterCourses(), Options{
		Semester:      "ND-FIRST-YEAR-FIRST-SEMESTER",
		Set:           "2024 SET",
		PassThreshold: 50,
		UpgradeMin:    45,
	})

	chioma := res.Sheet.Find("ND/24/002")
	require.NotNil(t, chioma)
	// 48 sits in [45,49] and lifts to 50; GNS101 lands at 40 and stays.
	assert.Equal(t, 50.0, chioma.Scores["NUR101"])
	assert.Equal(t, 40.0, chioma.Scores["GNS101"])
	assert.Equal(t, 1, res.Sheet.UpgradedScores)
}

func TestRunFiltersPreviouslyWithdrawnStudents(t *testing.T) {
	wt := tracker.NewWithdrawalTracker()
	wt.MarkWithdrawn("ND/24/002", "CHIOMA EZE", "ND-FIRST-YEAR-FIRST-SEMESTER")

	res := Run(rawWorkbook(t), testSemesterCourses(), Options{
		Semester:      "ND-FIRST-YEAR-SECOND-SEMESTER",
		Set:           "2024 SET",
		PassThreshold: 50,
		Withdrawals:   wt,
	})

	require.Len(t, res.Removed, 1)
	assert.Equal(t, "ND/24/002", res.Removed[0].ExamNumber)
	assert.Nil(t, res.Sheet.Find("ND/24/002"))

	hist, ok := wt.History("ND/24/002")
	require.True(t, ok)
	assert.Contains(t, hist.ReappearedSemesters, "ND-FIRST-YEAR-SECOND-SEMESTER")
}

func TestRunMarksNewWithdrawals(t *testing.T) {
	wt := tracker.NewWithdrawalTracker()
	f := rawWorkbookAllFailing(t)

	res := Run(f, testSemesterCourses(), Options{
		Semester:      "ND-FIRST-YEAR-FIRST-SEMESTER",
		Set:           "2024 SET",
		PassThreshold: 50,
		Withdrawals:   wt,
	})

	require.NotEmpty(t, res.Sheet.Records)
	rec := res.Sheet.Records[0]
	assert.Equal(t, models.StatusWithdrawn, rec.Status)
	assert.Equal(t, 1, res.NewlyWithdrawn)
	assert.True(t, wt.IsWithdrawn(rec.ExamNumber))
	// Withdrawn this semester, so the row stays on this sheet.
	require.Len(t, res.Sheet.Records, 1)
}

func TestRunAppliesPreviousHistoryToCGPA(t *testing.T) {
	prev := map[string][]grading.SemesterWeight{
		"ND/24/001": {{GPA: 3.0, CU: 5}},
	}

	res := Run(rawWorkbook(t), testSemesterCourses(), Options{
		Semester:      "ND-FIRST-YEAR-SECOND-SEMESTER",
		Set:           "2024 SET",
		PassThreshold: 50,
		Previous:      prev,
	})

	adamu := res.Sheet.Find("ND/24/001")
	require.NotNil(t, adamu)
	// Weighted over (3.0, 5CU) and the current semester's (GPA, 5CU).
	want := grading.CGPA([]grading.SemesterWeight{
		{GPA: 3.0, CU: 5},
		{GPA: adamu.GPA, CU: adamu.TotalCU},
	})
	assert.Equal(t, want, adamu.CGPA)
	assert.NotEqual(t, adamu.GPA, adamu.CGPA)

	// No history degrades CGPA to the current GPA.
	chioma := res.Sheet.Find("ND/24/002")
	require.NotNil(t, chioma)
	assert.Equal(t, chioma.GPA, chioma.CGPA)
}

func rawWorkbookAllFailing(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	writeComponentSheet(t, f, "EXAM", [][]interface{}{
		{"EXAM NUMBER", "NAME", "NUR101", "GNS101"},
		{"ND/24/009", "SAFIYA ABUBAKAR", 20, 18},
	})
	return f
}

func TestFindSourcePrefersFolderOverZip(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "RESULT_2024_SET_20240901")
	require.NoError(t, os.Mkdir(folder, 0o755))
	zip := filepath.Join(dir, "RESULT_2024_SET_20240820.zip")
	require.NoError(t, os.WriteFile(zip, []byte("x"), 0o644))

	path, isZip, err := FindSource(dir, "2024 SET")
	require.NoError(t, err)
	assert.False(t, isZip)
	assert.Equal(t, folder, path)
}

func TestFindSourceFallsBackToNewestZip(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "RESULT_2024_SET_20240801.zip")
	require.NoError(t, os.WriteFile(older, []byte("x"), 0o644))
	oldTime := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, oldTime, oldTime))
	newer := filepath.Join(dir, "RESULT_2024_SET_20240820.zip")
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0o644))

	path, isZip, err := FindSource(dir, "2024 SET")
	require.NoError(t, err)
	assert.True(t, isZip)
	assert.Equal(t, newer, path)
}

func TestFindSourceReportsMissingSet(t *testing.T) {
	_, _, err := FindSource(t.TempDir(), "1999 SET")
	var notFound *SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "1999 SET", notFound.Set)
}
