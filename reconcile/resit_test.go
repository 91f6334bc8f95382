package reconcile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
)

func testSemesterCourses() *catalog.SemesterCourses {
	sc := &catalog.SemesterCourses{
		Key:    "ND-FIRST-YEAR-FIRST-SEMESTER",
		ByCode: make(map[string]models.Course),
	}
	for _, c := range []models.Course{
		{Code: "NUR101", Title: "Foundations of Nursing I", CreditUnit: 4},
		{Code: "NUR102", Title: "Anatomy and Physiology I", CreditUnit: 3},
		{Code: "GNS101", Title: "Communication in English", CreditUnit: 2},
	} {
		c.Semester = sc.Key
		sc.ByCode[c.Code] = c
		sc.Codes = append(sc.Codes, c.Code)
	}
	return sc
}

func testSheet() *mastersheet.Sheet {
	sc := testSemesterCourses()
	s := &mastersheet.Sheet{
		Semester:      sc.Key,
		Set:           "ND-2024",
		PassThreshold: 50,
	}
	for _, code := range sc.Codes {
		s.Courses = append(s.Courses, sc.ByCode[code])
	}
	s.Records = []*models.SemesterRecord{
		{
			ExamNumber: "ND/2024/001", Name: "ADAMU BELLO", Semester: s.Semester,
			Scores: map[string]float64{"NUR101": 42, "NUR102": 60, "GNS101": 38},
		},
		{
			ExamNumber: "ND/2024/002", Name: "CHIOMA EZE", Semester: s.Semester,
			Scores: map[string]float64{"NUR101": 65, "NUR102": 70, "GNS101": 58},
		},
	}
	s.Recompute()
	return s
}

func TestReconcileAcceptsOnlyFailedOriginals(t *testing.T) {
	sheet := testSheet()
	before := sheet.Find("ND/2024/001").GPA

	out := Reconcile(sheet, []Row{
		{ExamNumber: "ND/2024/001", Scores: map[string]float64{
			"NUR101": 55, // original 42, failed: accepted
			"NUR102": 75, // original 60, passed: rejected
		}},
	})

	assert.Equal(t, 1, out.Accepted)
	assert.Equal(t, 1, out.Rejected)
	require.Contains(t, out.Updates, "ND/2024/001")
	assert.Equal(t, map[string]float64{"NUR101": 55}, out.Updates["ND/2024/001"])

	rec := sheet.Find("ND/2024/001")
	assert.Equal(t, 55.0, rec.Scores["NUR101"])
	assert.Equal(t, 60.0, rec.Scores["NUR102"], "already-passed course untouched")
	assert.NotContains(t, rec.FailedCourses, "NUR101")
	assert.Greater(t, rec.GPA, before, "accepted resit must not decrease GPA")
}

func TestReconcileSubstitutesFailingResitScore(t *testing.T) {
	sheet := testSheet()

	out := Reconcile(sheet, []Row{
		{ExamNumber: "ND/2024/001", Scores: map[string]float64{"GNS101": 45}},
	})

	// The original failed, so the newest sitting is recorded even though it
	// fails again.
	assert.Equal(t, 1, out.Accepted)
	assert.Equal(t, 0, out.Rejected)
	require.Contains(t, out.Updates, "ND/2024/001")
	assert.Equal(t, map[string]float64{"GNS101": 45}, out.Updates["ND/2024/001"])

	rec := sheet.Find("ND/2024/001")
	assert.Equal(t, 45.0, rec.Scores["GNS101"])
	assert.Contains(t, rec.FailedCourses, "GNS101", "still below threshold")
	require.Len(t, out.Students, 1)
	assert.Equal(t, "No improvement in resit", out.Students[0].Remarks)
}

func TestReconcileClearsAllFailuresToPass(t *testing.T) {
	sheet := testSheet()

	out := Reconcile(sheet, []Row{
		{ExamNumber: "ND/2024/001", Scores: map[string]float64{"NUR101": 55, "GNS101": 62}},
	})

	require.Len(t, out.Students, 1)
	so := out.Students[0]
	assert.Equal(t, "All courses passed in resit", so.Remarks)
	assert.Equal(t, models.StatusPass, so.NewStatus)

	rec := sheet.Find("ND/2024/001")
	assert.Equal(t, 0, rec.CUFailed)
	assert.Equal(t, models.StatusPass, rec.Status)
}

func TestReconcilePartialImprovement(t *testing.T) {
	sheet := testSheet()

	out := Reconcile(sheet, []Row{
		{ExamNumber: "ND/2024/001", Scores: map[string]float64{"NUR101": 55, "GNS101": 40}},
	})

	require.Len(t, out.Students, 1)
	assert.Equal(t, "1/2 courses passed in resit", out.Students[0].Remarks)
}

func TestReconcileSkipsUnknownStudent(t *testing.T) {
	sheet := testSheet()

	out := Reconcile(sheet, []Row{
		{ExamNumber: "ND/2024/404", Scores: map[string]float64{"NUR101": 90}},
	})

	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "ND/2024/404", out.Skipped[0].ExamNumber)
	assert.Empty(t, out.Updates)
	assert.Empty(t, out.Students, "no student is fabricated from a resit row")
}

func TestLoadResitFile(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"EXAM NUMBER", "NAME", "NUR101", "Communication in English", "UNKNOWN COURSE ZZZ"},
		{"nd/2024/001", "ADAMU BELLO", 55, 62, 77},
		{"ND/2024/002", "CHIOMA EZE", "", 48, ""},
		{"", "", "", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "resit.xlsx")
	require.NoError(t, f.SaveAs(path))

	matcher := catalog.NewMatcher(testSemesterCourses())
	parsed, err := LoadResitFile(path, matcher)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "ND/2024/001", parsed[0].ExamNumber)
	assert.Equal(t, map[string]float64{"NUR101": 55, "GNS101": 62}, parsed[0].Scores)
	assert.Equal(t, map[string]float64{"GNS101": 48}, parsed[1].Scores)
}
