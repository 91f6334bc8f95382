package carryover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/reconcile"
)

func testSheet() *mastersheet.Sheet {
	s := &mastersheet.Sheet{
		Semester: "ND-FIRST-YEAR-FIRST-SEMESTER",
		Set:      "2024 SET",
		Courses: []models.Course{
			{Code: "NUR101", Title: "FOUNDATION OF NURSING I", CreditUnit: 3},
			{Code: "GNS101", Title: "COMMUNICATION IN ENGLISH", CreditUnit: 2},
			{Code: "BIO101", Title: "ANATOMY I", CreditUnit: 3},
		},
		Records: []*models.SemesterRecord{
			{ExamNumber: "ND/24/001", Name: "ADAMU BELLO",
				Scores: map[string]float64{"NUR101": 72, "GNS101": 65, "BIO101": 58}},
			{ExamNumber: "ND/24/002", Name: "CHIOMA EZE",
				Scores: map[string]float64{"NUR101": 38, "GNS101": 55, "BIO101": 44}},
			{ExamNumber: "ND/24/003", Name: "IBRAHIM MUSA",
				Scores: map[string]float64{"NUR101": 42, "GNS101": 35, "BIO101": 61}},
		},
		PassThreshold: 50,
	}
	s.Recompute()
	return s
}

func TestIdentifyBuildsOneRecordPerFailingStudent(t *testing.T) {
	records := Identify(testSheet())
	require.Len(t, records, 2)

	byExam := make(map[string]models.CarryoverRecord)
	for _, r := range records {
		byExam[r.ExamNumber] = r
	}

	chioma := byExam["ND/24/002"]
	require.Len(t, chioma.FailedCourses, 2)
	assert.Equal(t, "BIO101", chioma.FailedCourses[0].CourseCode)
	assert.Equal(t, "NUR101", chioma.FailedCourses[1].CourseCode)
	assert.Equal(t, 38.0, chioma.FailedCourses[1].OriginalScore)
	assert.Equal(t, "FOUNDATION OF NURSING I", chioma.FailedCourses[1].CourseTitle)
	assert.Equal(t, 3, chioma.FailedCourses[1].CreditUnit)
	assert.Equal(t, models.FailedCourseOpen, chioma.FailedCourses[1].Status)
	assert.Equal(t, "ND-FIRST-YEAR-FIRST-SEMESTER", chioma.Semester)
	assert.Equal(t, "2024 SET", chioma.Set)

	ibrahim := byExam["ND/24/003"]
	require.Len(t, ibrahim.FailedCourses, 2)

	_, ok := byExam["ND/24/001"]
	assert.False(t, ok, "students with no failures must not appear")
}

func TestApplyOutcomeFlipsClearedCoursesAndDropsClearedStudents(t *testing.T) {
	records := Identify(testSheet())

	out := &reconcile.Outcome{Updates: map[string]map[string]float64{
		// Chioma clears both failures; Ibrahim clears one course and fails
		// the other resit, which is still recorded.
		"ND/24/002": {"NUR101": 55, "BIO101": 52},
		"ND/24/003": {"GNS101": 60, "NUR101": 46},
	}}

	kept := ApplyOutcome(records, out, 50)
	require.Len(t, kept, 1)
	assert.Equal(t, "ND/24/003", kept[0].ExamNumber)

	var gns, nur *models.FailedCourse
	for i := range kept[0].FailedCourses {
		switch kept[0].FailedCourses[i].CourseCode {
		case "GNS101":
			gns = &kept[0].FailedCourses[i]
		case "NUR101":
			nur = &kept[0].FailedCourses[i]
		}
	}
	require.NotNil(t, gns)
	require.NotNil(t, nur)
	assert.Equal(t, models.FailedCoursePassed, gns.Status)
	require.NotNil(t, gns.ResitScore)
	assert.Equal(t, 60.0, *gns.ResitScore)
	// Failed the resit: latest attempt on file, course stays open.
	assert.Equal(t, models.FailedCourseOpen, nur.Status)
	require.NotNil(t, nur.ResitScore)
	assert.Equal(t, 46.0, *nur.ResitScore)

	require.Len(t, kept[0].Outstanding(), 1)
}

func TestApplyOutcomeIsCaseInsensitiveOnExamNumber(t *testing.T) {
	records := Identify(testSheet())
	out := &reconcile.Outcome{Updates: map[string]map[string]float64{
		"nd/24/002": {"NUR101": 55, "BIO101": 52},
	}}
	kept := ApplyOutcome(records, out, 50)
	for _, r := range kept {
		assert.NotEqual(t, "ND/24/002", r.ExamNumber)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := Identify(testSheet())

	jsonPath, xlsxPath, err := Save(dir, "2024 SET", "ND-FIRST-YEAR-FIRST-SEMESTER", records)
	require.NoError(t, err)
	assert.FileExists(t, jsonPath)
	assert.FileExists(t, xlsxPath)

	loaded, err := Load(dir, "2024 SET", "ND-FIRST-YEAR-FIRST-SEMESTER")
	require.NoError(t, err)
	require.Len(t, loaded, len(records))
	assert.Equal(t, records[0].ExamNumber, loaded[0].ExamNumber)
	assert.Equal(t, records[0].FailedCourses, loaded[0].FailedCourses)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), "2024 SET", "ND-FIRST-YEAR-FIRST-SEMESTER")
	assert.Error(t, err)
}
