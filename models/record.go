package models

import "time"

// SemesterRecord is one student's computed result for one semester. Scores
// are final 0-100 course scores keyed by canonical course code.
type SemesterRecord struct {
	Serial     int    `db:"serial" json:"serial"`
	ExamNumber string `db:"exam_number" json:"exam_number"`
	Name       string `db:"name" json:"name"`
	Semester   string `db:"semester" json:"semester"`
	Set        string `db:"set_name" json:"set"`

	Scores map[string]float64 `db:"-" json:"scores"`

	CUPassed int     `db:"cu_passed" json:"cu_passed"`
	CUFailed int     `db:"cu_failed" json:"cu_failed"`
	TotalCU  int     `db:"total_cu" json:"total_cu"`
	TCPE     float64 `db:"tcpe" json:"tcpe"`
	GPA      float64 `db:"gpa" json:"gpa"`
	CGPA     float64 `db:"cgpa" json:"cgpa"`
	Average  float64 `db:"average" json:"average"`

	Status        Status   `db:"status" json:"status"`
	FailedCourses []string `db:"-" json:"failed_courses"`
	Remarks       string   `db:"remarks" json:"remarks"`
}

// WithdrawalRecord is the permanent registry entry for a withdrawn student.
// ReappearedSemesters is append-only; an entry there is a data-integrity
// alert that needs human review.
type WithdrawalRecord struct {
	ExamNumber          string    `db:"exam_number" json:"exam_number"`
	Name                string    `db:"name" json:"name"`
	WithdrawnSemester   string    `db:"withdrawn_semester" json:"withdrawn_semester"`
	WithdrawnDate       time.Time `db:"withdrawn_date" json:"withdrawn_date"`
	ReappearedSemesters []string  `db:"-" json:"reappeared_semesters"`
}

// FailedCourse is one failed course inside a carryover record. ResitScore is
// nil until a resit submission for the course has been reconciled.
type FailedCourse struct {
	CourseCode    string   `db:"course_code" json:"course_code"`
	CourseTitle   string   `db:"course_title" json:"course_title"`
	CreditUnit    int      `db:"credit_unit" json:"credit_unit"`
	OriginalScore float64  `db:"original_score" json:"original_score"`
	ResitScore    *float64 `db:"resit_score" json:"resit_score,omitempty"`
	Status        string   `db:"status" json:"status"`
}

// Carryover course status values.
const (
	FailedCourseOpen   = "failed"
	FailedCoursePassed = "passed"
)

// CarryoverRecord tracks one student's outstanding failed courses for one
// semester. One record per (student, semester).
type CarryoverRecord struct {
	ExamNumber    string         `db:"exam_number" json:"exam_number"`
	Name          string         `db:"name" json:"name"`
	FailedCourses []FailedCourse `db:"-" json:"failed_courses"`
	Semester      string         `db:"semester" json:"semester"`
	Set           string         `db:"set_name" json:"set"`
	Status        Status         `db:"status" json:"status"`
}

// Outstanding returns the failed courses not yet cleared by a resit.
func (c *CarryoverRecord) Outstanding() []FailedCourse {
	var open []FailedCourse
	for _, fc := range c.FailedCourses {
		if fc.Status != FailedCoursePassed {
			open = append(open, fc)
		}
	}
	return open
}
