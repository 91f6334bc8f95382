package models

// Course represents one catalog entry for a semester.
type Course struct {
	Code       string `db:"course_code" json:"course_code"`
	Title      string `db:"course_title" json:"course_title"`
	CreditUnit int    `db:"credit_unit" json:"credit_unit"`
	Semester   string `db:"semester" json:"semester"`
}
