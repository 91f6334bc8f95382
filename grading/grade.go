// Package grading holds the pure result computations: component score
// normalization, the grade-point map, GPA/CGPA aggregation and the student
// status classifier. Nothing here touches a spreadsheet or the filesystem.
package grading

// GradePoint converts a 0-100 course score to its grade point. The map is
// fixed by the examining body and is not configurable.
func GradePoint(score float64) float64 {
	switch {
	case score >= 70:
		return 5.0 // A
	case score >= 60:
		return 4.0 // B
	case score >= 50:
		return 3.0 // C
	case score >= 45:
		return 2.0 // D
	case score >= 40:
		return 1.0 // E
	default:
		return 0.0 // F
	}
}

// GradeLetter converts a 0-100 course score to its letter grade.
func GradeLetter(score float64) string {
	switch {
	case score >= 70:
		return "A"
	case score >= 60:
		return "B"
	case score >= 50:
		return "C"
	case score >= 45:
		return "D"
	case score >= 40:
		return "E"
	default:
		return "F"
	}
}
