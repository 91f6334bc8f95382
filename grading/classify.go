package grading

import "github.com/mtechcomputers/examresults/models"

// Classify assigns the semester status from GPA and the failed credit-unit
// share. The withdrawal check runs before the GPA branches: failing more
// than 45% of registered credit units withdraws the student regardless of
// GPA. The branch order is load-bearing; do not reorder.
func Classify(gpa float64, cuFailed, cuTotal int) models.Status {
	if cuFailed == 0 {
		return models.StatusPass
	}
	failedPct := 0.0
	if cuTotal > 0 {
		failedPct = float64(cuFailed) / float64(cuTotal) * 100
	}
	switch {
	case failedPct > 45:
		return models.StatusWithdrawn
	case gpa >= 2.0:
		return models.StatusCarryover
	default:
		return models.StatusProbation
	}
}
