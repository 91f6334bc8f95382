package grading

import "math"

// Raw component maxima. Each component is rescaled to a 0-100 basis before
// weighting.
const (
	CAMax   = 20.0
	ObjMax  = 20.0
	ExamMax = 80.0
)

// Component weighting: 20% continuous assessment, 80% for the average of the
// objective and written exam components.
const (
	caWeight   = 0.2
	examWeight = 0.8
)

// RawScore is one component score as it appeared in the input sheet. A
// missing component stays Present=false and contributes zero.
type RawScore struct {
	Value   float64
	Present bool
}

func pct(raw RawScore, max float64) float64 {
	if !raw.Present {
		return 0
	}
	p := raw.Value / max * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// CompositeScore combines the CA, objective and exam components into one
// final 0-100 course score, rounded to the nearest integer.
func CompositeScore(ca, obj, exam RawScore) float64 {
	total := caWeight*pct(ca, CAMax) + examWeight*(pct(obj, ObjMax)+pct(exam, ExamMax))/2
	total = math.Round(total)
	if total > 100 {
		return 100
	}
	return total
}

// UpgradeScore applies the operator-selected threshold upgrade rule: a score
// in [min, 49] is raised to exactly 50. min of 0 disables the rule. The
// second return reports whether the score was lifted.
func UpgradeScore(score float64, min int) (float64, bool) {
	if min < 45 || min > 49 {
		return score, false
	}
	if score >= float64(min) && score <= 49 {
		return 50, true
	}
	return score, false
}
