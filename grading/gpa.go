package grading

import (
	"math"
	"sort"
)

// SemesterStats are the derived aggregates for one student's semester,
// recomputable at any time from the current course scores.
type SemesterStats struct {
	TCPE          float64
	CUPassed      int
	CUFailed      int
	TotalCU       int
	GPA           float64
	Average       float64
	FailedCourses []string
}

// ComputeStats derives TCPE, credit-unit tallies, GPA and the failed-course
// list from final course scores. Courses absent from scores count as zero;
// a registered course is never dropped from the denominator.
func ComputeStats(scores map[string]float64, units map[string]int, passThreshold float64) SemesterStats {
	var stats SemesterStats
	var sum float64
	var n int

	for code, cu := range units {
		score := scores[code]
		gp := GradePoint(score)
		stats.TCPE += gp * float64(cu)
		stats.TotalCU += cu
		if score >= passThreshold {
			stats.CUPassed += cu
		} else {
			stats.CUFailed += cu
			stats.FailedCourses = append(stats.FailedCourses, code)
		}
		sum += score
		n++
	}
	sort.Strings(stats.FailedCourses)

	if stats.TotalCU > 0 {
		stats.GPA = round2(stats.TCPE / float64(stats.TotalCU))
	}
	if n > 0 {
		stats.Average = math.Round(sum / float64(n))
	}
	stats.TCPE = round1(stats.TCPE)
	return stats
}

// SemesterWeight is one (GPA, total CU) pair in a student's history.
type SemesterWeight struct {
	GPA float64
	CU  int
}

// CGPA computes the cumulative GPA as the credit-unit-weighted mean over the
// full semester sequence, current semester included. It deliberately takes
// the whole sequence rather than a previously stored CGPA so rounding error
// never compounds.
func CGPA(history []SemesterWeight) float64 {
	var points float64
	var credits int
	for _, h := range history {
		points += h.GPA * float64(h.CU)
		credits += h.CU
	}
	if credits == 0 {
		return 0
	}
	return round2(points / float64(credits))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
