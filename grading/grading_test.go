package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcomputers/examresults/models"
)

func TestGradePointMap(t *testing.T) {
	cases := []struct {
		score float64
		want  float64
	}{
		{72, 5.0},
		{70, 5.0},
		{69.9, 4.0},
		{60, 4.0},
		{55, 3.0},
		{50, 3.0},
		{49, 2.0},
		{45, 2.0},
		{44, 1.0},
		{40, 1.0},
		{39, 0.0},
		{0, 0.0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GradePoint(c.score), "score %.1f", c.score)
	}
}

func TestCompositeScore(t *testing.T) {
	// CA=18/20, OBJ=16/20, EXAM=60/80 -> 90%, 80%, 75% -> 18 + 62 = 80
	got := CompositeScore(
		RawScore{Value: 18, Present: true},
		RawScore{Value: 16, Present: true},
		RawScore{Value: 60, Present: true},
	)
	assert.Equal(t, 80.0, got)
}

func TestCompositeScoreMissingComponentsDefaultToZero(t *testing.T) {
	// Only CA present: 0.2 * 100 = 20
	got := CompositeScore(RawScore{Value: 20, Present: true}, RawScore{}, RawScore{})
	assert.Equal(t, 20.0, got)

	assert.Equal(t, 0.0, CompositeScore(RawScore{}, RawScore{}, RawScore{}))
}

func TestCompositeScoreClipsOverflow(t *testing.T) {
	got := CompositeScore(
		RawScore{Value: 25, Present: true},
		RawScore{Value: 30, Present: true},
		RawScore{Value: 95, Present: true},
	)
	assert.Equal(t, 100.0, got)
}

func TestUpgradeScore(t *testing.T) {
	got, up := UpgradeScore(48, 47)
	assert.True(t, up)
	assert.Equal(t, 50.0, got)

	got, up = UpgradeScore(44, 47)
	assert.False(t, up)
	assert.Equal(t, 44.0, got)

	got, up = UpgradeScore(49, 45)
	assert.True(t, up)
	assert.Equal(t, 50.0, got)

	got, up = UpgradeScore(50, 45)
	assert.False(t, up)
	assert.Equal(t, 50.0, got)

	// disabled
	got, up = UpgradeScore(47, 0)
	assert.False(t, up)
	assert.Equal(t, 47.0, got)
}

func TestComputeStats(t *testing.T) {
	units := map[string]int{"NUR101": 3, "NUR102": 3, "NUR103": 3, "GNS101": 3}
	scores := map[string]float64{"NUR101": 72, "NUR102": 55, "NUR103": 38, "GNS101": 44}

	stats := ComputeStats(scores, units, 50)

	// grade points 5, 3, 0, 1 -> TCPE 27
	assert.Equal(t, 27.0, stats.TCPE)
	assert.Equal(t, 12, stats.TotalCU)
	assert.Equal(t, 6, stats.CUPassed)
	assert.Equal(t, 6, stats.CUFailed)
	assert.Equal(t, 2.25, stats.GPA)
	assert.Equal(t, []string{"GNS101", "NUR103"}, stats.FailedCourses)
	assert.Equal(t, stats.TotalCU, stats.CUPassed+stats.CUFailed)
}

func TestComputeStatsMissingScoreCountsAsZero(t *testing.T) {
	units := map[string]int{"NUR101": 2, "NUR102": 4}
	scores := map[string]float64{"NUR101": 60}

	stats := ComputeStats(scores, units, 50)
	assert.Equal(t, 6, stats.TotalCU)
	assert.Equal(t, 2, stats.CUPassed)
	assert.Equal(t, 4, stats.CUFailed)
	assert.Equal(t, []string{"NUR102"}, stats.FailedCourses)
}

func TestCGPA(t *testing.T) {
	// Single semester degenerates to the semester GPA.
	assert.Equal(t, 3.2, CGPA([]SemesterWeight{{GPA: 3.2, CU: 30}}))

	got := CGPA([]SemesterWeight{
		{GPA: 3.0, CU: 30},
		{GPA: 4.0, CU: 20},
	})
	// (3*30 + 4*20) / 50 = 3.4
	assert.Equal(t, 3.4, got)

	assert.Equal(t, 0.0, CGPA(nil))
}

func TestCGPABounds(t *testing.T) {
	for _, h := range [][]SemesterWeight{
		{{GPA: 0, CU: 24}, {GPA: 0, CU: 24}},
		{{GPA: 5, CU: 24}, {GPA: 5, CU: 24}},
		{{GPA: 2.5, CU: 24}, {GPA: 4.75, CU: 18}},
	} {
		c := CGPA(h)
		require.GreaterOrEqual(t, c, 0.0)
		require.LessOrEqual(t, c, 5.0)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		gpa      float64
		cuFailed int
		cuTotal  int
		want     models.Status
	}{
		{"no failures", 4.5, 0, 24, models.StatusPass},
		{"no failures low gpa", 1.9, 0, 24, models.StatusPass},
		{"carryover", 2.5, 6, 24, models.StatusCarryover},
		{"probation", 1.5, 6, 24, models.StatusProbation},
		{"withdrawn dominates gpa", 2.5, 18, 24, models.StatusWithdrawn},
		{"withdrawn low gpa", 0.5, 24, 24, models.StatusWithdrawn},
		{"boundary 45 pct is carryover", 2.0, 45, 100, models.StatusCarryover},
		{"boundary just over 45 pct", 2.0, 46, 100, models.StatusWithdrawn},
		{"boundary gpa 2.0", 2.0, 9, 24, models.StatusCarryover},
		{"boundary gpa below 2.0", 1.99, 9, 24, models.StatusProbation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.gpa, c.cuFailed, c.cuTotal))
		})
	}
}

func TestClassifyScenarioB(t *testing.T) {
	// Four 3-unit courses scoring 72, 55, 38, 44: GPA 2.25 but 50% of credit
	// units failed, so withdrawal wins even with GPA above 2.0.
	units := map[string]int{"C1": 3, "C2": 3, "C3": 3, "C4": 3}
	scores := map[string]float64{"C1": 72, "C2": 55, "C3": 38, "C4": 44}
	stats := ComputeStats(scores, units, 50)

	assert.Equal(t, models.StatusWithdrawn, Classify(stats.GPA, stats.CUFailed, stats.TotalCU))
}
