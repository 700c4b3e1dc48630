package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marksboard/backend/internal/analysis"
	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/shared"
)

var twoThirds = catalog.Ratio{Numerator: 2, Denominator: 3}

func completeStudent(m float64) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range catalog.Default().Subjects {
		out[s] = m
	}
	return out
}

func TestWeightedSubjectAverages(t *testing.T) {
	got := analysis.WeightedSubjectAverages([]shared.TAAverage{
		{Subject: "History", TAName: "A", AverageMarks: 10, Count: 2},
		{Subject: "History", TAName: "B", AverageMarks: 20, Count: 3},
		{Subject: "Economics", TAName: "C", AverageMarks: 7.5, Count: 4},
	})

	assert.Equal(t, []analysis.SubjectAverage{
		{Subject: "Economics", AverageMarks: 7.5, Count: 4},
		{Subject: "History", AverageMarks: 16, Count: 5},
	}, got)

	assert.Empty(t, analysis.WeightedSubjectAverages(nil))
}

func TestCourseTotals(t *testing.T) {
	subjects := catalog.Default().Subjects

	incomplete := completeStudent(30)
	delete(incomplete, "Philosophy")

	zeroes := completeStudent(0)

	marks := analysis.StudentMarks{
		"2023111001": completeStudent(20),
		"2023111002": incomplete,
		"2023111003": zeroes,
	}

	totals := analysis.CourseTotals(marks, subjects, twoThirds)
	assert.Equal(t, map[string]float64{
		"2023111001": 66.67,
		"2023111003": 0,
	}, totals)

	assert.True(t, analysis.HasCompleteData(marks, "2023111003", subjects), "a stored 0 is a recorded mark")
	assert.False(t, analysis.HasCompleteData(marks, "2023111002", subjects))
	assert.False(t, analysis.HasCompleteData(marks, "2099999999", subjects))
}

func TestCourseTotalStats(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, analysis.TotalStats{}, analysis.CourseTotalStats(nil))
	})

	t.Run("Values", func(t *testing.T) {
		got := analysis.CourseTotalStats(map[string]float64{"a": 66.67, "b": 40, "c": 50})
		assert.Equal(t, 3, got.Count)
		assert.Equal(t, 52.22, got.Mean)
		assert.Equal(t, 40.0, got.Min)
		assert.Equal(t, 66.67, got.Max)
	})
}

func TestTotalsHistogram(t *testing.T) {
	assert.Empty(t, analysis.TotalsHistogram(nil))

	got := analysis.TotalsHistogram(map[string]float64{"a": 61.4, "b": 63.5, "c": 61.2})
	assert.Equal(t, []analysis.Bin{
		{Value: 61, Count: 2},
		{Value: 62, Count: 0},
		{Value: 63, Count: 0},
		{Value: 64, Count: 1},
	}, got)
}

func TestBranchTotals(t *testing.T) {
	got := analysis.BranchTotals([]analysis.BranchAverage{
		{Branch: "CSD", Subjects: []analysis.SubjectAverage{
			{Subject: "History", AverageMarks: 20},
			{Subject: "Economics", AverageMarks: 10},
		}},
		{Branch: "CSE"},
	}, twoThirds)

	assert.Equal(t, []analysis.BranchTotal{
		{Branch: "CSD", CourseTotal: 20},
		{Branch: "CSE", CourseTotal: 0},
	}, got)
}

func TestMarkBins(t *testing.T) {
	bins := analysis.MarkBins([]shared.MarkCount{
		{Subject: "History", Marks: 0, Count: 2},
		{Subject: "History", Marks: 9.5, Count: 1},
		{Subject: "History", Marks: 10.49, Count: 3},
		{Subject: "History", Marks: 30, Count: 1},
		{Subject: "Economics", Marks: 10, Count: 7},
	}, "History")

	require.Len(t, bins, 31)
	assert.Equal(t, analysis.Bin{Value: 0, Count: 2}, bins[0])
	assert.Equal(t, analysis.Bin{Value: 9, Count: 0}, bins[9])
	assert.Equal(t, analysis.Bin{Value: 10, Count: 4}, bins[10])
	assert.Equal(t, analysis.Bin{Value: 30, Count: 1}, bins[30])
}

func TestSummarize(t *testing.T) {
	cat := catalog.Default()
	report := &analysis.Report{
		AverageMarksByTA: []shared.TAAverage{
			{Subject: "History", TAName: "Kriti", AverageMarks: 20, Count: 1},
		},
		MarksDistribution: []shared.MarkCount{},
		BranchAverages: []analysis.BranchAverage{
			{Branch: "CSD", Subjects: []analysis.SubjectAverage{{Subject: "History", AverageMarks: 20, Count: 1}}},
		},
		StudentMarks: analysis.StudentMarks{
			"2023111001": completeStudent(20),
			"2023111002": {"History": 12},
		},
	}

	t.Run("Complete Caller", func(t *testing.T) {
		s := analysis.Summarize(report, cat, "2023111001")
		assert.True(t, s.CurrentUser.Complete)
		require.NotNil(t, s.CurrentUser.CourseTotal)
		assert.Equal(t, 66.67, *s.CurrentUser.CourseTotal)
		assert.Equal(t, 1, s.CourseTotal.Stats.Count)
		assert.Equal(t, []analysis.Bin{{Value: 67, Count: 1}}, s.CourseTotal.Histogram)
		assert.Len(t, s.SubjectBins, len(cat.Subjects))
		assert.Equal(t, cat.TAs, s.Catalog.TAs)
	})

	t.Run("Incomplete Caller", func(t *testing.T) {
		s := analysis.Summarize(report, cat, "2023111002")
		assert.False(t, s.CurrentUser.Complete)
		assert.Nil(t, s.CurrentUser.CourseTotal)
		assert.Equal(t, 1, s.CourseTotal.Stats.Count, "incomplete students never enter the cohort stats")
	})
}
