package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"marksboard/backend/internal/branch"
	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
)

// Source is the read side of the marks store.
type Source interface {
	AverageByTA(ctx context.Context) ([]shared.TAAverage, error)
	Distribution(ctx context.Context) ([]shared.MarkCount, error)
	All(ctx context.Context) ([]shared.MarkRecord, error)
}

// SubjectAverage is one subject's mean within a branch, or across all TAs.
type SubjectAverage struct {
	Subject      string  `json:"subject"`
	AverageMarks float64 `json:"averageMarks"`
	Count        int     `json:"count"`
}

// BranchAverage groups per-subject averages for one branch.
type BranchAverage struct {
	Branch   string           `json:"branch"`
	Subjects []SubjectAverage `json:"subjects"`
}

// StudentMarks maps rollNumber -> subject -> marks.
type StudentMarks map[string]map[string]float64

// Report is one fully recomputed snapshot of the marks store.
type Report struct {
	AverageMarksByTA  []shared.TAAverage `json:"averageMarksByTA"`
	MarksDistribution []shared.MarkCount `json:"marksDistribution"`
	BranchAverages    []BranchAverage    `json:"branchAverages"`
	StudentMarks      StudentMarks       `json:"studentMarks"`
}

// Engine computes Reports. It holds no state between calls.
type Engine struct {
	source     Source
	classifier *branch.Classifier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewEngine(source Source, classifier *branch.Classifier, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		source:     source,
		classifier: classifier,
		metrics:    m,
		logger:     logger.With().Str("component", "analysis").Logger(),
	}
}

// Analyze reads the store and builds a Report. The three reads run
// concurrently; if any fails the others are cancelled and no Report is returned.
func (e *Engine) Analyze(ctx context.Context) (*Report, error) {
	start := time.Now()

	var (
		averages     []shared.TAAverage
		distribution []shared.MarkCount
		records      []shared.MarkRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		averages, err = e.source.AverageByTA(gctx)
		return shared.StoreError("average by TA", err)
	})
	g.Go(func() error {
		var err error
		distribution, err = e.source.Distribution(gctx)
		return shared.StoreError("marks distribution", err)
	})
	g.Go(func() error {
		var err error
		records, err = e.source.All(gctx)
		return shared.StoreError("all marks", err)
	})

	if err := g.Wait(); err != nil {
		e.metrics.RecordAnalysis(ctx, time.Since(start).Seconds(), false)
		e.logger.Error().Err(err).Msg("analysis failed")
		return nil, err
	}

	report := &Report{
		AverageMarksByTA:  roundTAAverages(averages),
		MarksDistribution: sortDistribution(distribution),
		BranchAverages:    e.branchAverages(records),
		StudentMarks:      foldStudentMarks(records),
	}

	e.metrics.RecordAnalysis(ctx, time.Since(start).Seconds(), true)
	e.logger.Debug().
		Int("records", len(records)).
		Dur("took", time.Since(start)).
		Msg("analysis computed")

	return report, nil
}

func roundTAAverages(in []shared.TAAverage) []shared.TAAverage {
	out := make([]shared.TAAverage, 0, len(in))
	for _, a := range in {
		a.AverageMarks = round2(a.AverageMarks)
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].TAName < out[j].TAName
	})
	return out
}

func sortDistribution(in []shared.MarkCount) []shared.MarkCount {
	out := make([]shared.MarkCount, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Marks < out[j].Marks
	})
	return out
}

type runningMean struct {
	sum   float64
	count int
}

func (e *Engine) branchAverages(records []shared.MarkRecord) []BranchAverage {
	acc := make(map[string]map[string]*runningMean)
	for _, r := range records {
		b := e.classifier.Classify(r.RollNumber)
		subjects, ok := acc[b]
		if !ok {
			subjects = make(map[string]*runningMean)
			acc[b] = subjects
		}
		m, ok := subjects[r.Subject]
		if !ok {
			m = &runningMean{}
			subjects[r.Subject] = m
		}
		m.sum += r.Marks
		m.count++
	}

	out := make([]BranchAverage, 0, len(acc))
	for b, subjects := range acc {
		ba := BranchAverage{Branch: b, Subjects: make([]SubjectAverage, 0, len(subjects))}
		for subject, m := range subjects {
			ba.Subjects = append(ba.Subjects, SubjectAverage{
				Subject:      subject,
				AverageMarks: round2(m.sum / float64(m.count)),
				Count:        m.count,
			})
		}
		sort.Slice(ba.Subjects, func(i, j int) bool { return ba.Subjects[i].Subject < ba.Subjects[j].Subject })
		out = append(out, ba)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Branch < out[j].Branch })
	return out
}

func foldStudentMarks(records []shared.MarkRecord) StudentMarks {
	out := make(StudentMarks)
	for _, r := range records {
		subjects, ok := out[r.RollNumber]
		if !ok {
			subjects = make(map[string]float64)
			out[r.RollNumber] = subjects
		}
		subjects[r.Subject] = r.Marks
	}
	return out
}

// round2 rounds half away from zero to 2 decimals.
func round2(x float64) float64 {
	r, err := stats.Round(x, 2)
	if err != nil {
		return x
	}
	return r
}
