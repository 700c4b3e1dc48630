package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/shared"
)

// Bin is one histogram bar.
type Bin struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// TotalStats summarises course totals over complete students.
type TotalStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// BranchTotal is a branch's scaled sum of subject averages.
type BranchTotal struct {
	Branch      string  `json:"branch"`
	CourseTotal float64 `json:"courseTotal"`
}

// WeightedSubjectAverages folds per-TA averages into one average per
// subject, weighting each TA by the number of marks they graded.
func WeightedSubjectAverages(avgs []shared.TAAverage) []SubjectAverage {
	type acc struct {
		weighted float64
		count    int
	}
	bySubject := make(map[string]*acc)
	for _, a := range avgs {
		if a.Count <= 0 {
			continue
		}
		s, ok := bySubject[a.Subject]
		if !ok {
			s = &acc{}
			bySubject[a.Subject] = s
		}
		s.weighted += a.AverageMarks * float64(a.Count)
		s.count += a.Count
	}

	out := make([]SubjectAverage, 0, len(bySubject))
	for subject, s := range bySubject {
		out = append(out, SubjectAverage{
			Subject:      subject,
			AverageMarks: round2(s.weighted / float64(s.count)),
			Count:        s.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// HasCompleteData reports whether roll has a recorded mark for every subject.
// A stored 0 counts as recorded.
func HasCompleteData(marks StudentMarks, roll string, subjects []string) bool {
	recorded, ok := marks[roll]
	if !ok {
		return false
	}
	for _, s := range subjects {
		if _, ok := recorded[s]; !ok {
			return false
		}
	}
	return true
}

// CourseTotals computes factor × Σmarks for each student with complete data.
// Students missing any subject are left out entirely.
func CourseTotals(marks StudentMarks, subjects []string, factor catalog.Ratio) map[string]float64 {
	out := make(map[string]float64)
	for roll, recorded := range marks {
		if !HasCompleteData(marks, roll, subjects) {
			continue
		}
		var sum float64
		for _, s := range subjects {
			sum += recorded[s]
		}
		out[roll] = round2(factor.Apply(sum))
	}
	return out
}

// CourseTotalStats returns count, mean, min and max of the totals.
// All fields are zero for an empty input.
func CourseTotalStats(totals map[string]float64) TotalStats {
	if len(totals) == 0 {
		return TotalStats{}
	}
	data := make(stats.Float64Data, 0, len(totals))
	for _, t := range totals {
		data = append(data, t)
	}

	// errors only come back for empty input, which is handled above
	mean, _ := data.Mean()
	minimum, _ := data.Min()
	maximum, _ := data.Max()

	return TotalStats{
		Count: len(data),
		Mean:  round2(mean),
		Min:   minimum,
		Max:   maximum,
	}
}

// TotalsHistogram buckets totals by their nearest integer and returns one
// bin per integer from the lowest to the highest bucket, zero counts included.
func TotalsHistogram(totals map[string]float64) []Bin {
	if len(totals) == 0 {
		return []Bin{}
	}
	counts := make(map[int]int)
	lo, hi := math.MaxInt, math.MinInt
	for _, t := range totals {
		k := int(math.Round(t))
		counts[k]++
		if k < lo {
			lo = k
		}
		if k > hi {
			hi = k
		}
	}

	out := make([]Bin, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, Bin{Value: float64(v), Count: counts[v]})
	}
	return out
}

// BranchTotals scales the sum of each branch's subject averages by factor.
func BranchTotals(branches []BranchAverage, factor catalog.Ratio) []BranchTotal {
	out := make([]BranchTotal, 0, len(branches))
	for _, b := range branches {
		var sum float64
		for _, s := range b.Subjects {
			sum += s.AverageMarks
		}
		out = append(out, BranchTotal{Branch: b.Branch, CourseTotal: round2(factor.Apply(sum))})
	}
	return out
}

// MarkBins returns 31 bins for marks 0..30 in one subject. Bin m counts
// marks in [m-0.5, m+0.5).
func MarkBins(distribution []shared.MarkCount, subject string) []Bin {
	out := make([]Bin, 0, 31)
	for m := 0; m <= 30; m++ {
		out = append(out, Bin{Value: float64(m)})
	}
	for _, d := range distribution {
		if d.Subject != subject {
			continue
		}
		idx := int(math.Floor(d.Marks + 0.5))
		if idx < 0 || idx >= len(out) {
			continue
		}
		out[idx].Count += d.Count
	}
	return out
}
