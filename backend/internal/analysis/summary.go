package analysis

import (
	"marksboard/backend/internal/catalog"
)

// CourseTotalSummary is the cohort view of course totals.
type CourseTotalSummary struct {
	Stats     TotalStats `json:"stats"`
	Histogram []Bin      `json:"histogram"`
}

// CurrentUser is the caller's own standing.
type CurrentUser struct {
	RollNumber  string   `json:"rollNumber"`
	Complete    bool     `json:"complete"`
	CourseTotal *float64 `json:"courseTotal,omitempty"`
}

// SubjectBins is the 0..30 histogram for one subject.
type SubjectBins struct {
	Subject string `json:"subject"`
	Bins    []Bin  `json:"bins"`
}

// CatalogView is the part of the catalog the dashboard renders.
type CatalogView struct {
	Subjects []string `json:"subjects"`
	TAs      []string `json:"tas"`
}

// Summary is everything the dashboard computes from a Report.
type Summary struct {
	SubjectAverages []SubjectAverage   `json:"subjectAverages"`
	SubjectBins     []SubjectBins      `json:"subjectBins"`
	CourseTotal     CourseTotalSummary `json:"courseTotal"`
	BranchTotals    []BranchTotal      `json:"branchTotals"`
	CurrentUser     CurrentUser        `json:"currentUser"`
	Catalog         CatalogView        `json:"catalog"`
}

// Summarize derives the dashboard metrics for roll from report.
func Summarize(report *Report, cat *catalog.Catalog, roll string) *Summary {
	totals := CourseTotals(report.StudentMarks, cat.Subjects, cat.CourseTotal)

	bins := make([]SubjectBins, 0, len(cat.Subjects))
	for _, s := range cat.Subjects {
		bins = append(bins, SubjectBins{Subject: s, Bins: MarkBins(report.MarksDistribution, s)})
	}

	user := CurrentUser{
		RollNumber: roll,
		Complete:   HasCompleteData(report.StudentMarks, roll, cat.Subjects),
	}
	if total, ok := totals[roll]; ok {
		user.CourseTotal = &total
	}

	return &Summary{
		SubjectAverages: WeightedSubjectAverages(report.AverageMarksByTA),
		SubjectBins:     bins,
		CourseTotal: CourseTotalSummary{
			Stats:     CourseTotalStats(totals),
			Histogram: TotalsHistogram(totals),
		},
		BranchTotals: BranchTotals(report.BranchAverages, cat.CourseTotal),
		CurrentUser:  user,
		Catalog: CatalogView{
			Subjects: cat.Subjects,
			TAs:      cat.TAs,
		},
	}
}
