// ============================================================================
// backend/internal/shared/models.go
// Shared data models for stored and aggregated marks
// ============================================================================

package shared

import (
	"time"
)

// ============================================================================
// Marks Models
// ============================================================================

// MarkRecord is one student's mark for one subject. (RollNumber, Subject) is unique.
type MarkRecord struct {
	RollNumber string    `bson:"rollNumber" json:"rollNumber"`
	Subject    string    `bson:"subject" json:"subject"`
	TAName     string    `bson:"taName" json:"taName"`
	Marks      float64   `bson:"marks" json:"marks"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// ============================================================================
// Aggregation Rows
// ============================================================================

// TAAverage is the mean mark awarded by one TA in one subject
type TAAverage struct {
	Subject      string  `json:"subject"`
	TAName       string  `json:"taName"`
	AverageMarks float64 `json:"averageMarks"`
	Count        int     `json:"count"`
}

// MarkCount is the number of records holding an exact mark value in a subject
type MarkCount struct {
	Subject string  `json:"subject"`
	Marks   float64 `json:"marks"`
	Count   int     `json:"count"`
}

// ============================================================================
// Identity
// ============================================================================

// Identity is a user verified by the single-sign-on provider
type Identity struct {
	Username   string `json:"username"`
	RollNumber string `json:"rollNumber"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}
