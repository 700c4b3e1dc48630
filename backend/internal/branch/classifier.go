// Package branch derives a student's academic branch from their roll number.
package branch

import "regexp"

// Unknown is returned for malformed roll numbers and unmapped branch codes.
const Unknown = "Unknown"

// 4 digits (year), 3 digits (branch code), 3 digits (serial)
var rollPattern = regexp.MustCompile(`^\d{4}(\d{3})\d{3}$`)

// Classifier maps roll numbers to branch names using a code table.
type Classifier struct {
	table map[string]string
}

// NewClassifier copies table so later changes to the caller's map have no effect.
func NewClassifier(table map[string]string) *Classifier {
	t := make(map[string]string, len(table))
	for code, name := range table {
		t[code] = name
	}
	return &Classifier{table: t}
}

// Classify never fails; anything it cannot place is Unknown.
func (c *Classifier) Classify(roll string) string {
	m := rollPattern.FindStringSubmatch(roll)
	if m == nil {
		return Unknown
	}
	if name, ok := c.table[m[1]]; ok {
		return name
	}
	return Unknown
}
