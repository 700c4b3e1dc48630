package marks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"marksboard/backend/internal/shared"
)

// ErrBodyUnreadable is returned by DecodeSubmitRequest when the body is not a
// JSON object, so not even the roll number can be recovered.
var ErrBodyUnreadable = errors.New("unreadable request body")

// DecodeSubmitRequest reads a POST /api/marks body field by field.
// The roll number is recovered even when other fields have the wrong JSON
// type, so ownership can be checked before type errors are reported.
// A non-nil error wraps either ErrBodyUnreadable or a *shared.ValidationError.
func DecodeSubmitRequest(r io.Reader) (SubmitRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return SubmitRequest{}, fmt.Errorf("%w: %w", ErrBodyUnreadable, shared.NewValidationError("Request body is empty"))
		}
		return SubmitRequest{}, fmt.Errorf("%w: %w", ErrBodyUnreadable, shared.NewValidationError("Invalid request payload"))
	}

	var (
		req      SubmitRequest
		badTypes []string
		ok       bool
	)

	// A non-string roll number keeps its raw text so it never matches a session roll
	if req.RollNumber, ok = stringField(fields["rollNumber"]); !ok {
		badTypes = append(badTypes, "rollNumber")
	}
	if req.Subject, ok = stringField(fields["subject"]); !ok {
		req.Subject = ""
		badTypes = append(badTypes, "subject")
	}
	if req.TAName, ok = stringField(fields["taName"]); !ok {
		req.TAName = ""
		badTypes = append(badTypes, "taName")
	}
	if req.Marks, ok = numberField(fields["marks"]); !ok {
		badTypes = append(badTypes, "marks")
	}

	if len(badTypes) > 0 {
		return req, shared.NewValidationError("Invalid value type for: %s", strings.Join(badTypes, ", "))
	}
	return req, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// stringField returns the JSON string in raw. Any other JSON type comes back
// as its raw text with ok=false.
func stringField(raw json.RawMessage) (string, bool) {
	if isAbsent(raw) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), false
	}
	return s, true
}

func numberField(raw json.RawMessage) (*float64, bool) {
	if isAbsent(raw) {
		return nil, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return &f, true
}
