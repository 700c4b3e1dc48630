package marks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
)

const (
	MinMarks = 0.0
	MaxMarks = 30.0
)

// EventPublisher is notified after each stored submission.
type EventPublisher interface {
	PublishMarkSubmitted(ctx context.Context, rec shared.MarkRecord) error
}

// SubmitRequest mirrors the JSON body of POST /api/marks.
// Marks is a pointer so that an absent value is distinguishable from 0.
type SubmitRequest struct {
	RollNumber string   `json:"rollNumber" validate:"required"`
	Subject    string   `json:"subject" validate:"required"`
	TAName     string   `json:"taName" validate:"required"`
	Marks      *float64 `json:"marks" validate:"required"`
}

// MarksService is the only writer of MarkRecords.
type MarksService struct {
	store     Store
	catalog   *catalog.Catalog
	validate  *validator.Validate
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewMarksService creates a new MarksService instance
func NewMarksService(store Store, cat *catalog.Catalog, publisher EventPublisher, m *metrics.Metrics, logger zerolog.Logger) *MarksService {
	return &MarksService{
		store:     store,
		catalog:   cat,
		validate:  newValidator(cat),
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("component", "marks").Logger(),
	}
}

func newValidator(cat *catalog.Catalog) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names in validation messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		return cat.HasSubject(fl.Field().String())
	})
	_ = v.RegisterValidation("ta", func(fl validator.FieldLevel) bool {
		return cat.HasTA(fl.Field().String())
	})

	return v
}

// Submit validates a candidate mark and upserts it. Checks run in order and
// the first failure is returned:
//  1. request roll number must equal the session's (ErrForbidden)
//  2. all fields present (ErrValidation)
//  3. marks finite and within [MinMarks, MaxMarks], subject and TA known (ErrValidation)
//  4. marks rounded to 2 decimals, half away from zero
//  5. upsert; a lost first-insert race is ErrConflict
func (s *MarksService) Submit(ctx context.Context, sessionRoll string, req SubmitRequest) (*shared.MarkRecord, error) {
	// 1. Ownership
	if err := s.CheckOwner(ctx, "submit", sessionRoll, req.RollNumber); err != nil {
		return nil, err
	}

	// 2. Presence
	if err := s.validate.Struct(req); err != nil {
		s.metrics.RecordRejected(ctx)
		return nil, missingFieldsError(err)
	}

	// 3. Range and closed sets
	marks := *req.Marks
	if math.IsNaN(marks) || math.IsInf(marks, 0) || marks < MinMarks || marks > MaxMarks {
		s.metrics.RecordRejected(ctx)
		return nil, shared.NewValidationError("Marks must be a valid number between %g and %g", MinMarks, MaxMarks)
	}
	if err := s.validate.Var(req.Subject, "subject"); err != nil {
		s.metrics.RecordRejected(ctx)
		return nil, shared.NewValidationError("Unknown subject %q", req.Subject)
	}
	if err := s.validate.Var(req.TAName, "ta"); err != nil {
		s.metrics.RecordRejected(ctx)
		return nil, shared.NewValidationError("Unknown TA %q", req.TAName)
	}

	// 4. Normalize
	rounded, err := stats.Round(marks, 2)
	if err != nil {
		return nil, shared.NewValidationError("Marks must be a valid number between %g and %g", MinMarks, MaxMarks)
	}

	// 5. Upsert
	stored, err := s.store.Upsert(ctx, shared.MarkRecord{
		RollNumber: req.RollNumber,
		Subject:    req.Subject,
		TAName:     req.TAName,
		Marks:      rounded,
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.metrics.RecordConflict(ctx)
			s.logger.Info().
				Str("roll_number", req.RollNumber).
				Str("subject", req.Subject).
				Msg("first-insert race lost")
			return nil, shared.NewConflictError("You have already submitted marks for this subject. Please refresh to update.")
		}
		s.logger.Error().Err(err).
			Str("roll_number", req.RollNumber).
			Str("subject", req.Subject).
			Msg("failed to save marks")
		return nil, err
	}

	s.metrics.RecordSubmission(ctx, stored.Subject)

	if s.publisher != nil {
		if err := s.publisher.PublishMarkSubmitted(ctx, *stored); err != nil {
			s.logger.Warn().Err(err).Str("roll_number", stored.RollNumber).Msg("failed to publish mark event")
		}
	}

	return stored, nil
}

// GetMarks returns the caller's stored mark for a subject, or 0 when none exists.
func (s *MarksService) GetMarks(ctx context.Context, sessionRoll, rollNumber, subject string) (float64, error) {
	if err := s.CheckOwner(ctx, "get", sessionRoll, rollNumber); err != nil {
		return 0, err
	}
	if rollNumber == "" || subject == "" {
		return 0, shared.NewValidationError("Missing rollNumber or subject query parameter")
	}

	rec, err := s.store.Find(ctx, rollNumber, subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		s.logger.Error().Err(err).Str("roll_number", rollNumber).Str("subject", subject).Msg("failed to fetch marks")
		return 0, err
	}

	return rec.Marks, nil
}

// CheckOwner fails with ErrUnauthenticated when there is no session and with
// ErrForbidden when the request names another student's roll number.
// Mismatches are logged as possible tampering.
func (s *MarksService) CheckOwner(ctx context.Context, op, sessionRoll, requestRoll string) error {
	if sessionRoll == "" {
		return shared.ErrUnauthenticated
	}
	if requestRoll != sessionRoll {
		s.rejectForeignRoll(ctx, op, sessionRoll, requestRoll)
		return fmt.Errorf("%w: you can only access marks for your own roll number", shared.ErrForbidden)
	}
	return nil
}

func (s *MarksService) rejectForeignRoll(ctx context.Context, op, sessionRoll, requestRoll string) {
	s.metrics.RecordForbidden(ctx)
	s.logger.Warn().
		Str("event", "possible_tampering").
		Str("operation", op).
		Str("session_roll", sessionRoll).
		Str("request_roll", requestRoll).
		Msg("roll number mismatch between session and request")
}

func missingFieldsError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.NewValidationError("Missing required fields")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return shared.NewValidationError("Missing required fields: %s", strings.Join(fields, ", "))
}
