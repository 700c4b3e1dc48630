package marks

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"marksboard/backend/internal/shared"
)

// markRow is the relational shape of a MarkRecord.
type markRow struct {
	bun.BaseModel `bun:"table:marks,alias:m"`

	ID         int64     `bun:"id,pk,autoincrement"`
	RollNumber string    `bun:"roll_number,notnull,unique:marks_roll_number_subject_key"`
	Subject    string    `bun:"subject,notnull,unique:marks_roll_number_subject_key"`
	TAName     string    `bun:"ta_name,notnull"`
	Marks      float64   `bun:"marks,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type taAverageRow struct {
	Subject      string  `bun:"subject"`
	TAName       string  `bun:"ta_name"`
	AverageMarks float64 `bun:"average_marks"`
	Count        int     `bun:"count"`
}

type markCountRow struct {
	Subject string  `bun:"subject"`
	Marks   float64 `bun:"marks"`
	Count   int     `bun:"count"`
}

func (r *markRow) toRecord() *shared.MarkRecord {
	return &shared.MarkRecord{
		RollNumber: r.RollNumber,
		Subject:    r.Subject,
		TAName:     r.TAName,
		Marks:      r.Marks,
		CreatedAt:  r.CreatedAt,
	}
}

// PostgresStore is the bun-backed alternative to MongoStore.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// EnsureSchema creates the marks table with its unique (roll_number, subject) constraint.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.NewCreateTable().
		Model((*markRow)(nil)).
		IfNotExists().
		Exec(queryCtx)
	if err != nil {
		return shared.StoreError("create marks table", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(queryCtx); err != nil {
		return shared.StoreError("ping", err)
	}
	return nil
}

// Upsert relies on ON CONFLICT so same-key writers serialize on the row lock.
func (s *PostgresStore) Upsert(ctx context.Context, rec shared.MarkRecord) (*shared.MarkRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := &markRow{
		RollNumber: rec.RollNumber,
		Subject:    rec.Subject,
		TAName:     rec.TAName,
		Marks:      rec.Marks,
		CreatedAt:  s.now().UTC(),
	}

	err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (roll_number, subject) DO UPDATE").
		Set("ta_name = EXCLUDED.ta_name").
		Set("marks = EXCLUDED.marks").
		Returning("*").
		Scan(queryCtx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrConflict
		}
		return nil, shared.StoreError("upsert marks", err)
	}

	return row.toRecord(), nil
}

// Find returns shared.ErrNotFound when no record exists for the key.
func (s *PostgresStore) Find(ctx context.Context, rollNumber, subject string) (*shared.MarkRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := new(markRow)
	err := s.db.NewSelect().
		Model(row).
		Where("roll_number = ?", rollNumber).
		Where("subject = ?", subject).
		Limit(1).
		Scan(queryCtx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("find marks", err)
	}
	return row.toRecord(), nil
}

func (s *PostgresStore) AverageByTA(ctx context.Context) ([]shared.TAAverage, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows []taAverageRow
	err := s.db.NewSelect().
		Model((*markRow)(nil)).
		Column("subject", "ta_name").
		ColumnExpr("AVG(marks) AS average_marks").
		ColumnExpr("COUNT(*) AS count").
		Group("subject", "ta_name").
		OrderExpr(`subject COLLATE "C" ASC, ta_name COLLATE "C" ASC`).
		Scan(queryCtx, &rows)
	if err != nil {
		return nil, shared.StoreError("aggregate TA averages", err)
	}

	result := make([]shared.TAAverage, 0, len(rows))
	for _, row := range rows {
		result = append(result, shared.TAAverage{
			Subject:      row.Subject,
			TAName:       row.TAName,
			AverageMarks: row.AverageMarks,
			Count:        row.Count,
		})
	}
	return result, nil
}

func (s *PostgresStore) Distribution(ctx context.Context) ([]shared.MarkCount, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows []markCountRow
	err := s.db.NewSelect().
		Model((*markRow)(nil)).
		Column("subject", "marks").
		ColumnExpr("COUNT(*) AS count").
		Group("subject", "marks").
		OrderExpr(`subject COLLATE "C" ASC, marks ASC`).
		Scan(queryCtx, &rows)
	if err != nil {
		return nil, shared.StoreError("aggregate distribution", err)
	}

	result := make([]shared.MarkCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, shared.MarkCount{
			Subject: row.Subject,
			Marks:   row.Marks,
			Count:   row.Count,
		})
	}
	return result, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]shared.MarkRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows []markRow
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("roll_number ASC, subject ASC").
		Scan(queryCtx)
	if err != nil {
		return nil, shared.StoreError("find all marks", err)
	}

	records := make([]shared.MarkRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].toRecord())
	}
	return records, nil
}

// 23505 is unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}
