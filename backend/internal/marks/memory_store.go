package marks

import (
	"context"
	"sort"
	"sync"
	"time"

	"marksboard/backend/internal/shared"
)

type markKey struct {
	rollNumber string
	subject    string
}

// MemoryStore is a process-local Store for development and tests.
// Writers serialize on a mutex, so same-key upserts never conflict.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[markKey]shared.MarkRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[markKey]shared.MarkRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) EnsureSchema(context.Context) error { return nil }

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Upsert(ctx context.Context, rec shared.MarkRecord) (*shared.MarkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.StoreError("upsert marks", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := markKey{rec.RollNumber, rec.Subject}
	existing, ok := s.records[key]
	if ok {
		existing.TAName = rec.TAName
		existing.Marks = rec.Marks
	} else {
		existing = shared.MarkRecord{
			RollNumber: rec.RollNumber,
			Subject:    rec.Subject,
			TAName:     rec.TAName,
			Marks:      rec.Marks,
			CreatedAt:  s.now().UTC(),
		}
	}
	s.records[key] = existing

	out := existing
	return &out, nil
}

func (s *MemoryStore) Find(ctx context.Context, rollNumber, subject string) (*shared.MarkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.StoreError("find marks", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[markKey{rollNumber, subject}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) AverageByTA(ctx context.Context) ([]shared.TAAverage, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[[2]string]*acc)
	for _, r := range records {
		k := [2]string{r.Subject, r.TAName}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.sum += r.Marks
		a.count++
	}

	result := make([]shared.TAAverage, 0, len(groups))
	for k, a := range groups {
		result = append(result, shared.TAAverage{
			Subject:      k[0],
			TAName:       k[1],
			AverageMarks: a.sum / float64(a.count),
			Count:        a.count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Subject != result[j].Subject {
			return result[i].Subject < result[j].Subject
		}
		return result[i].TAName < result[j].TAName
	})
	return result, nil
}

func (s *MemoryStore) Distribution(ctx context.Context) ([]shared.MarkCount, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		subject string
		marks   float64
	}
	counts := make(map[key]int)
	for _, r := range records {
		counts[key{r.Subject, r.Marks}]++
	}

	result := make([]shared.MarkCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, shared.MarkCount{Subject: k.subject, Marks: k.marks, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Subject != result[j].Subject {
			return result[i].Subject < result[j].Subject
		}
		return result[i].Marks < result[j].Marks
	})
	return result, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]shared.MarkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.StoreError("find all marks", err)
	}

	s.mu.RLock()
	records := make([]shared.MarkRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].RollNumber != records[j].RollNumber {
			return records[i].RollNumber < records[j].RollNumber
		}
		return records[i].Subject < records[j].Subject
	})
	return records, nil
}
