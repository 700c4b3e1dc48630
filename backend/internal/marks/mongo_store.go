package marks

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"marksboard/backend/internal/shared"
)

const (
	marksCollection = "marks"
	uniqueIndexName = "rollNumber_1_subject_1"
	queryTimeout    = 10 * time.Second
)

// MongoStore keeps marks in a single collection with a unique compound index.
type MongoStore struct {
	db       *mongo.Database
	marksCol *mongo.Collection
	now      func() time.Time
}

// NewMongoStore creates a new MongoStore instance
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:       db,
		marksCol: db.Collection(marksCollection),
		now:      time.Now,
	}
}

// EnsureSchema creates the (rollNumber, subject) unique index.
func (s *MongoStore) EnsureSchema(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.marksCol.Indexes().CreateOne(queryCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "rollNumber", Value: 1},
			{Key: "subject", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName(uniqueIndexName),
	})
	if err != nil {
		return shared.StoreError("create marks index", err)
	}
	return nil
}

// Ping checks the primary is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.Client().Ping(queryCtx, readpref.Primary()); err != nil {
		return shared.StoreError("ping", err)
	}
	return nil
}

// Upsert writes the record in one FindOneAndUpdate. createdAt is only set on insert.
func (s *MongoStore) Upsert(ctx context.Context, rec shared.MarkRecord) (*shared.MarkRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"rollNumber": rec.RollNumber, "subject": rec.Subject}
	update := bson.M{
		"$set": bson.M{
			"taName": rec.TAName,
			"marks":  rec.Marks,
		},
		"$setOnInsert": bson.M{
			"createdAt": s.now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored shared.MarkRecord
	err := s.marksCol.FindOneAndUpdate(queryCtx, filter, update, opts).Decode(&stored)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, shared.ErrConflict
		}
		return nil, shared.StoreError("upsert marks", err)
	}

	return &stored, nil
}

// Find returns shared.ErrNotFound when no record exists for the key.
func (s *MongoStore) Find(ctx context.Context, rollNumber, subject string) (*shared.MarkRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rec shared.MarkRecord
	err := s.marksCol.FindOne(queryCtx, bson.M{"rollNumber": rollNumber, "subject": subject}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.StoreError("find marks", err)
	}
	return &rec, nil
}

// AverageByTA groups by (subject, taName)
func (s *MongoStore) AverageByTA(ctx context.Context) ([]shared.TAAverage, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "subject", Value: "$subject"},
				{Key: "taName", Value: "$taName"},
			}},
			{Key: "averageMarks", Value: bson.D{{Key: "$avg", Value: "$marks"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.subject", Value: 1},
			{Key: "_id.taName", Value: 1},
		}}},
	}

	cursor, err := s.marksCol.Aggregate(queryCtx, pipeline)
	if err != nil {
		return nil, shared.StoreError("aggregate TA averages", err)
	}
	defer cursor.Close(queryCtx)

	var rows []struct {
		ID struct {
			Subject string `bson:"subject"`
			TAName  string `bson:"taName"`
		} `bson:"_id"`
		AverageMarks float64 `bson:"averageMarks"`
		Count        int     `bson:"count"`
	}
	if err := cursor.All(queryCtx, &rows); err != nil {
		return nil, shared.StoreError("decode TA averages", err)
	}

	result := make([]shared.TAAverage, 0, len(rows))
	for _, row := range rows {
		result = append(result, shared.TAAverage{
			Subject:      row.ID.Subject,
			TAName:       row.ID.TAName,
			AverageMarks: row.AverageMarks,
			Count:        row.Count,
		})
	}
	return result, nil
}

// Distribution groups by (subject, exact marks)
func (s *MongoStore) Distribution(ctx context.Context) ([]shared.MarkCount, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "subject", Value: "$subject"},
				{Key: "marks", Value: "$marks"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.subject", Value: 1},
			{Key: "_id.marks", Value: 1},
		}}},
	}

	cursor, err := s.marksCol.Aggregate(queryCtx, pipeline)
	if err != nil {
		return nil, shared.StoreError("aggregate distribution", err)
	}
	defer cursor.Close(queryCtx)

	var rows []struct {
		ID struct {
			Subject string  `bson:"subject"`
			Marks   float64 `bson:"marks"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cursor.All(queryCtx, &rows); err != nil {
		return nil, shared.StoreError("decode distribution", err)
	}

	result := make([]shared.MarkCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, shared.MarkCount{
			Subject: row.ID.Subject,
			Marks:   row.ID.Marks,
			Count:   row.Count,
		})
	}
	return result, nil
}

// All returns every record. Volume is bounded by cohort size × subjects.
func (s *MongoStore) All(ctx context.Context) ([]shared.MarkRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	findOptions := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSort(bson.D{{Key: "rollNumber", Value: 1}, {Key: "subject", Value: 1}})

	cursor, err := s.marksCol.Find(queryCtx, bson.M{}, findOptions)
	if err != nil {
		return nil, shared.StoreError("find all marks", err)
	}
	defer cursor.Close(queryCtx)

	records := make([]shared.MarkRecord, 0)
	for cursor.Next(queryCtx) {
		var rec shared.MarkRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, shared.StoreError("decode marks", err)
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, shared.StoreError("iterate marks", err)
	}

	return records, nil
}
