package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/events"
	"marksboard/backend/internal/logger"
	"marksboard/backend/internal/marks"
	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
)

// StudentSeed is one demo student. A nil entry in Marks skips that subject.
type StudentSeed struct {
	RollNumber string
	TAs        []string   // one per catalog subject, same order
	Marks      []*float64 // one per catalog subject, same order
}

func m(v float64) *float64 { return &v }

// Demo cohort across several branches. 2023112010 and 2024113001 are incomplete;
// 2023102004 has a 0 mark that still counts as submitted.
var studentSeeds = []StudentSeed{
	{"2023111001", []string{"Kriti", "Aadi", "Rohan", "Medha", "Tanish"}, []*float64{m(24), m(21.5), m(18), m(27), m(22)}},
	{"2023111002", []string{"Kriti", "Akshit", "Rohan", "Medha", "Tanish"}, []*float64{m(19.25), m(23), m(20), m(25.5), m(18)}},
	{"2023101003", []string{"Anushka", "Aadi", "Chetan", "Gargie", "Rushil"}, []*float64{m(28), m(26), m(29.5), m(24), m(27)}},
	{"2023102004", []string{"Anushka", "Asirith", "Chetan", "Gargie", "Rushil"}, []*float64{m(15), m(0), m(17.75), m(20), m(12.5)}},
	{"2023112010", []string{"Sathvika", "Chandana", "Sreenivas", "Tanveer", "Tanish"}, []*float64{m(22), m(20), nil, m(23), m(21)}},
	{"2024113001", []string{"Sathvika", "Chandana", "Sreenivas", "Tanveer", "Rushil"}, []*float64{m(17), nil, nil, m(16.5), nil}},
	{"2024114002", []string{"Kriti", "Akshit", "Sreenivas", "Medha", "Tanveer"}, []*float64{m(26.5), m(25), m(24), m(28), m(29)}},
}

func main() {
	_ = shared.LoadEnv(".env")

	cfg, err := shared.LoadServiceConfig("seeder")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	appLogger := logger.New(cfg.ServiceName, cfg.Version, cfg.Environment, cfg.LogLevel)
	appLogger.Info().Str("driver", cfg.StoreDriver).Msg("starting marks seeder")

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to load catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, closeStore, err := marks.Open(ctx, cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to open marks store")
	}
	defer func() { _ = closeStore() }()

	// Seeding goes through the same gate as HTTP submissions
	svc := marks.NewMarksService(store, cat, events.NopPublisher{}, metrics.NewMock(), appLogger)

	seeded, skipped := 0, 0
	for _, s := range studentSeeds {
		n, err := seedStudent(ctx, svc, cat, s)
		if err != nil {
			appLogger.Fatal().Err(err).Str("roll_number", s.RollNumber).Msg("error seeding student")
		}
		seeded += n
		skipped += len(cat.Subjects) - n
		appLogger.Info().Str("roll_number", s.RollNumber).Int("subjects", n).Msg("seeded student")
	}

	appLogger.Info().
		Int("students", len(studentSeeds)).
		Int("records", seeded).
		Int("skipped", skipped).
		Msg("all data seeding completed successfully")
}

func seedStudent(ctx context.Context, svc *marks.MarksService, cat *catalog.Catalog, s StudentSeed) (int, error) {
	if len(s.TAs) != len(cat.Subjects) || len(s.Marks) != len(cat.Subjects) {
		return 0, fmt.Errorf("seed for %s must have %d TAs and marks", s.RollNumber, len(cat.Subjects))
	}

	n := 0
	for i, subject := range cat.Subjects {
		if s.Marks[i] == nil {
			continue
		}
		_, err := svc.Submit(ctx, s.RollNumber, marks.SubmitRequest{
			RollNumber: s.RollNumber,
			Subject:    subject,
			TAName:     s.TAs[i],
			Marks:      s.Marks[i],
		})
		if err != nil {
			return n, fmt.Errorf("%s: %w", subject, err)
		}
		n++
	}
	return n, nil
}
