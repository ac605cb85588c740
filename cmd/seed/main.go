package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/config"
	"github.com/hackgods/practice-records/internal/logging"
	"github.com/hackgods/practice-records/internal/practice"
	"github.com/hackgods/practice-records/internal/snapshot"
)

var (
	reasons        = []string{"Consultation", "Adjustment", "Bracket repair", "Retainer check", "Records visit", "Debond"}
	providers      = []string{"Dr. Patel", "Dr. Nguyen", "Dr. Okafor"}
	diagnoses      = []string{"Class II malocclusion", "Crowding", "Crossbite", "Open bite", "Deep bite", "Spacing"}
	treatmentTypes = []string{"Traditional braces", "Clear aligners", "Palatal expander", "Retainer only"}
	photoTypes     = []string{"Frontal", "Profile", "Intraoral", "Smile"}
	procedures     = []string{"Wire change", "Bracket rebond", "Elastic change", "IPR", "Scan", "Cleaning"}
	insurers       = []string{"Delta Dental", "MetLife", "Cigna", "Aetna", "Self-pay"}
)

// seed fills the configured backend with demo data. It refuses to run
// against a document that already has patients unless SEED_FORCE is set.
func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("prod", "info")
		l.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Str("backend", cfg.SnapshotBackend).Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	backend, err := snapshot.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open snapshot backend")
	}
	defer backend.Close()

	store := practice.NewStore(backend, practice.WithLogger(logger))
	if err := restoreForSeed(ctx, store, os.Getenv("SEED_FORCE") != ""); err != nil {
		logger.Fatal().Err(err).Msg("refusing to seed")
	}

	gofakeit.Seed(time.Now().UnixNano())

	count := getInt("SEED_PATIENTS", 25)
	if err := seedPractice(ctx, store, logger, count); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	logger.Info().Int("patients", count).Msg("seed complete")
}

// restoreForSeed loads the existing document. Seeding on top of a document
// that could not be read would overwrite it, so any restore error stops here.
func restoreForSeed(ctx context.Context, store *practice.Store, force bool) error {
	if res := store.Restore(ctx); res.Err != nil {
		return fmt.Errorf("restore snapshot: %w", res.Err)
	}
	if n := len(store.Patients()); n > 0 && !force {
		return fmt.Errorf("document already has %d patients, set SEED_FORCE=1 to add more", n)
	}
	return nil
}

func seedPractice(ctx context.Context, store *practice.Store, logger zerolog.Logger, count int) error {
	today := time.Now()
	for i := 0; i < count; i++ {
		p, err := store.CreatePatient(ctx, practice.PatientInput{
			Name:             gofakeit.Name(),
			Phone:            gofakeit.Phone(),
			Email:            gofakeit.Email(),
			DateOfBirth:      gofakeit.DateRange(today.AddDate(-40, 0, 0), today.AddDate(-8, 0, 0)).Format(practice.DateLayout),
			Insurance:        gofakeit.RandomString(insurers),
			Address:          fmt.Sprintf("%s, %s", gofakeit.Street(), gofakeit.City()),
			EmergencyContact: gofakeit.Name(),
			EmergencyPhone:   gofakeit.Phone(),
		})
		if err != nil {
			return fmt.Errorf("create patient: %w", err)
		}

		visits := gofakeit.Number(1, 3)
		for j := 0; j < visits; j++ {
			date := gofakeit.DateRange(today.AddDate(0, 0, -14), today.AddDate(0, 0, 28))
			if _, err := store.CreateAppointment(ctx, practice.AppointmentInput{
				PatientID:       p.ID,
				Date:            date.Format(practice.DateLayout),
				Time:            fmt.Sprintf("%02d:%02d", gofakeit.Number(8, 16), 15*gofakeit.Number(0, 3)),
				DurationMinutes: practice.Num(float64(15 * gofakeit.Number(1, 4))),
				Reason:          gofakeit.RandomString(reasons),
				Provider:        gofakeit.RandomString(providers),
			}); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
		}

		if !gofakeit.Bool() {
			continue
		}

		start := gofakeit.DateRange(today.AddDate(-2, 0, 0), today)
		status := practice.PlanActive
		completed := start.AddDate(0, 18, 0).Before(today)
		if completed {
			status = "Completed"
		}
		plan, err := store.CreateTreatmentPlan(ctx, practice.TreatmentPlanInput{
			PatientID:         p.ID,
			Diagnosis:         gofakeit.RandomString(diagnoses),
			TreatmentType:     gofakeit.RandomString(treatmentTypes),
			StartDate:         start.Format(practice.DateLayout),
			TotalCost:         practice.Num(gofakeit.Price(2500, 8000)),
			InsuranceCoverage: practice.Num(gofakeit.Price(0, 2000)),
			Phases: []practice.Phase{
				{Name: "Alignment", DurationMonths: 6},
				{Name: "Finishing", DurationMonths: 12},
			},
			Status: status,
		})
		if err != nil {
			return fmt.Errorf("create treatment plan: %w", err)
		}

		if _, err := store.CreateTreatmentRecord(ctx, practice.TreatmentRecordInput{
			PatientID:           p.ID,
			Date:                start.Format(practice.DateLayout),
			ProceduresPerformed: []string{gofakeit.RandomString(procedures)},
			Provider:            gofakeit.RandomString(providers),
			PhotosTaken:         true,
		}); err != nil {
			return fmt.Errorf("create treatment record: %w", err)
		}

		if _, err := store.CreateProgressPhoto(ctx, practice.ProgressPhotoInput{
			PatientID:       p.ID,
			TreatmentPlanID: &plan.ID,
			Date:            start.Format(practice.DateLayout),
			PhotoType:       gofakeit.RandomString(photoTypes),
			FilePath:        fmt.Sprintf("photos/%d/%s.jpg", p.ID, start.Format("20060102")),
		}); err != nil {
			return fmt.Errorf("create progress photo: %w", err)
		}

		if completed {
			if _, err := store.CreateOutcome(ctx, practice.OutcomeInput{
				PatientID:           p.ID,
				TreatmentPlanID:     plan.ID,
				CompletionDate:      start.AddDate(0, 18, 0).Format(practice.DateLayout),
				SuccessRating:       practice.Num(float64(gofakeit.Number(6, 10))),
				PatientSatisfaction: practice.Num(float64(gofakeit.Number(5, 10))),
				RetentionAppliance:  "Fixed retainer",
			}); err != nil {
				return fmt.Errorf("create outcome: %w", err)
			}
		}

		if (i+1)%10 == 0 {
			logger.Info().Int("done", i+1).Int("total", count).Msg("patients seeded")
		}
	}
	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
