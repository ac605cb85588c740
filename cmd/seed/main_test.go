package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/practice"
	"github.com/hackgods/practice-records/internal/snapshot"
)

type unreachableBackend struct {
	snapshot.MemoryBackend
	saves int
}

func (b *unreachableBackend) Load(context.Context) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (b *unreachableBackend) Save(ctx context.Context, data []byte) error {
	b.saves++
	return b.MemoryBackend.Save(ctx, data)
}

func TestRestoreForSeed_LoadFailureStops(t *testing.T) {
	backend := &unreachableBackend{}
	store := practice.NewStore(backend)

	if err := restoreForSeed(context.Background(), store, true); err == nil {
		t.Fatal("expected an error when the document cannot be loaded")
	}
	if backend.saves != 0 {
		t.Errorf("nothing must be written, got %d saves", backend.saves)
	}
}

func TestRestoreForSeed_ExistingData(t *testing.T) {
	ctx := context.Background()
	backend := snapshot.NewMemoryBackend()
	if _, err := practice.NewStore(backend).CreatePatient(ctx, practice.PatientInput{Name: "Jane Doe"}); err != nil {
		t.Fatal(err)
	}

	if err := restoreForSeed(ctx, practice.NewStore(backend), false); err == nil {
		t.Error("expected a refusal without SEED_FORCE")
	}
	store := practice.NewStore(backend)
	if err := restoreForSeed(ctx, store, true); err != nil {
		t.Fatalf("expected force to allow seeding, got %v", err)
	}
	if len(store.Patients()) != 1 {
		t.Errorf("expected the existing patient to be restored")
	}
}

func TestSeedPractice(t *testing.T) {
	ctx := context.Background()
	store := practice.NewStore(snapshot.NewMemoryBackend())
	if err := restoreForSeed(ctx, store, false); err != nil {
		t.Fatalf("empty document: %v", err)
	}
	if err := seedPractice(ctx, store, zerolog.Nop(), 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n := len(store.Patients()); n != 5 {
		t.Errorf("expected 5 patients, got %d", n)
	}
	if len(store.Appointments()) < 5 {
		t.Errorf("expected at least one appointment per patient, got %d", len(store.Appointments()))
	}
}
