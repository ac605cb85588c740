package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hackgods/practice-records/internal/config"
)

// exerciseBackend runs the contract every backend must satisfy.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, err := b.Load(ctx); !errors.Is(err, ErrNotExist) {
		t.Fatalf("%s: expected ErrNotExist before the first save, got %v", b.Name(), err)
	}

	first := []byte(`{"version":1,"patients":{}}`)
	if err := b.Save(ctx, first); err != nil {
		t.Fatalf("%s: save: %v", b.Name(), err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("%s: load: %v", b.Name(), err)
	}
	if string(got) != string(first) {
		t.Errorf("%s: expected %s, got %s", b.Name(), first, got)
	}

	second := []byte(`{"version":1,"patients":{"1":{"name":"Jane"}}}`)
	if err := b.Save(ctx, second); err != nil {
		t.Fatalf("%s: second save: %v", b.Name(), err)
	}
	got, err = b.Load(ctx)
	if err != nil {
		t.Fatalf("%s: load: %v", b.Name(), err)
	}
	if string(got) != string(second) {
		t.Errorf("%s: expected the document to be replaced, got %s", b.Name(), got)
	}

	if p, ok := b.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			t.Errorf("%s: ping: %v", b.Name(), err)
		}
	}
}

func TestMemoryBackend(t *testing.T) {
	b := NewMemoryBackend()
	exerciseBackend(t, b)
	if b.Saves() != 2 {
		t.Errorf("expected 2 saves, got %d", b.Saves())
	}
}

func TestMemoryBackend_LoadReturnsCopy(t *testing.T) {
	b := NewMemoryBackend()
	if err := b.Save(context.Background(), []byte("abc")); err != nil {
		t.Fatal(err)
	}
	got, _ := b.Load(context.Background())
	got[0] = 'x'
	again, _ := b.Load(context.Background())
	if string(again) != "abc" {
		t.Errorf("stored document was modified through Load: %s", again)
	}
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice_data.json")
	b := NewFileBackend(path)
	exerciseBackend(t, b)

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "practice_data.json" {
		t.Errorf("expected only the document in the directory, got %v", entries)
	}
}

func TestFileBackend_SaveFailsForMissingDir(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "missing", "practice_data.json"))
	if err := b.Save(context.Background(), []byte("{}")); err == nil {
		t.Error("expected an error writing into a missing directory")
	}
}

func TestLevelDBBackend(t *testing.T) {
	b, err := OpenLevelDBBackend(filepath.Join(t.TempDir(), "practice.ldb"), "practice")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	exerciseBackend(t, b)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "data", "practice.db"), "practice")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	exerciseBackend(t, b)
}

func TestSQLiteBackend_NamesAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.db")
	ctx := context.Background()

	a, err := OpenSQLiteBackend(ctx, path, "clinic-a")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if err := a.Save(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}

	b, err := OpenSQLiteBackend(ctx, path, "clinic-b")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	if _, err := b.Load(ctx); !errors.Is(err, ErrNotExist) {
		t.Errorf("expected clinic-b to be empty, got %v", err)
	}
}

func TestOpen_LocalBackends(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg  config.Config
		name string
	}{
		{config.Config{SnapshotBackend: config.BackendFile, SnapshotPath: filepath.Join(dir, "doc.json")}, "file"},
		{config.Config{SnapshotBackend: config.BackendMemory}, "memory"},
		{config.Config{SnapshotBackend: config.BackendLevelDB, LevelDBPath: filepath.Join(dir, "ldb"), SnapshotName: "p"}, "leveldb"},
		{config.Config{SnapshotBackend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "p.db"), SnapshotName: "p"}, "sqlite"},
	}
	for _, tt := range tests {
		b, err := Open(context.Background(), tt.cfg)
		if err != nil {
			t.Fatalf("%s: open: %v", tt.name, err)
		}
		if b.Name() != tt.name {
			t.Errorf("expected backend %q, got %q", tt.name, b.Name())
		}
		_ = b.Close()
	}

	if _, err := Open(context.Background(), config.Config{SnapshotBackend: "etcd"}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestRedisKey(t *testing.T) {
	if got := RedisKey("practice"); got != "practice:snapshot:practice" {
		t.Errorf("unexpected key %q", got)
	}
}
