package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt", "010_c.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "archive.sql"), 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles failed: %v", err)
	}

	want := []string{"001_a.sql", "002_b.sql", "010_c.sql"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, files[i])
		}
	}

	if _, err := MigrationFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("MigrationFiles failed: %v", err)
	}
	if len(files) == 0 {
		t.Error("expected SQL migrations in the repository")
	}
}
