package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestDiscoverMigrations_SortedWithChecksums(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"002_pendency.sql": "SELECT 2;",
		"001_init.sql":     "SELECT 1;",
		"README.md":        "ignored",
	})

	got, err := discoverMigrations(dir)
	if err != nil {
		t.Fatalf("discoverMigrations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != "001" || got[1].Version != "002" {
		t.Errorf("Expected sorted versions 001, 002; got %s, %s", got[0].Version, got[1].Version)
	}
	if got[0].Checksum == "" || got[0].Checksum == got[1].Checksum {
		t.Errorf("Expected distinct checksums, got %q and %q", got[0].Checksum, got[1].Checksum)
	}
}

func TestDiscoverMigrations_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"duplicate version": {"001_a.sql": "", "001_b.sql": ""},
		"missing prefix":    {"init.sql": ""},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := discoverMigrations(writeFiles(t, files)); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestMigrationsDirectoryIsValid(t *testing.T) {
	got, err := discoverMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("repository migrations are invalid: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Expected at least one migration")
	}
}
