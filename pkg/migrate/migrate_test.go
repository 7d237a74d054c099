package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calderapos/register-edge/pkg/migrate"
)

func TestQueuedSalesMigrationContainsColumns(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_queued_sales.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no queued_sales migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS queued_sales",
		"status TEXT NOT NULL DEFAULT 'pending'",
		"payload_version INTEGER NOT NULL",
		"attempt_count INTEGER NOT NULL DEFAULT 0",
		"flagged_for_review BOOLEAN NOT NULL DEFAULT FALSE",
		"ON queued_sales (status, created_at)",
		"DROP TABLE IF EXISTS queued_sales",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Register Totals!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_register_totals.sql") {
		t.Errorf("unexpected filename %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)
	for _, sub := range []string{"-- +goose Up", "-- +goose Down", "-- rollback add_register_totals"} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	if _, err := migrate.CreateSQLMigration(dir, ""); err == nil {
		t.Errorf("expected error for empty name")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Errorf("expected error for name with no usable characters")
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestGooseDialect(t *testing.T) {
	cases := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{driver: "sqlite", want: "sqlite3"},
		{driver: "postgres", want: "postgres"},
		{driver: "mysql", wantErr: true},
	}

	for _, tc := range cases {
		got, err := migrate.GooseDialect(tc.driver)
		if tc.wantErr {
			if err == nil {
				t.Errorf("driver %q: expected error, got %q", tc.driver, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("driver %q: unexpected error: %v", tc.driver, err)
			continue
		}
		if got != tc.want {
			t.Errorf("driver %q: got %q, want %q", tc.driver, got, tc.want)
		}
	}
}
