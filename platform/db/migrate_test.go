package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsDeclareExclusiveIndex(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected embedded migrations")
	}

	found := false
	for _, entry := range entries {
		body, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		text := string(body)
		if !strings.Contains(text, "-- +goose Up") {
			t.Fatalf("%s is missing a goose Up marker", entry.Name())
		}
		if strings.Contains(text, "ux_bookings_exclusive_active") {
			found = true
			if !strings.Contains(text, "WHERE capacity_policy = 'exclusive' AND status IN ('scheduled', 'confirmed')") {
				t.Fatalf("exclusive index must be partial on active exclusive bookings")
			}
		}
	}
	if !found {
		t.Fatalf("expected ux_bookings_exclusive_active index in migrations")
	}
}

func TestEmbeddedMigrationsKeepLineageSingleChain(t *testing.T) {
	body, err := fs.ReadFile(migrationsFS, "migrations/00004_single_successor.sql")
	if err != nil {
		t.Fatalf("read single successor migration: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "CREATE UNIQUE INDEX ux_bookings_parent") {
		t.Fatalf("expected a unique index on parent_booking_id")
	}
	if !strings.Contains(text, "WHERE parent_booking_id IS NOT NULL") {
		t.Fatalf("parent index must ignore lineage roots")
	}
}
