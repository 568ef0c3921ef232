package database

import (
	"path/filepath"
	"testing"
)

func TestOpen_RunsMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "data", "links.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected clean version 1, got %d (dirty=%v)", version, dirty)
	}
}

func TestSQLiteRepository_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	repo := NewSQLiteRepository(db)

	snapshot := &Snapshot{
		Links: []LinkRecord{
			{URL: "https://www.kleinanzeigen.de/s-anzeige/z/9", ScrapedAt: "2025-02-01T08:00:00.000000", AgencyNames: []string{"Zeta", "Alpha"}},
			{URL: "https://www.kleinanzeigen.de/s-anzeige/a/1", ScrapedAt: "2025-02-02T08:00:00.000000"},
		},
		Blacklist: []string{
			"https://www.kleinanzeigen.de/s-anzeige/z/9",
			"https://www.kleinanzeigen.de/s-anzeige/a/1",
			"https://www.kleinanzeigen.de/s-anzeige/gone/5",
		},
	}

	if err := repo.Save(snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	repo = NewSQLiteRepository(db)
	defer repo.Close()

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(loaded.Links))
	}
	if loaded.Links[0].URL != "https://www.kleinanzeigen.de/s-anzeige/z/9" {
		t.Errorf("Expected insertion order to be preserved, got %s first", loaded.Links[0].URL)
	}
	if names := loaded.Links[0].AgencyNames; len(names) != 2 || names[0] != "Zeta" || names[1] != "Alpha" {
		t.Errorf("Unexpected agencies: %v", names)
	}
	if names := loaded.Links[1].AgencyNames; names == nil || len(names) != 0 {
		t.Errorf("Expected empty agency list, got %v", names)
	}
	if len(loaded.Blacklist) != 3 {
		t.Errorf("Expected 3 blacklist entries, got %d", len(loaded.Blacklist))
	}
}

func TestSQLiteRepository_Save_ReplacesSnapshot(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "links.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	repo := NewSQLiteRepository(db)
	defer repo.Close()

	first := &Snapshot{
		Links:     []LinkRecord{{URL: "u1", ScrapedAt: "2025-01-01T00:00:00.000000"}, {URL: "u2", ScrapedAt: "2025-01-01T00:00:00.000000"}},
		Blacklist: []string{"u1", "u2"},
	}
	if err := repo.Save(first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := &Snapshot{
		Links:     []LinkRecord{{URL: "u2", ScrapedAt: "2025-01-01T00:00:00.000000"}},
		Blacklist: []string{"u2"},
	}
	if err := repo.Save(second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Links) != 1 || loaded.Links[0].URL != "u2" {
		t.Errorf("Expected only u2 to remain, got %+v", loaded.Links)
	}
	if len(loaded.Blacklist) != 1 || loaded.Blacklist[0] != "u2" {
		t.Errorf("Expected only u2 in blacklist, got %v", loaded.Blacklist)
	}
}

func TestSQLiteRepository_Save_RollsBackOnFailure(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "links.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	repo := NewSQLiteRepository(db)
	defer repo.Close()

	good := &Snapshot{
		Links:     []LinkRecord{{URL: "u1", ScrapedAt: "2025-01-01T00:00:00.000000"}},
		Blacklist: []string{"u1"},
	}
	if err := repo.Save(good); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	duplicate := &Snapshot{
		Links: []LinkRecord{
			{URL: "u2", ScrapedAt: "2025-01-01T00:00:00.000000"},
			{URL: "u2", ScrapedAt: "2025-01-01T00:00:00.000000"},
		},
		Blacklist: []string{"u2"},
	}
	if err := repo.Save(duplicate); err == nil {
		t.Fatal("Expected duplicate primary key to fail")
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Links) != 1 || loaded.Links[0].URL != "u1" {
		t.Errorf("Expected failed save to leave previous snapshot intact, got %+v", loaded.Links)
	}
	if len(loaded.Blacklist) != 1 || loaded.Blacklist[0] != "u1" {
		t.Errorf("Expected previous blacklist intact, got %v", loaded.Blacklist)
	}
}
