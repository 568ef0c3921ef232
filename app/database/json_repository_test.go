package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestJSONRepository(t *testing.T) (*JSONRepository, string) {
	t.Helper()

	dir := t.TempDir()
	repo := NewJSONRepository(filepath.Join(dir, "links.json"), filepath.Join(dir, "blacklist.json"))
	repo.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return repo, dir
}

func TestJSONRepository_Load_MissingFiles(t *testing.T) {
	repo, _ := newTestJSONRepository(t)

	snapshot, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snapshot.Links) != 0 || len(snapshot.Blacklist) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", snapshot)
	}
}

func TestJSONRepository_SaveAndLoad(t *testing.T) {
	repo, dir := newTestJSONRepository(t)

	snapshot := &Snapshot{
		Links: []LinkRecord{
			{URL: "https://www.kleinanzeigen.de/s-anzeige/b/2", ScrapedAt: "2025-03-01T10:00:00.000000", AgencyNames: []string{"Müller & Söhne"}},
			{URL: "https://www.kleinanzeigen.de/s-anzeige/a/1", ScrapedAt: "2025-03-02T11:00:00.000000"},
		},
		Blacklist: []string{
			"https://www.kleinanzeigen.de/s-anzeige/b/2",
			"https://www.kleinanzeigen.de/s-anzeige/a/1",
			"https://www.kleinanzeigen.de/s-anzeige/c/3",
		},
	}

	if err := repo.Save(snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "links.json"))
	if err != nil {
		t.Fatalf("Failed to read links file: %v", err)
	}
	if !strings.Contains(string(data), `"makler_names": []`) {
		t.Errorf("Expected empty makler_names to be written as array, got %s", data)
	}
	if !strings.Contains(string(data), "Müller & Söhne") {
		t.Errorf("Expected non-ASCII names to be written unescaped, got %s", data)
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(loaded.Links))
	}
	if loaded.Links[0].URL != snapshot.Links[0].URL {
		t.Errorf("Expected insertion order to be preserved, got %s first", loaded.Links[0].URL)
	}
	if len(loaded.Links[0].AgencyNames) != 1 || loaded.Links[0].AgencyNames[0] != "Müller & Söhne" {
		t.Errorf("Unexpected agencies: %v", loaded.Links[0].AgencyNames)
	}
	if len(loaded.Blacklist) != 3 {
		t.Errorf("Expected 3 blacklist entries, got %d", len(loaded.Blacklist))
	}

	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("Temporary file left behind: %s", entry.Name())
		}
	}
}

func TestJSONRepository_Load_LegacyLinks(t *testing.T) {
	repo, dir := newTestJSONRepository(t)

	legacy := `{"links": ["https://www.kleinanzeigen.de/s-anzeige/a/1", "https://www.kleinanzeigen.de/s-anzeige/b/2"]}`
	if err := os.WriteFile(filepath.Join(dir, "links.json"), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	snapshot, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(snapshot.Links) != 2 {
		t.Fatalf("Expected 2 upgraded links, got %d", len(snapshot.Links))
	}
	for _, link := range snapshot.Links {
		if link.ScrapedAt != "2025-03-14T09:30:00.000000" {
			t.Errorf("Expected load time as timestamp, got %q", link.ScrapedAt)
		}
		if link.AgencyNames == nil || len(link.AgencyNames) != 0 {
			t.Errorf("Expected empty agency list, got %v", link.AgencyNames)
		}
	}
}

func TestJSONRepository_Load_SingleAgencyString(t *testing.T) {
	repo, dir := newTestJSONRepository(t)

	content := `{"links": [
		{"url": "https://www.kleinanzeigen.de/s-anzeige/a/1", "scraped_at": "2025-01-01T00:00:00", "makler_names": "Schmidt"},
		{"url": "https://www.kleinanzeigen.de/s-anzeige/b/2", "scraped_at": "2025-01-01T00:00:00"}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "links.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	snapshot, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := snapshot.Links[0].AgencyNames; len(got) != 1 || got[0] != "Schmidt" {
		t.Errorf("Expected single agency to become a list, got %v", got)
	}
	if got := snapshot.Links[1].AgencyNames; got == nil || len(got) != 0 {
		t.Errorf("Expected missing agencies to become an empty list, got %v", got)
	}
}

func TestJSONRepository_Load_Corrupted(t *testing.T) {
	repo, dir := newTestJSONRepository(t)

	if err := os.WriteFile(filepath.Join(dir, "blacklist.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.Load(); err == nil {
		t.Error("Expected error for corrupted blacklist file")
	}
}

func TestJSONRepository_Save_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0644); err != nil {
		t.Fatal(err)
	}

	repo := NewJSONRepository(filepath.Join(blocker, "links.json"), filepath.Join(blocker, "blacklist.json"))

	if err := repo.Save(&Snapshot{}); err == nil {
		t.Error("Expected error when target directory is a file")
	}
}
