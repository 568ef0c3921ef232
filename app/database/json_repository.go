package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
)

type linksFile struct {
	Links []json.RawMessage `json:"links"`
}

type blacklistFile struct {
	Blacklist []string `json:"blacklist"`
}

// storedRecord tolerates makler_names written as a single string.
type storedRecord struct {
	URL         string          `json:"url"`
	ScrapedAt   string          `json:"scraped_at"`
	AgencyNames json.RawMessage `json:"makler_names"`
}

// JSONRepository keeps links and blacklist in two JSON files.
type JSONRepository struct {
	linksPath     string
	blacklistPath string
	now           func() time.Time
}

var _ Repository = (*JSONRepository)(nil)

func NewJSONRepository(linksPath, blacklistPath string) *JSONRepository {
	return &JSONRepository{
		linksPath:     linksPath,
		blacklistPath: blacklistPath,
		now:           time.Now,
	}
}

func (r *JSONRepository) Load() (*Snapshot, error) {
	links, err := r.loadLinks()
	if err != nil {
		return nil, err
	}

	blacklist, err := r.loadBlacklist()
	if err != nil {
		return nil, err
	}

	return &Snapshot{Links: links, Blacklist: blacklist}, nil
}

func (r *JSONRepository) loadLinks() ([]LinkRecord, error) {
	data, err := os.ReadFile(r.linksPath)
	if errors.Is(err, os.ErrNotExist) {
		return []LinkRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read links file: %w", err)
	}

	var file linksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse links file %s: %w", r.linksPath, err)
	}

	loadedAt := r.now().Format(TimestampLayout)
	records := make([]LinkRecord, 0, len(file.Links))
	legacy := 0

	for i, raw := range file.Links {
		raw = bytes.TrimSpace(raw)

		if len(raw) > 0 && raw[0] == '"' {
			var url string
			if err := json.Unmarshal(raw, &url); err != nil {
				return nil, fmt.Errorf("failed to parse link %d: %w", i, err)
			}
			records = append(records, LinkRecord{URL: url, ScrapedAt: loadedAt, AgencyNames: []string{}})
			legacy++
			continue
		}

		var stored storedRecord
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, fmt.Errorf("failed to parse link %d: %w", i, err)
		}

		names, err := decodeAgencyNames(stored.AgencyNames)
		if err != nil {
			return nil, fmt.Errorf("failed to parse makler_names of %s: %w", stored.URL, err)
		}

		records = append(records, LinkRecord{URL: stored.URL, ScrapedAt: stored.ScrapedAt, AgencyNames: names})
	}

	if legacy > 0 {
		slog.Info("Upgraded legacy link entries", "file", r.linksPath, "count", legacy)
	}

	return records, nil
}

func decodeAgencyNames(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, err
		}
		if name == "" {
			return []string{}, nil
		}
		return []string{name}, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *JSONRepository) loadBlacklist() ([]string, error) {
	data, err := os.ReadFile(r.blacklistPath)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blacklist file: %w", err)
	}

	var file blacklistFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse blacklist file %s: %w", r.blacklistPath, err)
	}

	if file.Blacklist == nil {
		return []string{}, nil
	}
	return file.Blacklist, nil
}

// Save writes both files to temporary siblings first and renames them into
// place only after both were written. Each rename is atomic but the pair is
// not: a crash between them leaves a new links file next to the previous
// blacklist. Loading re-blacklists every stored link, which repairs that
// state. SQLiteRepository commits both in one transaction.
func (r *JSONRepository) Save(snapshot *Snapshot) error {
	links := slices.Clone(snapshot.Links)
	if links == nil {
		links = []LinkRecord{}
	}
	for i := range links {
		if links[i].AgencyNames == nil {
			links[i].AgencyNames = []string{}
		}
	}

	blacklist := slices.Clone(snapshot.Blacklist)
	if blacklist == nil {
		blacklist = []string{}
	}
	slices.Sort(blacklist)

	linksTmp, err := writeTemp(r.linksPath, struct {
		Links []LinkRecord `json:"links"`
	}{links})
	if err != nil {
		return fmt.Errorf("failed to write links file: %w", err)
	}

	blacklistTmp, err := writeTemp(r.blacklistPath, blacklistFile{Blacklist: blacklist})
	if err != nil {
		os.Remove(linksTmp)
		return fmt.Errorf("failed to write blacklist file: %w", err)
	}

	if err := os.Rename(linksTmp, r.linksPath); err != nil {
		os.Remove(linksTmp)
		os.Remove(blacklistTmp)
		return fmt.Errorf("failed to replace links file: %w", err)
	}

	if err := os.Rename(blacklistTmp, r.blacklistPath); err != nil {
		os.Remove(blacklistTmp)
		return fmt.Errorf("failed to replace blacklist file: %w", err)
	}

	return nil
}

func writeTemp(path string, v any) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

func (r *JSONRepository) Close() error {
	return nil
}
