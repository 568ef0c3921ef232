package agency

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/listing-comb/app/crawl"
	"github.com/lysyi3m/listing-comb/app/database"
	"github.com/lysyi3m/listing-comb/app/links"
)

var (
	ErrNotFound = errors.New("makler not found")
	ErrExists   = errors.New("makler already exists")
	ErrInvalid  = errors.New("invalid makler")
)

type Agency struct {
	Name      string   `yaml:"name" json:"name"`
	Links     []string `yaml:"links" json:"links"`
	CreatedAt string   `yaml:"created_at" json:"created_at"`
	UpdatedAt string   `yaml:"updated_at" json:"updated_at"`
}

func (a *Agency) clone() *Agency {
	c := *a
	c.Links = slices.Clone(a.Links)
	if c.Links == nil {
		c.Links = []string{}
	}
	return &c
}

type registryFile struct {
	Makler map[string]*Agency `yaml:"makler"`
}

// Registry keeps agencies and their saved searches in a YAML file. Every
// mutation is written before it becomes visible.
type Registry struct {
	path     string
	agencies map[string]*Agency
	mu       sync.RWMutex
	now      func() time.Time
}

func NewRegistry(path string) *Registry {
	return &Registry{
		path:     path,
		agencies: make(map[string]*Agency),
		now:      time.Now,
	}
}

// Run loads the registry file. A missing file means an empty registry.
func (r *Registry) Run() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	agencies := make(map[string]*Agency, len(file.Makler))
	for key, agency := range file.Makler {
		if agency == nil {
			agency = &Agency{}
		}
		name := links.CanonicalAgency(key)
		if name == "" {
			return fmt.Errorf("%w: empty name in %s", ErrInvalid, r.path)
		}
		agency.Name = name
		agencies[name] = agency.clone()

		slog.Debug("Makler loaded", "makler", name, "links", len(agency.Links))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agencies = agencies

	return nil
}

func (r *Registry) save(agencies map[string]*Agency) error {
	data, err := yaml.Marshal(registryFile{Makler: agencies})
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write registry: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// update applies fn to a copy of the registry and keeps the copy only when it
// was saved. Callers must not hold the lock.
func (r *Registry) update(fn func(agencies map[string]*Agency) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*Agency, len(r.agencies))
	for name, agency := range r.agencies {
		next[name] = agency.clone()
	}

	if err := fn(next); err != nil {
		return err
	}

	if err := r.save(next); err != nil {
		return err
	}

	r.agencies = next
	return nil
}

func (r *Registry) timestamp() string {
	return r.now().Format(database.TimestampLayout)
}

func (r *Registry) Add(name string) (*Agency, error) {
	name = links.CanonicalAgency(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}

	var added *Agency
	err := r.update(func(agencies map[string]*Agency) error {
		if _, ok := agencies[name]; ok {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}

		now := r.timestamp()
		added = &Agency{Name: name, Links: []string{}, CreatedAt: now, UpdatedAt: now}
		agencies[name] = added
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Makler added", "makler", name)
	return added.clone(), nil
}

func (r *Registry) Delete(name string) error {
	name = links.CanonicalAgency(name)

	err := r.update(func(agencies map[string]*Agency) error {
		if _, ok := agencies[name]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		delete(agencies, name)
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Makler deleted", "makler", name)
	return nil
}

// AddLink attaches a saved search to an agency. Adding a link twice is a no-op.
func (r *Registry) AddLink(name, link string) (*Agency, error) {
	name = links.CanonicalAgency(name)
	if link == "" {
		return nil, fmt.Errorf("%w: link must not be empty", ErrInvalid)
	}

	var updated *Agency
	err := r.update(func(agencies map[string]*Agency) error {
		agency, ok := agencies[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if !slices.Contains(agency.Links, link) {
			agency.Links = append(agency.Links, link)
			agency.UpdatedAt = r.timestamp()
		}
		updated = agency
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Link added to makler", "makler", name, "link", link)
	return updated.clone(), nil
}

// RemoveLink detaches a saved search. Removing an unknown link is a no-op.
func (r *Registry) RemoveLink(name, link string) (*Agency, error) {
	name = links.CanonicalAgency(name)

	var updated *Agency
	err := r.update(func(agencies map[string]*Agency) error {
		agency, ok := agencies[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if i := slices.Index(agency.Links, link); i >= 0 {
			agency.Links = slices.Delete(agency.Links, i, i+1)
			agency.UpdatedAt = r.timestamp()
		}
		updated = agency
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Link removed from makler", "makler", name, "link", link)
	return updated.clone(), nil
}

func (r *Registry) Get(name string) (*Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agency, ok := r.agencies[links.CanonicalAgency(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return agency.clone(), nil
}

func (r *Registry) List() map[string]*Agency {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Agency, len(r.agencies))
	for name, agency := range r.agencies {
		out[name] = agency.clone()
	}
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.agencies))
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agencies)
}

// QueriesFor returns one query per distinct saved search of the named
// agencies. A search shared by several agencies is attributed to the one
// named last. Unknown names contribute nothing.
func (r *Registry) QueriesFor(names []string) []crawl.Query {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var order []string
	owner := make(map[string]string)

	for _, name := range names {
		name = links.CanonicalAgency(name)
		agency, ok := r.agencies[name]
		if !ok {
			slog.Warn("Unknown makler requested", "makler", name)
			continue
		}

		for _, link := range agency.Links {
			if _, seen := owner[link]; !seen {
				order = append(order, link)
			}
			owner[link] = name
		}
	}

	queries := make([]crawl.Query, 0, len(order))
	for _, link := range order {
		queries = append(queries, crawl.Query{URL: link, Agency: owner[link]})
	}
	return queries
}
