package links

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/listing-comb/app/crawl"
	"github.com/lysyi3m/listing-comb/app/database"
)

// state is everything the Store guards. Mutations work on a copy which is
// swapped in only after it was persisted.
type state struct {
	links     []Link
	index     map[string]int
	blacklist map[string]struct{}
	lastBatch []string
}

func (s *state) clone() *state {
	links := make([]Link, len(s.links))
	for i, link := range s.links {
		links[i] = link.clone()
	}

	return &state{
		links:     links,
		index:     maps.Clone(s.index),
		blacklist: maps.Clone(s.blacklist),
		lastBatch: slices.Clone(s.lastBatch),
	}
}

func (s *state) reindex() {
	s.index = make(map[string]int, len(s.links))
	for i, link := range s.links {
		s.index[link.URL] = i
	}
}

func (s *state) snapshot() *database.Snapshot {
	records := make([]database.LinkRecord, len(s.links))
	for i, link := range s.links {
		records[i] = toRecord(link)
	}

	blacklist := make([]string, 0, len(s.blacklist))
	for url := range s.blacklist {
		blacklist = append(blacklist, url)
	}
	slices.Sort(blacklist)

	return &database.Snapshot{Links: records, Blacklist: blacklist}
}

func (s *state) lastBatchSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.lastBatch))
	for _, url := range s.lastBatch {
		set[url] = struct{}{}
	}
	return set
}

// Store owns the stored links and the blacklist of processed URLs.
type Store struct {
	mu    sync.RWMutex
	repo  database.Repository
	state *state
	now   func() time.Time
}

func NewStore(repo database.Repository) (*Store, error) {
	snapshot, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load: %v", ErrPersistence, err)
	}

	st := &state{
		links:     make([]Link, 0, len(snapshot.Links)),
		blacklist: make(map[string]struct{}, len(snapshot.Blacklist)),
	}

	seen := make(map[string]struct{}, len(snapshot.Links))
	for _, record := range snapshot.Links {
		if _, dup := seen[record.URL]; dup {
			slog.Warn("Dropping duplicate stored link", "url", record.URL)
			continue
		}
		seen[record.URL] = struct{}{}
		st.links = append(st.links, fromRecord(record))
	}
	st.reindex()

	for _, url := range snapshot.Blacklist {
		st.blacklist[url] = struct{}{}
	}
	// Every stored link counts as processed.
	for _, link := range st.links {
		st.blacklist[link.URL] = struct{}{}
	}

	slog.Info("Link store loaded", "links", len(st.links), "blacklist", len(st.blacklist))

	return &Store{
		repo:  repo,
		state: st,
		now:   time.Now,
	}, nil
}

// commit persists next and makes it the current state.
// Callers must hold the write lock.
func (s *Store) commit(next *state) error {
	if err := s.repo.Save(next.snapshot()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.state = next
	return nil
}

// Merge folds a crawl batch into the store. URLs never seen before become new
// links; known URLs only gain agencies; URLs blacklisted without a record stay
// suppressed. The new links become the last batch.
func (s *Store) Merge(batch crawl.Batch) (*MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	timestamp := s.now().Format(database.TimestampLayout)

	urls := make([]string, 0, len(batch))
	for url := range batch {
		urls = append(urls, url)
	}
	slices.Sort(urls)

	newLinks := []string{}
	for _, url := range urls {
		agencies := canonicalAgencies(batch[url])
		i, exists := next.index[url]
		_, blacklisted := next.blacklist[url]

		switch {
		case exists:
			next.links[i].AgencyNames = unionAgencies(next.links[i].AgencyNames, agencies)
			next.blacklist[url] = struct{}{}
		case blacklisted:
			continue
		default:
			next.links = append(next.links, Link{URL: url, ScrapedAt: timestamp, AgencyNames: agencies})
			next.index[url] = len(next.links) - 1
			next.blacklist[url] = struct{}{}
			newLinks = append(newLinks, url)
		}
	}

	next.lastBatch = newLinks

	if err := s.commit(next); err != nil {
		return nil, err
	}

	slog.Info("Batch merged", "found", len(batch), "new", len(newLinks), "total", len(next.links))

	return &MergeResult{NewLinks: newLinks, Total: len(next.links)}, nil
}

func canonicalAgencies(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		if name = CanonicalAgency(name); name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func unionAgencies(existing, added []string) []string {
	out := slices.Clone(existing)
	if out == nil {
		out = []string{}
	}
	for _, name := range added {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Delete removes every link matching c and forgets it in the blacklist, so a
// later crawl may discover it again. Links with an unreadable timestamp are
// never deleted.
func (s *Store) Delete(c Criteria) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := newMatcher(c, s.state.lastBatchSet())
	next := s.state.clone()
	kept := next.links[:0]
	removed := make(map[string]struct{})

	for _, link := range next.links {
		if !m.match(link) {
			kept = append(kept, link)
			continue
		}
		if _, ok := link.Time(); !ok {
			slog.Warn("Refusing to delete link with unreadable timestamp", "url", link.URL, "scraped_at", link.ScrapedAt)
			kept = append(kept, link)
			continue
		}
		removed[link.URL] = struct{}{}
		delete(next.blacklist, link.URL)
	}

	if len(removed) == 0 {
		return 0, nil
	}

	next.links = kept
	next.reindex()
	next.lastBatch = slices.DeleteFunc(next.lastBatch, func(url string) bool {
		_, ok := removed[url]
		return ok
	})

	if err := s.commit(next); err != nil {
		return 0, err
	}

	slog.Info("Links deleted", "count", len(removed), "makler", c.Agencies, "year", c.Year, "month", c.Month, "day", c.Day)

	return len(removed), nil
}

// ClearBlacklist forgets every processed URL that has no stored link.
// The blacklist is reset to the URLs of the stored links, so it stays a
// superset of them.
func (s *Store) ClearBlacklist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	next.blacklist = make(map[string]struct{}, len(next.links))
	for _, link := range next.links {
		next.blacklist[link.URL] = struct{}{}
	}

	if err := s.commit(next); err != nil {
		return err
	}

	slog.Info("Blacklist cleared")
	return nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.links)
}

func (s *Store) BlacklistSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.blacklist)
}

// LastBatch returns the URLs the most recent merge added, in merge order.
func (s *Store) LastBatch() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.lastBatch)
}

// Filter returns copies of every link matching c in insertion order.
func (s *Store) Filter(c Criteria) ([]Link, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m := newMatcher(c, s.state.lastBatchSet())
	out := []Link{}
	for _, link := range s.state.links {
		if m.match(link) {
			out = append(out, link.clone())
		}
	}
	return out, nil
}

func (s *Store) Group(c Criteria) (Groups, error) {
	filtered, err := s.Filter(c)
	if err != nil {
		return nil, err
	}
	return GroupByAgency(filtered, c), nil
}
