package database

// Repository persists whole snapshots. Save replaces everything stored
// before; implementations must not leave a partially written snapshot behind.
type Repository interface {
	Load() (*Snapshot, error)
	Save(snapshot *Snapshot) error
	Close() error
}
