package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens the SQLite file at path, creating it if needed, and migrates
// the schema to the latest version.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	slog.Debug("Database migrated", "path", path, "version", version, "dirty", dirty)

	return db, nil
}

// SQLiteRepository stores the snapshot in two tables and replaces both in a
// single transaction.
type SQLiteRepository struct {
	db *DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load() (*Snapshot, error) {
	snapshot := &Snapshot{
		Links:     []LinkRecord{},
		Blacklist: []string{},
	}

	rows, err := r.db.Query(`SELECT url, scraped_at, makler_names FROM links ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record LinkRecord
		var names string
		if err := rows.Scan(&record.URL, &record.ScrapedAt, &names); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}

		if err := json.Unmarshal([]byte(names), &record.AgencyNames); err != nil {
			return nil, fmt.Errorf("failed to decode makler_names of %s: %w", record.URL, err)
		}
		if record.AgencyNames == nil {
			record.AgencyNames = []string{}
		}

		snapshot.Links = append(snapshot.Links, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}

	blacklistRows, err := r.db.Query(`SELECT url FROM blacklist ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer blacklistRows.Close()

	for blacklistRows.Next() {
		var url string
		if err := blacklistRows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		snapshot.Blacklist = append(snapshot.Blacklist, url)
	}
	if err := blacklistRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blacklist: %w", err)
	}

	return snapshot, nil
}

func (r *SQLiteRepository) Save(snapshot *Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM blacklist`); err != nil {
		return fmt.Errorf("failed to clear blacklist: %w", err)
	}

	linkStmt, err := tx.Prepare(`INSERT INTO links (url, scraped_at, makler_names, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for i, record := range snapshot.Links {
		names := record.AgencyNames
		if names == nil {
			names = []string{}
		}

		encoded, err := json.Marshal(names)
		if err != nil {
			return fmt.Errorf("failed to encode makler_names of %s: %w", record.URL, err)
		}

		if _, err := linkStmt.Exec(record.URL, record.ScrapedAt, string(encoded), i); err != nil {
			return fmt.Errorf("failed to insert link %s: %w", record.URL, err)
		}
	}

	blacklistStmt, err := tx.Prepare(`INSERT OR IGNORE INTO blacklist (url) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare blacklist insert: %w", err)
	}
	defer blacklistStmt.Close()

	for _, url := range snapshot.Blacklist {
		if _, err := blacklistStmt.Exec(url); err != nil {
			return fmt.Errorf("failed to insert blacklist entry %s: %w", url, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
