package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store is the durable message corpus, backed by SQLite.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates the corpus database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn, path: dbPath}

	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	var currentVersion int
	err := s.conn.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)

	if err == sql.ErrNoRows || (err != nil && isMissingTable(err)) {
		if _, err := s.conn.Exec(schemaSQL); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if currentVersion < schemaVersion {
		return fmt.Errorf("schema migration needed from version %d to %d (not implemented)", currentVersion, schemaVersion)
	}

	return nil
}

func isMissingTable(err error) bool {
	msg := err.Error()
	return msg == "no such table: schema_version" ||
		msg == "SQL logic error: no such table: schema_version"
}

// Stats summarizes the stored corpus.
type Stats struct {
	MessageCount    int64
	ChannelCount    int64
	ForwardCount    int64
	EarliestMessage *time.Time
	LatestMessage   *time.Time
	DatabaseSize    int64
}

// Stats returns corpus statistics.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.conn.QueryRow("SELECT COUNT(*) FROM messages").Scan(&stats.MessageCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	err = s.conn.QueryRow("SELECT COUNT(DISTINCT channel_username) FROM messages").Scan(&stats.ChannelCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count channels: %w", err)
	}

	err = s.conn.QueryRow("SELECT COUNT(*) FROM messages WHERE forwarded_from IS NOT NULL").Scan(&stats.ForwardCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count forwards: %w", err)
	}

	// Select the column itself rather than MIN/MAX so the driver keeps the
	// declared timestamp type and hands back time.Time.
	var earliest, latest time.Time
	err = s.conn.QueryRow("SELECT date FROM messages ORDER BY date ASC LIMIT 1").Scan(&earliest)
	if err == nil {
		stats.EarliestMessage = &earliest
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get earliest message: %w", err)
	}
	err = s.conn.QueryRow("SELECT date FROM messages ORDER BY date DESC LIMIT 1").Scan(&latest)
	if err == nil {
		stats.LatestMessage = &latest
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}
