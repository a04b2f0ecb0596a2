package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ChannelRun is the audit record for one channel within one ingestion run.
type ChannelRun struct {
	Channel         string
	StartedAt       time.Time
	FinishedAt      time.Time
	MessagesFetched int
	MessagesWritten int
	Retries         int
	Completed       bool
	Err             string
}

// RecordRun appends a channel-run audit row.
func (s *Store) RecordRun(run ChannelRun) error {
	var errText sql.NullString
	if run.Err != "" {
		errText = sql.NullString{String: run.Err, Valid: true}
	}

	_, err := s.conn.Exec(`
		INSERT INTO runs (
			channel_username, started_at, finished_at,
			messages_fetched, messages_written, retries, completed, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Channel, run.StartedAt, run.FinishedAt,
		run.MessagesFetched, run.MessagesWritten, run.Retries, run.Completed, errText)

	if err != nil {
		return fmt.Errorf("failed to record run for %s: %w", run.Channel, err)
	}

	return nil
}

// LastRuns returns the most recent audit row per channel.
func (s *Store) LastRuns() ([]ChannelRun, error) {
	rows, err := s.conn.Query(`
		SELECT channel_username, started_at, finished_at,
		       messages_fetched, messages_written, retries, completed, error
		FROM runs
		WHERE id IN (SELECT MAX(id) FROM runs GROUP BY channel_username)
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	defer rows.Close()

	runs := []ChannelRun{}
	for rows.Next() {
		var run ChannelRun
		var errText sql.NullString
		err := rows.Scan(&run.Channel, &run.StartedAt, &run.FinishedAt,
			&run.MessagesFetched, &run.MessagesWritten, &run.Retries,
			&run.Completed, &errText)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Err = errText.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
