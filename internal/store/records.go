package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chanmine/internal/normalize"
)

// SaveRecord inserts one normalized record. Re-saving the same
// (channel, id) replaces the row, so a re-run against unchanged history
// leaves the corpus byte-identical.
func (s *Store) SaveRecord(rec *normalize.Record) error {
	urls, err := json.Marshal(rec.URLs)
	if err != nil {
		return fmt.Errorf("failed to marshal urls: %w", err)
	}

	var forwardedFrom, forwardError sql.NullString
	var forwardChannelID sql.NullInt64
	if rec.Forward != nil {
		forwardChannelID = sql.NullInt64{Int64: rec.Forward.ChannelID, Valid: true}
		if rec.Forward.Resolved() {
			forwardedFrom = sql.NullString{String: rec.Forward.Username, Valid: true}
		} else {
			forwardError = sql.NullString{String: rec.Forward.Err, Valid: true}
		}
	}

	_, err = s.conn.Exec(`
		INSERT INTO messages (
			channel_username, id, date, message, urls,
			forwarded_from, forward_channel_id, forward_error,
			views, forwards, replies, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_username, id) DO UPDATE SET
			date = excluded.date,
			message = excluded.message,
			urls = excluded.urls,
			forwarded_from = excluded.forwarded_from,
			forward_channel_id = excluded.forward_channel_id,
			forward_error = excluded.forward_error,
			views = excluded.views,
			forwards = excluded.forwards,
			replies = excluded.replies,
			fetched_at = excluded.fetched_at
	`, rec.Channel, rec.ID, rec.Date, rec.Text, string(urls),
		forwardedFrom, forwardChannelID, forwardError,
		nullInt(rec.Views), nullInt(rec.Forwards), nullInt(rec.Replies),
		time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to save record %s/%d: %w", rec.Channel, rec.ID, err)
	}

	return nil
}

// Append makes Store usable as an ingestion sink.
func (s *Store) Append(rec *normalize.Record) error {
	return s.SaveRecord(rec)
}

// ClearChannel drops all stored messages for a channel so the next fetch
// writes a fresh, complete snapshot.
func (s *Store) ClearChannel(channel string) error {
	if _, err := s.conn.Exec("DELETE FROM messages WHERE channel_username = ?", channel); err != nil {
		return fmt.Errorf("failed to clear channel %s: %w", channel, err)
	}
	return nil
}

const recordColumns = `channel_username, id, date, message, urls,
		       forwarded_from, forward_channel_id, forward_error,
		       views, forwards, replies`

// LoadRecords returns the full corpus in ingestion order.
func (s *Store) LoadRecords() ([]*normalize.Record, error) {
	return s.queryRecords("SELECT " + recordColumns + " FROM messages ORDER BY rowid")
}

// LoadChannelRecords returns the corpus rows for the given channels only,
// in ingestion order. The analyze phase reads through it so the report and
// summary cover exactly the configured channel set, even when the corpus
// still holds rows from channels configured in earlier runs.
func (s *Store) LoadChannelRecords(channels []string) ([]*normalize.Record, error) {
	if len(channels) == 0 {
		return []*normalize.Record{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(channels)), ",")
	args := make([]interface{}, len(channels))
	for i, channel := range channels {
		args[i] = channel
	}

	return s.queryRecords(
		"SELECT "+recordColumns+" FROM messages WHERE channel_username IN ("+placeholders+") ORDER BY rowid",
		args...)
}

func (s *Store) queryRecords(query string, args ...interface{}) ([]*normalize.Record, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	records := []*normalize.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// Channels returns the distinct channel usernames in the corpus, in first
// ingestion order.
func (s *Store) Channels() ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT channel_username FROM messages
		GROUP BY channel_username
		ORDER BY MIN(rowid)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	channels := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, name)
	}

	return channels, rows.Err()
}

// CountMessages returns the corpus size.
func (s *Store) CountMessages() (int, error) {
	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (*normalize.Record, error) {
	rec := &normalize.Record{}
	var urls string
	var forwardedFrom, forwardError sql.NullString
	var forwardChannelID sql.NullInt64
	var views, forwards, replies sql.NullInt64

	err := rows.Scan(&rec.Channel, &rec.ID, &rec.Date, &rec.Text, &urls,
		&forwardedFrom, &forwardChannelID, &forwardError,
		&views, &forwards, &replies)
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(urls), &rec.URLs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal urls: %w", err)
	}

	if forwardChannelID.Valid {
		rec.Forward = &normalize.Forward{
			ChannelID: forwardChannelID.Int64,
			Username:  forwardedFrom.String,
			Err:       forwardError.String,
		}
	}

	rec.Views = intPtr(views)
	rec.Forwards = intPtr(forwards)
	rec.Replies = intPtr(replies)

	return rec, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
