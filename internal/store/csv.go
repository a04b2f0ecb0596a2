package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chanmine/internal/normalize"
)

// csvHeader is the master CSV schema. Column order is part of the contract;
// downstream consumers parse by position.
var csvHeader = []string{
	"channel_username", "id", "date", "message", "url",
	"forwarded_from", "views", "forwards", "replies",
}

// CSVSink writes normalized records to the master CSV file as they are
// ingested. It implements the same Append contract as Store.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink creates (or truncates) the master CSV and writes the header.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	return &CSVSink{f: f, w: w}, nil
}

// Append writes one record as a CSV row.
func (c *CSVSink) Append(rec *normalize.Record) error {
	if err := c.w.Write(csvRow(rec)); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (c *CSVSink) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return c.f.Close()
}

// WriteCSV writes the complete record set to path in one pass, used by the
// export command to recreate the master CSV from the stored corpus.
func WriteCSV(path string, records []*normalize.Record) error {
	sink, err := NewCSVSink(path)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := sink.Append(rec); err != nil {
			sink.Close()
			return err
		}
	}

	return sink.Close()
}

func csvRow(rec *normalize.Record) []string {
	return []string{
		rec.Channel,
		strconv.Itoa(rec.ID),
		rec.Date.UTC().Format(time.RFC3339),
		rec.Text,
		strings.Join(rec.URLs, ", "),
		rec.Forward.Legacy(),
		formatCount(rec.Views),
		formatCount(rec.Forwards),
		formatCount(rec.Replies),
	}
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
