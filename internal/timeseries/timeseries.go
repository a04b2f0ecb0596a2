// Package timeseries buckets the corpus into per-channel monthly message
// counts, the dataset behind the message-volume chart. Rendering the chart
// itself is left to the external plotting path.
package timeseries

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"chanmine/internal/normalize"
)

// Bucket is one channel's message count for one month.
type Bucket struct {
	Channel string
	Month   string // "2006-01"
	Count   int
}

// MonthlyCounts buckets records by channel and month, sorted by channel
// then month.
func MonthlyCounts(records []*normalize.Record) []Bucket {
	type key struct {
		channel string
		month   string
	}

	counts := map[key]int{}
	for _, rec := range records {
		counts[key{rec.Channel, rec.Date.UTC().Format("2006-01")}]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for k, n := range counts {
		buckets = append(buckets, Bucket{Channel: k.channel, Month: k.month, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Channel != buckets[j].Channel {
			return buckets[i].Channel < buckets[j].Channel
		}
		return buckets[i].Month < buckets[j].Month
	})

	return buckets
}

// WriteCSV writes the buckets as channel_username,month,count rows.
func WriteCSV(path string, buckets []Bucket) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create timeseries file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"channel_username", "month", "count"}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write timeseries header: %w", err)
	}
	for _, b := range buckets {
		if err := w.Write([]string{b.Channel, b.Month, strconv.Itoa(b.Count)}); err != nil {
			f.Close()
			return fmt.Errorf("failed to write timeseries row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush timeseries: %w", err)
	}
	return f.Close()
}
