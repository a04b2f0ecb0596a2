package attribution

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ShareCell renders one source's contribution the way the report schema
// expects, e.g. "33.33% (2 messages)".
func (s SourceShare) ShareCell() string {
	return fmt.Sprintf("%.2f%% (%d messages)", s.Percent, s.Count)
}

// Header returns the report's column names: the three fixed columns plus
// one dynamic column per source.
func (r *Report) Header() []string {
	header := []string{"target", "total_shares", "subscribers"}
	return append(header, r.SourceColumns...)
}

// Table renders the report as rows of cells matching Header. Cells for
// sources that never forwarded from a given target are empty, not zero.
func (r *Report) Table() [][]string {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells := []string{row.Target, strconv.Itoa(row.TotalShares), ""}
		if row.Subscribers != nil {
			cells[2] = strconv.Itoa(*row.Subscribers)
		}
		for _, source := range r.SourceColumns {
			if share, ok := row.Sources[source]; ok {
				cells = append(cells, share.ShareCell())
			} else {
				cells = append(cells, "")
			}
		}
		rows = append(rows, cells)
	}
	return rows
}

// WriteCSV writes the attribution table to path.
func (r *Report) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(r.Header()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range r.Table() {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return f.Close()
}

// Format renders the run summary as the plain-text results block.
func (s *Summary) Format() string {
	return fmt.Sprintf(`
Here are the results:

1) A total of %d target channels were scraped for messages

2) A total of %d messages were scraped from the target channels

3) A total number of %d forwarded channels were found from the target channels

4) A total number of %d forwarded messages were found in the dataset
`, s.ChannelsConfigured, s.TotalMessages, s.DistinctTargets, s.ForwardingMessages)
}

// WriteText writes the summary block to path.
func (s *Summary) WriteText(path string) error {
	if err := os.WriteFile(path, []byte(s.Format()), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
