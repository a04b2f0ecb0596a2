// Package attribution turns the normalized message corpus into a
// forwarding-attribution report: for every channel that content was
// forwarded from (the target), the share of forwards contributed by each
// scraped channel (the sources).
package attribution

import (
	"context"
	"errors"
	"math"
	"sort"

	"chanmine/internal/normalize"
	"chanmine/internal/telegram"
)

// SourceShare is one source channel's contribution to a target.
type SourceShare struct {
	Count   int
	Percent float64
}

// Row is the attribution breakdown for one target channel. Counts over all
// sources always sum to TotalShares; percentages are rounded independently
// and may not sum to exactly 100.
type Row struct {
	Target      string
	TotalShares int
	Subscribers *int
	Sources     map[string]SourceShare
}

// Report is the full attribution table.
type Report struct {
	Rows []Row
	// SourceColumns lists every contributing source in first-seen order
	// across the rows, defining the report's dynamic column set.
	SourceColumns []string
}

// Summary is the run's audit trail: four counts recomputable from the
// corpus alone.
type Summary struct {
	ChannelsConfigured int
	TotalMessages      int
	DistinctTargets    int
	ForwardingMessages int
}

// InfoClient is the slice of the platform client the aggregator needs.
type InfoClient interface {
	ChannelInfo(ctx context.Context, username string) (*telegram.ChannelInfo, error)
}

// BuildReport aggregates the corpus into the attribution table. Records
// without a resolved forward are excluded up front. Each retained target's
// subscriber count is fetched from the platform; a target that cannot be
// resolved is dropped from the report (logged, never fatal). Failures are
// isolated per target.
func BuildReport(ctx context.Context, records []*normalize.Record, client InfoClient, logf func(format string, args ...interface{})) (*Report, *Summary, error) {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	summary := &Summary{TotalMessages: len(records)}

	// Filter to resolved forwards and relabel: the scraped channel is the
	// source, the forward origin is the target.
	totals := map[string]int{}
	bySource := map[string]map[string]int{}
	for _, rec := range records {
		if !rec.Forward.Resolved() {
			continue
		}
		summary.ForwardingMessages++
		target := rec.Forward.Username
		totals[target]++
		if bySource[target] == nil {
			bySource[target] = map[string]int{}
		}
		bySource[target][rec.Channel]++
	}
	summary.DistinctTargets = len(totals)

	// Targets ordered by total shares descending, ties by name, so re-runs
	// over an unchanged corpus produce identical reports.
	targets := make([]string, 0, len(totals))
	for target := range totals {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool {
		if totals[targets[i]] != totals[targets[j]] {
			return totals[targets[i]] > totals[targets[j]]
		}
		return targets[i] < targets[j]
	})

	report := &Report{}
	seenSource := map[string]bool{}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		info, err := client.ChannelInfo(ctx, target)
		if err != nil {
			if errors.Is(err, telegram.ErrNotFound) {
				logf("User not found for target %s. Skipping...", target)
			} else {
				logf("An error occurred with target %s: %v. Continuing with the next target.", target, err)
			}
			continue
		}

		total := totals[target]
		row := Row{
			Target:      target,
			TotalShares: total,
			Sources:     make(map[string]SourceShare, len(bySource[target])),
		}
		subs := info.ParticipantsCount
		row.Subscribers = &subs

		for source, count := range bySource[target] {
			row.Sources[source] = SourceShare{
				Count:   count,
				Percent: roundShare(count, total),
			}
		}

		for _, source := range sortedSources(bySource[target]) {
			if !seenSource[source] {
				seenSource[source] = true
				report.SourceColumns = append(report.SourceColumns, source)
			}
		}

		report.Rows = append(report.Rows, row)
	}

	return report, summary, nil
}

// roundShare computes count/total as a percentage rounded to 2 decimals.
func roundShare(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*100*100) / 100
}

// sortedSources orders a target's sources by count descending, ties by name.
func sortedSources(counts map[string]int) []string {
	sources := make([]string, 0, len(counts))
	for source := range counts {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool {
		if counts[sources[i]] != counts[sources[j]] {
			return counts[sources[i]] > counts[sources[j]]
		}
		return sources[i] < sources[j]
	})
	return sources
}
