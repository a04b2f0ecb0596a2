package ingest

import (
	"context"
	"time"

	"chanmine/internal/fetch"
	"chanmine/internal/normalize"
	"chanmine/internal/store"
	"chanmine/internal/telegram"
)

// Sink receives normalized records as they are extracted.
type Sink interface {
	Append(rec *normalize.Record) error
}

// Audit records the outcome of each channel's ingestion. Store satisfies
// it; a nil Audit disables run bookkeeping.
type Audit interface {
	RecordRun(run store.ChannelRun) error
}

// Options tunes an ingestion run.
type Options struct {
	PageSize     int
	PageDelay    time.Duration
	RetryBackoff time.Duration
	MaxRetries   int

	// Progress builds a per-channel progress reporter; nil disables
	// progress output.
	Progress func(channel string) fetch.Progress

	// Logf emits human-readable progress and error lines; nil discards.
	Logf func(format string, args ...interface{})
}

// ChannelResult is the in-memory outcome for one channel.
type ChannelResult struct {
	Channel string
	Fetched int
	Written int
	Retries int
	Err     error
}

// Result is the outcome of a whole ingestion run.
type Result struct {
	ChannelsConfigured int
	MessagesFetched    int
	RecordsWritten     int
	Channels           []ChannelResult
}

// Run ingests the complete history of each configured channel, strictly in
// configuration order with no overlap, writing every extracted record to
// all sinks. Per-channel failures are isolated: a channel that cannot be
// resolved or exhausts its retry budget is reported in its result and the
// run moves on.
func Run(ctx context.Context, client telegram.Client, channels []string, sinks []Sink, audit Audit, opts Options) (*Result, error) {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}

	result := &Result{ChannelsConfigured: len(channels)}

	for _, channel := range channels {
		started := time.Now().UTC()
		cr := ingestChannel(ctx, client, channel, sinks, opts, logf)
		result.Channels = append(result.Channels, cr)
		result.MessagesFetched += cr.Fetched
		result.RecordsWritten += cr.Written

		if audit != nil {
			run := store.ChannelRun{
				Channel:         channel,
				StartedAt:       started,
				FinishedAt:      time.Now().UTC(),
				MessagesFetched: cr.Fetched,
				MessagesWritten: cr.Written,
				Retries:         cr.Retries,
				Completed:       cr.Err == nil,
			}
			if cr.Err != nil {
				run.Err = cr.Err.Error()
			}
			if err := audit.RecordRun(run); err != nil {
				logf("Warning: failed to record run for %s: %v", channel, err)
			}
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		if cr.Err != nil {
			logf("Skipping channel %s: %v", channel, cr.Err)
			continue
		}
		logf("Finished scraping messages from channel %s...", channel)
	}

	return result, nil
}

func ingestChannel(ctx context.Context, client telegram.Client, channel string, sinks []Sink, opts Options, logf func(string, ...interface{})) ChannelResult {
	cr := ChannelResult{Channel: channel}

	entity, err := client.ResolveEntity(ctx, channel)
	if err != nil {
		cr.Err = err
		return cr
	}

	var progress fetch.Progress = fetch.NopProgress{}
	if opts.Progress != nil {
		progress = opts.Progress(channel)
	}

	fetcher := fetch.New(client, fetch.Options{
		PageSize:  opts.PageSize,
		PageDelay: opts.PageDelay,
		Retry: fetch.RetryPolicy{
			MaxRetries: opts.MaxRetries,
			Backoff:    opts.RetryBackoff,
		},
		Progress: progress,
	})

	res, err := fetcher.FetchAll(ctx, entity, func(page []telegram.RawMessage) error {
		for _, raw := range page {
			rec := normalize.Extract(ctx, raw, channel, client)
			if rec == nil {
				continue
			}
			for _, sink := range sinks {
				if err := sink.Append(rec); err != nil {
					return err
				}
			}
			cr.Written++
		}
		return nil
	})

	cr.Fetched = res.Messages
	cr.Retries = res.Retries
	cr.Err = err

	return cr
}
