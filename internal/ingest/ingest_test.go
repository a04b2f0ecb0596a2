package ingest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"chanmine/internal/attribution"
	"chanmine/internal/normalize"
	"chanmine/internal/store"
	"chanmine/internal/telegram"
)

// memorySink collects records in ingestion order.
type memorySink struct {
	records []*normalize.Record
}

func (m *memorySink) Append(rec *normalize.Record) error {
	m.records = append(m.records, rec)
	return nil
}

// memoryAudit collects channel-run rows.
type memoryAudit struct {
	runs []store.ChannelRun
}

func (m *memoryAudit) RecordRun(run store.ChannelRun) error {
	m.runs = append(m.runs, run)
	return nil
}

// fakeClient simulates the platform for a fixed set of channels.
type fakeClient struct {
	histories map[string][]telegram.RawMessage // newest first
	usernames map[int64]string
	subs      map[string]int
}

func (f *fakeClient) ResolveEntity(ctx context.Context, ref string) (*telegram.Entity, error) {
	if _, ok := f.histories[ref]; !ok {
		return nil, fmt.Errorf("resolve %q: %w", ref, telegram.ErrNotFound)
	}
	return &telegram.Entity{ID: int64(len(ref)), Username: ref}, nil
}

func (f *fakeClient) History(ctx context.Context, entity *telegram.Entity, offsetID, limit int) ([]telegram.RawMessage, error) {
	page := []telegram.RawMessage{}
	for _, m := range f.histories[entity.Username] {
		if offsetID != 0 && m.ID >= offsetID {
			continue
		}
		page = append(page, m)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *fakeClient) ResolveChannelUsername(ctx context.Context, channelID int64) (string, error) {
	if name, ok := f.usernames[channelID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("channel %d missing from response", channelID)
}

func (f *fakeClient) ChannelInfo(ctx context.Context, username string) (*telegram.ChannelInfo, error) {
	subs, ok := f.subs[username]
	if !ok {
		return nil, fmt.Errorf("full channel %q: %w", username, telegram.ErrNotFound)
	}
	return &telegram.ChannelInfo{ParticipantsCount: subs}, nil
}

func scenarioClient() *fakeClient {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &fakeClient{
		histories: map[string][]telegram.RawMessage{
			"alice": {
				{ID: 3, Date: date, Text: "alice three"},
				{ID: 2, Date: date, Text: "alice two"},
				{ID: 1, Date: date, Text: "alice one"},
			},
			"bob": {
				{ID: 2, Date: date, Text: "from alice", Fwd: &telegram.ForwardHeader{ChannelID: 100}},
				{ID: 1, Date: date, Text: "from nowhere", Fwd: &telegram.ForwardHeader{ChannelID: 200}},
			},
		},
		usernames: map[int64]string{100: "alice"},
		subs:      map[string]int{"alice": 42},
	}
}

func TestRunEndToEnd(t *testing.T) {
	client := scenarioClient()
	sink := &memorySink{}
	audit := &memoryAudit{}

	result, err := Run(context.Background(), client, []string{"alice", "bob"},
		[]Sink{sink}, audit, Options{PageSize: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ChannelsConfigured != 2 {
		t.Errorf("expected 2 channels configured, got %d", result.ChannelsConfigured)
	}
	if result.MessagesFetched != 5 || result.RecordsWritten != 5 {
		t.Errorf("expected 5 fetched and 5 written, got %d/%d",
			result.MessagesFetched, result.RecordsWritten)
	}
	if len(sink.records) != 5 {
		t.Fatalf("expected 5 records in sink, got %d", len(sink.records))
	}

	// Channels are processed strictly in configuration order.
	for i, want := range []string{"alice", "alice", "alice", "bob", "bob"} {
		if sink.records[i].Channel != want {
			t.Errorf("record %d: expected channel %s, got %s", i, want, sink.records[i].Channel)
		}
	}

	if len(audit.runs) != 2 {
		t.Fatalf("expected 2 run rows, got %d", len(audit.runs))
	}
	for _, run := range audit.runs {
		if !run.Completed {
			t.Errorf("expected completed run for %s, got %+v", run.Channel, run)
		}
	}

	// Attribution over the corpus: exactly one row, alice, fully
	// attributed to bob. The unresolvable forward is excluded.
	report, summary, err := attribution.BuildReport(context.Background(), sink.records, client, nil)
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}

	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 attribution row, got %d", len(report.Rows))
	}
	row := report.Rows[0]
	if row.Target != "alice" || row.TotalShares != 1 {
		t.Errorf("unexpected row %+v", row)
	}
	if row.Subscribers == nil || *row.Subscribers != 42 {
		t.Errorf("expected 42 subscribers, got %v", row.Subscribers)
	}
	if cell := row.Sources["bob"].ShareCell(); cell != "100.00% (1 messages)" {
		t.Errorf("unexpected share cell %q", cell)
	}

	if summary.TotalMessages != 5 || summary.DistinctTargets != 1 || summary.ForwardingMessages != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRunIdempotentRerun(t *testing.T) {
	client := scenarioClient()

	first := &memorySink{}
	if _, err := Run(context.Background(), client, []string{"alice", "bob"},
		[]Sink{first}, nil, Options{PageSize: 2}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	second := &memorySink{}
	if _, err := Run(context.Background(), client, []string{"alice", "bob"},
		[]Sink{second}, nil, Options{PageSize: 3}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.records, second.records) {
		t.Errorf("re-run against unchanged history produced a different corpus")
	}
}

func TestRunIsolatesBadChannel(t *testing.T) {
	client := scenarioClient()
	sink := &memorySink{}
	audit := &memoryAudit{}

	result, err := Run(context.Background(), client, []string{"ghost", "alice"},
		[]Sink{sink}, audit, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Channels) != 2 {
		t.Fatalf("expected 2 channel results, got %d", len(result.Channels))
	}
	if result.Channels[0].Err == nil {
		t.Error("expected an error for the unresolvable channel")
	}
	if result.Channels[1].Err != nil {
		t.Errorf("expected alice to succeed, got %v", result.Channels[1].Err)
	}
	if result.RecordsWritten != 3 {
		t.Errorf("expected 3 records from alice, got %d", result.RecordsWritten)
	}

	if audit.runs[0].Completed || audit.runs[0].Err == "" {
		t.Errorf("expected a failed run row for ghost, got %+v", audit.runs[0])
	}
}

// cancellingClient cancels the run's context while resolving the named
// channel, simulating an interrupt landing mid-run.
type cancellingClient struct {
	*fakeClient
	cancelOn string
	cancel   context.CancelFunc
}

func (c *cancellingClient) ResolveEntity(ctx context.Context, ref string) (*telegram.Entity, error) {
	if ref == c.cancelOn {
		c.cancel()
	}
	return c.fakeClient.ResolveEntity(ctx, ref)
}

func TestRunStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &cancellingClient{fakeClient: scenarioClient(), cancelOn: "ghost", cancel: cancel}
	sink := &memorySink{}

	// ghost fails to resolve and the context is cancelled during that
	// failure; the run must stop there instead of grinding through alice.
	result, err := Run(ctx, client, []string{"ghost", "alice"}, []Sink{sink}, nil, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Channels) != 1 {
		t.Errorf("expected 1 channel result before stopping, got %d", len(result.Channels))
	}
	if len(sink.records) != 0 {
		t.Errorf("expected no records after cancellation, got %d", len(sink.records))
	}
}

func TestRunSkipsTextlessMessages(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	views := 900
	client := &fakeClient{
		histories: map[string][]telegram.RawMessage{
			"chan": {
				{ID: 2, Date: date, Text: "has text"},
				{ID: 1, Date: date, Views: &views}, // media-only post
			},
		},
	}
	sink := &memorySink{}

	result, err := Run(context.Background(), client, []string{"chan"}, []Sink{sink}, nil, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.MessagesFetched != 2 {
		t.Errorf("expected 2 fetched, got %d", result.MessagesFetched)
	}
	if result.RecordsWritten != 1 || len(sink.records) != 1 {
		t.Errorf("expected 1 written record, got %d", result.RecordsWritten)
	}
}
