package normalize

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chanmine/internal/telegram"
)

// fakeResolver maps channel ids to usernames; missing ids fail.
type fakeResolver struct {
	names map[int64]string
}

func (f *fakeResolver) ResolveChannelUsername(ctx context.Context, channelID int64) (string, error) {
	if name, ok := f.names[channelID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("channel %d missing from response", channelID)
}

func TestExtractURLsSelfLinkSuppression(t *testing.T) {
	text := "check t.me/foo and t.me/bar plus https://t.me/foo/123"
	urls := ExtractURLs(text, "foo")

	if len(urls) != 1 {
		t.Fatalf("expected 1 url, got %d: %v", len(urls), urls)
	}
	if urls[0] != "t.me/bar" {
		t.Errorf("expected t.me/bar, got %s", urls[0])
	}
}

func TestExtractURLsOrder(t *testing.T) {
	text := "see https://example.com/a then t.me/news then http://example.org/b?q=1"
	urls := ExtractURLs(text, "foo")

	expected := []string{"https://example.com/a", "t.me/news", "http://example.org/b?q=1"}
	if len(urls) != len(expected) {
		t.Fatalf("expected %d urls, got %d: %v", len(expected), len(urls), urls)
	}
	for i, want := range expected {
		if urls[i] != want {
			t.Errorf("url %d: expected %s, got %s", i, want, urls[i])
		}
	}
}

func TestExtractSkipsEmptyText(t *testing.T) {
	views := 500
	raw := telegram.RawMessage{
		ID:    7,
		Date:  time.Now(),
		Views: &views,
	}

	rec := Extract(context.Background(), raw, "foo", &fakeResolver{})
	if rec != nil {
		t.Errorf("expected textless message to be skipped, got %+v", rec)
	}
}

func TestExtractForwardResolved(t *testing.T) {
	raw := telegram.RawMessage{
		ID:   3,
		Date: time.Now(),
		Text: "forwarded content",
		Fwd:  &telegram.ForwardHeader{ChannelID: 100},
	}

	rec := Extract(context.Background(), raw, "bob", &fakeResolver{names: map[int64]string{100: "alice"}})
	if rec == nil {
		t.Fatal("expected a record")
	}
	if !rec.Forward.Resolved() {
		t.Fatalf("expected resolved forward, got %+v", rec.Forward)
	}
	if rec.Forward.Username != "alice" {
		t.Errorf("expected forward from alice, got %s", rec.Forward.Username)
	}
}

func TestExtractForwardUnresolved(t *testing.T) {
	raw := telegram.RawMessage{
		ID:   4,
		Date: time.Now(),
		Text: "forwarded content",
		Fwd:  &telegram.ForwardHeader{ChannelID: 200},
	}

	rec := Extract(context.Background(), raw, "bob", &fakeResolver{})
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.Forward == nil {
		t.Fatal("expected a forward variant")
	}
	if rec.Forward.Resolved() {
		t.Error("expected unresolved forward")
	}

	legacy := rec.Forward.Legacy()
	want := "Error fetching username for channel ID 200: channel 200 missing from response"
	if legacy != want {
		t.Errorf("expected legacy cell %q, got %q", want, legacy)
	}
}

func TestExtractNonChannelOrigin(t *testing.T) {
	raw := telegram.RawMessage{
		ID:   5,
		Date: time.Now(),
		Text: "forwarded from a user",
		Fwd:  &telegram.ForwardHeader{ChannelID: 0},
	}

	rec := Extract(context.Background(), raw, "bob", &fakeResolver{})
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.Forward != nil {
		t.Errorf("expected no forward for a non-channel origin, got %+v", rec.Forward)
	}
}

func TestExtractCounters(t *testing.T) {
	views, forwards, replies := 10, 2, 1
	raw := telegram.RawMessage{
		ID:       6,
		Date:     time.Now(),
		Text:     "hello",
		Views:    &views,
		Forwards: &forwards,
		Replies:  &replies,
	}

	rec := Extract(context.Background(), raw, "foo", &fakeResolver{})
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.Views == nil || *rec.Views != 10 {
		t.Errorf("expected 10 views, got %v", rec.Views)
	}
	if rec.Forwards == nil || *rec.Forwards != 2 {
		t.Errorf("expected 2 forwards, got %v", rec.Forwards)
	}
	if rec.Replies == nil || *rec.Replies != 1 {
		t.Errorf("expected 1 reply, got %v", rec.Replies)
	}

	raw = telegram.RawMessage{ID: 7, Date: time.Now(), Text: "no counters"}
	rec = Extract(context.Background(), raw, "foo", &fakeResolver{})
	if rec.Views != nil || rec.Forwards != nil || rec.Replies != nil {
		t.Errorf("expected nil counters, got %+v", rec)
	}
}
