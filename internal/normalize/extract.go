package normalize

import (
	"context"
	"regexp"
	"strings"

	"chanmine/internal/telegram"
)

// urlPattern matches http(s) URLs and bare t.me/<name> links, the two forms
// that matter for channel cross-linking.
var urlPattern = regexp.MustCompile(`https?://(?:[a-zA-Z0-9]|[$-_@.&+]|[!*(),]|%[0-9a-fA-F]{2})+|t\.me/[a-zA-Z0-9_]+`)

// Resolver resolves a forward-origin channel id to its public username.
type Resolver interface {
	ResolveChannelUsername(ctx context.Context, channelID int64) (string, error)
}

// ExtractURLs returns all non-overlapping link matches in text, in order of
// appearance, excluding any link that points back at channel itself.
func ExtractURLs(text, channel string) []string {
	matches := urlPattern.FindAllString(text, -1)

	selfLink := "t.me/" + channel
	urls := make([]string, 0, len(matches))
	for _, url := range matches {
		if channel != "" && strings.Contains(url, selfLink) {
			continue
		}
		urls = append(urls, url)
	}

	return urls
}

// Extract converts one raw message into a Record, or nil when the message
// carries no text. Dropping textless messages also drops their engagement
// counters; that matches the upstream corpus definition.
func Extract(ctx context.Context, raw telegram.RawMessage, channel string, resolver Resolver) *Record {
	if raw.Text == "" {
		return nil
	}

	var fwd *Forward
	if raw.Fwd != nil && raw.Fwd.ChannelID != 0 {
		username, err := resolver.ResolveChannelUsername(ctx, raw.Fwd.ChannelID)
		if err != nil {
			fwd = &Forward{ChannelID: raw.Fwd.ChannelID, Err: err.Error()}
		} else {
			fwd = &Forward{ChannelID: raw.Fwd.ChannelID, Username: username}
		}
	}

	return &Record{
		Channel:  channel,
		ID:       raw.ID,
		Date:     raw.Date,
		Text:     raw.Text,
		URLs:     ExtractURLs(raw.Text, channel),
		Forward:  fwd,
		Views:    raw.Views,
		Forwards: raw.Forwards,
		Replies:  raw.Replies,
	}
}
