package normalize

import (
	"fmt"
	"time"
)

// Forward is the resolved forward-origin of a message. Exactly one of
// Username or Err is set: Username when the origin channel's username was
// resolved, Err with the failure detail when resolution failed. A message
// that is not a forward (or whose origin is not a channel) has no Forward
// at all.
type Forward struct {
	ChannelID int64
	Username  string
	Err       string
}

// Resolved reports whether the forward origin was resolved to a username.
// Only resolved forwards participate in attribution.
func (f *Forward) Resolved() bool {
	return f != nil && f.Err == ""
}

// Legacy renders the forward the way the exported CSV schema expects:
// the username when resolved, the historical error-sentinel text when not.
func (f *Forward) Legacy() string {
	if f == nil {
		return ""
	}
	if f.Err != "" {
		return fmt.Sprintf("Error fetching username for channel ID %d: %s", f.ChannelID, f.Err)
	}
	return f.Username
}

// Record is the durable, normalized unit of the pipeline: one message from
// one channel, created once and never mutated. ID is unique within Channel.
type Record struct {
	Channel  string
	ID       int
	Date     time.Time
	Text     string
	URLs     []string
	Forward  *Forward
	Views    *int
	Forwards *int
	Replies  *int
}
