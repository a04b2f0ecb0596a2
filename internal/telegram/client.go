package telegram

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the referenced channel or user does not exist, or is
// not reachable from this account. Callers decide whether that is fatal.
var ErrNotFound = errors.New("channel not found")

// Entity is a resolved channel. AccessHash is required by the MTProto API
// for every subsequent request against the channel.
type Entity struct {
	ID         int64
	AccessHash int64
	Username   string
	Title      string
}

// ForwardHeader carries forward-origin metadata on a message. ChannelID is
// zero when the origin is a user or hidden, which this pipeline treats the
// same as no forward at all.
type ForwardHeader struct {
	ChannelID int64
}

// RawMessage is one message as returned by the history API. IDs are unique
// within a channel and decrease as history is walked backward. Counters are
// nil when the platform omits them (e.g. very old messages).
type RawMessage struct {
	ID       int
	Date     time.Time
	Text     string
	Fwd      *ForwardHeader
	Views    *int
	Forwards *int
	Replies  *int
}

// ChannelInfo is the subset of full-channel metadata the aggregator needs.
type ChannelInfo struct {
	ParticipantsCount int
	About             string
}

// Client is the messaging-platform collaborator. The concrete MTProto
// implementation lives in gotd.go; tests substitute fakes.
type Client interface {
	// ResolveEntity resolves a channel username to its entity.
	// Returns an error wrapping ErrNotFound for unknown usernames.
	ResolveEntity(ctx context.Context, ref string) (*Entity, error)

	// History returns up to limit messages older than offsetID, newest
	// first. offsetID 0 starts from the newest message. An empty slice
	// signals end of history.
	History(ctx context.Context, entity *Entity, offsetID, limit int) ([]RawMessage, error)

	// ResolveChannelUsername resolves a numeric channel id (as seen in
	// forward headers) to its public username.
	ResolveChannelUsername(ctx context.Context, channelID int64) (string, error)

	// ChannelInfo fetches full-channel metadata for a username.
	// Returns an error wrapping ErrNotFound for unknown channels.
	ChannelInfo(ctx context.Context, username string) (*ChannelInfo, error)
}
