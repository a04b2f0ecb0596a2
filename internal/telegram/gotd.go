package telegram

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gotd/td/session"
	tgclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// SessionConfig holds the credentials needed to open an MTProto session.
type SessionConfig struct {
	APIID       int
	APIHash     string
	Phone       string
	SessionFile string
}

// RunClient opens an MTProto session, authenticates if necessary, and runs
// fn with a connected Client. The session is held for the duration of fn and
// released when it returns.
func RunClient(ctx context.Context, cfg SessionConfig, fn func(ctx context.Context, client Client) error) error {
	tgc := tgclient.NewClient(cfg.APIID, cfg.APIHash, tgclient.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
	})

	return tgc.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(
			auth.Constant(cfg.Phone, "", auth.CodeAuthenticatorFunc(promptCode)),
			auth.SendCodeOptions{},
		)
		if err := tgc.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("telegram authentication failed: %w", err)
		}
		return fn(ctx, &mtClient{api: tgc.API()})
	})
}

// promptCode reads the login code from stdin during first-time auth.
func promptCode(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	fmt.Fprint(os.Stderr, "Enter the login code sent to your Telegram account: ")
	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read login code: %w", err)
	}
	return strings.TrimSpace(code), nil
}

// mtClient implements Client over the raw MTProto API.
type mtClient struct {
	api *tg.Client
}

var _ Client = (*mtClient)(nil)

// The generated raw-API helpers change shape between gotd releases; pin the
// ones this adapter calls so a version bump surfaces here first.
var (
	_ func(context.Context, string) (*tg.ContactsResolvedPeer, error)                        = (*tg.Client)(nil).ContactsResolveUsername
	_ func(context.Context, *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) = (*tg.Client)(nil).MessagesGetHistory
	_ func(context.Context, []tg.InputChannelClass) (tg.MessagesChatsClass, error)           = (*tg.Client)(nil).ChannelsGetChannels
	_ func(context.Context, tg.InputChannelClass) (*tg.MessagesChatFull, error)              = (*tg.Client)(nil).ChannelsGetFullChannel
)

func (c *mtClient) ResolveEntity(ctx context.Context, ref string) (*Entity, error) {
	username := strings.TrimPrefix(strings.TrimSpace(ref), "@")

	res, err := c.api.ContactsResolveUsername(ctx, username)
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return nil, fmt.Errorf("resolve %q: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve %q: %w", ref, err)
	}

	for _, chat := range res.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			return &Entity{
				ID:         ch.ID,
				AccessHash: ch.AccessHash,
				Username:   ch.Username,
				Title:      ch.Title,
			}, nil
		}
	}

	// The username resolved to a user or group, not a broadcast channel.
	return nil, fmt.Errorf("resolve %q: not a channel: %w", ref, ErrNotFound)
}

func (c *mtClient) History(ctx context.Context, entity *Entity, offsetID, limit int) ([]RawMessage, error) {
	res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer: &tg.InputPeerChannel{
			ChannelID:  entity.ID,
			AccessHash: entity.AccessHash,
		},
		OffsetID: offsetID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("messages.getHistory for %s failed: %w", entity.Username, err)
	}

	var msgs []tg.MessageClass
	switch h := res.(type) {
	case *tg.MessagesChannelMessages:
		msgs = h.Messages
	case *tg.MessagesMessagesSlice:
		msgs = h.Messages
	case *tg.MessagesMessages:
		msgs = h.Messages
	default:
		return nil, fmt.Errorf("unexpected history response type %T", res)
	}

	out := make([]RawMessage, 0, len(msgs))
	for _, m := range msgs {
		// Service messages are kept so the pagination cursor can still
		// advance past them; they carry no text and are skipped later.
		raw := RawMessage{ID: m.GetID()}

		switch msg := m.(type) {
		case *tg.Message:
			raw.Date = time.Unix(int64(msg.Date), 0).UTC()
			raw.Text = msg.Message
			if fwd, ok := msg.GetFwdFrom(); ok {
				if peer, ok := fwd.GetFromID(); ok {
					if ch, ok := peer.(*tg.PeerChannel); ok {
						raw.Fwd = &ForwardHeader{ChannelID: ch.ChannelID}
					}
				}
			}
			if v, ok := msg.GetViews(); ok {
				vv := v
				raw.Views = &vv
			}
			if v, ok := msg.GetForwards(); ok {
				vv := v
				raw.Forwards = &vv
			}
			if r, ok := msg.GetReplies(); ok {
				vv := r.Replies
				raw.Replies = &vv
			}
		case *tg.MessageService:
			raw.Date = time.Unix(int64(msg.Date), 0).UTC()
		}

		out = append(out, raw)
	}

	return out, nil
}

func (c *mtClient) ResolveChannelUsername(ctx context.Context, channelID int64) (string, error) {
	// A bare InputChannel (no access hash) only works when the server has
	// the peer cached for this session. When it does not, the request fails
	// and the forward stays unresolved, which is the intended degradation.
	res, err := c.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: channelID},
	})
	if err != nil {
		return "", fmt.Errorf("channels.getChannels for %d failed: %w", channelID, err)
	}

	for _, chat := range res.GetChats() {
		ch, ok := chat.(*tg.Channel)
		if !ok || ch.ID != channelID {
			continue
		}
		if ch.Username == "" {
			return "", fmt.Errorf("channel %d has no public username", channelID)
		}
		return ch.Username, nil
	}

	return "", fmt.Errorf("channel %d missing from response", channelID)
}

func (c *mtClient) ChannelInfo(ctx context.Context, username string) (*ChannelInfo, error) {
	entity, err := c.ResolveEntity(ctx, username)
	if err != nil {
		return nil, err
	}

	full, err := c.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  entity.ID,
		AccessHash: entity.AccessHash,
	})
	if err != nil {
		if tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_INVALID") {
			return nil, fmt.Errorf("full channel %q: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch full channel %q: %w", username, err)
	}

	ch, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, fmt.Errorf("unexpected full chat type %T for %q", full.FullChat, username)
	}

	return &ChannelInfo{
		ParticipantsCount: ch.ParticipantsCount,
		About:             ch.About,
	}, nil
}
