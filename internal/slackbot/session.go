package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const (
	messageBuffer = 64
	pageLimit     = 200
)

// Options configure SlackConnector.
type Options struct {
	// AppToken enables Socket Mode. Empty means post-only sessions.
	AppToken     string
	Debug        bool
	ChannelTypes []string
	// APIURL overrides the Slack Web API base URL (must end with "/").
	APIURL string
}

// SlackConnector opens Sessions against the Slack Web API.
type SlackConnector struct {
	opts Options
}

func NewConnector(opts Options) *SlackConnector {
	if len(opts.ChannelTypes) == 0 {
		opts.ChannelTypes = []string{"public_channel", "private_channel"}
	}
	return &SlackConnector{opts: opts}
}

// Connect validates token with auth.test and, when an app token is
// configured, starts a Socket Mode event stream that outlives ctx.
func (c *SlackConnector) Connect(ctx context.Context, token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyToken
	}

	clientOpts := []slackgo.Option{slackgo.OptionDebug(c.opts.Debug)}
	if c.opts.AppToken != "" {
		clientOpts = append(clientOpts, slackgo.OptionAppLevelToken(c.opts.AppToken))
	}
	if c.opts.APIURL != "" {
		clientOpts = append(clientOpts, slackgo.OptionAPIURL(c.opts.APIURL))
	}
	api := slackgo.New(token, clientOpts...)

	resp, err := api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.test: %w", err)
	}
	slog.Info("slack: connected", "bot_user_id", resp.UserID, "team", resp.Team)

	runCtx, cancel := context.WithCancel(context.Background())
	s := &slackSession{
		api:          api,
		botUserID:    resp.UserID,
		channelTypes: c.opts.ChannelTypes,
		messages:     make(chan Message, messageBuffer),
		mention:      mentionPattern(resp.UserID),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	if c.opts.AppToken == "" {
		slog.Warn("slack: app token not configured, mentions will not be relayed")
		close(s.done)
		return s, nil
	}

	sm := socketmode.New(api, socketmode.OptionDebug(c.opts.Debug))
	go func() {
		if err := sm.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("slack: socket mode exited", "err", err)
		}
	}()
	go s.pump(runCtx, sm)
	return s, nil
}

type slackSession struct {
	api          *slackgo.Client
	botUserID    string
	channelTypes []string
	mention      *regexp.Regexp

	messages  chan Message
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *slackSession) BotUserID() string        { return s.botUserID }
func (s *slackSession) Messages() <-chan Message { return s.messages }

func (s *slackSession) Say(ctx context.Context, channelID, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, channelID, slackgo.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("chat.postMessage %s: %w", channelID, err)
	}
	return nil
}

func (s *slackSession) Channels(ctx context.Context) ([]slackgo.Channel, error) {
	var all []slackgo.Channel
	cursor := ""
	for {
		chs, next, err := s.api.GetConversationsContext(ctx, &slackgo.GetConversationsParameters{
			Cursor: cursor,
			Limit:  pageLimit,
			Types:  s.channelTypes,
		})
		if err != nil {
			return nil, fmt.Errorf("conversations.list: %w", err)
		}
		all = append(all, chs...)
		cursor = strings.TrimSpace(next)
		if cursor == "" {
			return all, nil
		}
	}
}

func (s *slackSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		close(s.messages)
		slog.Info("slack: session closed", "bot_user_id", s.botUserID)
	})
	return nil
}

func (s *slackSession) pump(ctx context.Context, sm *socketmode.Client) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sm.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				slog.Debug("slack: socket mode connecting")
			case socketmode.EventTypeConnected:
				slog.Info("slack: socket mode connected")
			case socketmode.EventTypeConnectionError:
				slog.Warn("slack: socket mode connection error", "data", evt.Data)
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					sm.Ack(*evt.Request)
				}
				cb, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok || cb.Type != slackevents.CallbackEvent {
					continue
				}
				if msg, ok := s.classify(cb.InnerEvent); ok {
					s.deliver(msg)
				}
			}
		}
	}
}

func (s *slackSession) deliver(msg Message) {
	select {
	case s.messages <- msg:
	default:
		slog.Warn("slack: inbound buffer full, dropping message", "channel", msg.Channel)
	}
}

// classify decides whether an inner event addressed the bot and how.
// Channel messages that mention the bot are skipped because the matching
// app_mention event carries them.
func (s *slackSession) classify(ev slackevents.EventsAPIInnerEvent) (Message, bool) {
	switch in := ev.Data.(type) {
	case *slackevents.AppMentionEvent:
		if in == nil || in.BotID != "" || in.User == "" || in.User == s.botUserID {
			return Message{}, false
		}
		msg := Message{User: in.User, Channel: in.Channel, Timestamp: in.TimeStamp}
		if stripped, ok := s.stripLeadingMention(in.Text); ok {
			msg.Class, msg.Text = ClassDirectMention, stripped
		} else {
			msg.Class, msg.Text = ClassMention, strings.TrimSpace(in.Text)
		}
		return msg, true

	case *slackevents.MessageEvent:
		if in == nil || in.SubType != "" || in.BotID != "" || in.User == "" || in.User == s.botUserID {
			return Message{}, false
		}
		if in.ChannelType != "im" {
			return Message{}, false
		}
		return Message{
			Class:     ClassDirectMessage,
			User:      in.User,
			Channel:   in.Channel,
			Text:      strings.TrimSpace(in.Text),
			Timestamp: in.TimeStamp,
		}, true
	}
	return Message{}, false
}

func mentionPattern(botUserID string) *regexp.Regexp {
	if botUserID == "" {
		return nil
	}
	return regexp.MustCompile(`^\s*<@` + regexp.QuoteMeta(botUserID) + `(\|[^>]*)?>:?\s*`)
}

func (s *slackSession) stripLeadingMention(text string) (string, bool) {
	if s.mention == nil {
		return text, false
	}
	loc := s.mention.FindStringIndex(text)
	if loc == nil {
		return text, false
	}
	return strings.TrimSpace(text[loc[1]:]), true
}
