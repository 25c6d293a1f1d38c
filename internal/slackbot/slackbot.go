// Package slackbot is the chat SDK boundary: it connects a bot token to
// Slack, posts text, lists conversations and streams bot mentions.
package slackbot

import (
	"context"
	"errors"

	slackgo "github.com/slack-go/slack"
)

// Class says how a relayed message addressed the bot.
type Class string

const (
	ClassDirectMessage Class = "direct_message"
	ClassDirectMention Class = "direct_mention"
	ClassMention       Class = "mention"
)

// Message is an inbound message that addressed the bot.
// For direct mentions Text has the leading mention already stripped.
type Message struct {
	Class     Class
	User      string
	Channel   string
	Text      string
	Timestamp string
}

// ErrEmptyToken is returned by Connect when no token is given.
var ErrEmptyToken = errors.New("slackbot: empty bot token")

// Session is one live bot connection.
type Session interface {
	// BotUserID is the user ID auth.test reported for the token.
	BotUserID() string
	// Say posts text to a channel.
	Say(ctx context.Context, channelID, text string) error
	// Channels lists every conversation visible to the token, unfiltered.
	Channels(ctx context.Context) ([]slackgo.Channel, error)
	// Messages streams messages that addressed the bot. Closed by Close.
	Messages() <-chan Message
	// Close stops the event stream. Further calls are no-ops.
	Close() error
}

// Connector opens Sessions.
type Connector interface {
	Connect(ctx context.Context, token string) (Session, error)
}
