package plugin

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/crystaldolphin/slackrelay/internal/metrics"
	"github.com/crystaldolphin/slackrelay/internal/slackbot"
)

// Init (re)connects using the stored token and starts relaying mentions.
// Any previous session is closed, whether or not the new one connects.
// Every failure is an *InitError. When a newer Init starts before this one
// finishes, this one leaves the slot alone and closes what it connected.
func (p *Plugin) Init(ctx context.Context) (err error) {
	gen := p.begin()
	defer func() {
		if r := recover(); r != nil {
			err = &InitError{Kind: KindConfig, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			p.commit(gen, nil)
			metrics.IncInit("error")
			if ie, ok := err.(*InitError); ok {
				p.log.Warn("slack: init failed", "kind", ie.Kind, "err", ie.Detail())
			}
			return
		}
		metrics.IncInit("ok")
	}()

	token, ok, err := p.store.GetItem(TokenKey)
	if err != nil {
		return &InitError{Kind: KindConfig, Err: fmt.Errorf("read %s: %w", TokenKey, err)}
	}
	if !ok {
		return &InitError{Kind: KindConfig, Err: ErrNoToken}
	}

	sess, err := p.connector.Connect(ctx, token)
	if err != nil {
		return &InitError{Kind: KindConnect, Err: err}
	}

	if !p.commit(gen, sess) {
		p.log.Debug("slack: init superseded by a newer one", "bot_user_id", sess.BotUserID())
		return nil
	}
	go p.relay(sess)
	return nil
}

// relay publishes every message addressed to the bot until sess is closed.
func (p *Plugin) relay(sess slackbot.Session) {
	for msg := range sess.Messages() {
		command, params := SplitCommand(msg.Text)
		if command == "" {
			continue
		}
		p.log.Info("Publish to topic", "topic", command, "params", params, "class", msg.Class)
		p.pub.Publish(command, map[string]any{"params": params})
		metrics.IncRelayed(string(msg.Class))
	}
}

// SplitCommand splits text at its first whitespace into a command and the
// trimmed remainder.
func SplitCommand(text string) (command, params string) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}
