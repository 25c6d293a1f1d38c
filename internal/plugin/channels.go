package plugin

import (
	"context"
	"fmt"

	"github.com/crystaldolphin/slackrelay/internal/slackbot"
)

// Channel is a conversation the bot can post into.
type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// ListChannels returns the unarchived channels the bot is a member of, in
// the order Slack returned them. The list is fetched fresh on every call.
func (p *Plugin) ListChannels(ctx context.Context) ([]Channel, error) {
	sess := p.session()
	if sess == nil {
		return nil, ErrNoSession
	}
	return listChannels(ctx, sess)
}

func listChannels(ctx context.Context, sess slackbot.Session) ([]Channel, error) {
	all, err := sess.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	out := make([]Channel, 0, len(all))
	for _, ch := range all {
		if !ch.IsMember || ch.IsArchived {
			continue
		}
		out = append(out, Channel{ID: ch.ID, Name: ch.Name, Purpose: ch.Purpose.Value})
	}
	return out, nil
}
