// Package plugin is the Slack adapter a gateway host loads. It posts text to
// every channel the bot belongs to and relays bot mentions to the host bus.
package plugin

import (
	"log/slog"
	"sync"

	"github.com/crystaldolphin/slackrelay/internal/metrics"
	"github.com/crystaldolphin/slackrelay/internal/slackbot"
)

// TokenKey is the settings key holding the bot token.
const TokenKey = "bottoken"

const defaultSendConcurrency = 8

// SettingsStore is the host's key-value store.
type SettingsStore interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
}

// Publisher is the host's publish bus.
type Publisher interface {
	Publish(topic string, payload map[string]any)
}

// Options tune a Plugin.
type Options struct {
	// StrictPost stops GET on a non-empty path from posting.
	StrictPost      bool
	SendConcurrency int
	Logger          *slog.Logger
}

// Plugin holds at most one bot session.
type Plugin struct {
	store     SettingsStore
	connector slackbot.Connector
	pub       Publisher
	log       *slog.Logger

	strictPost      bool
	sendConcurrency int

	mu   sync.RWMutex
	sess slackbot.Session
	gen  uint64 // bumped by every Init and swap
}

// New creates a Plugin. It does not connect; call Init.
func New(store SettingsStore, connector slackbot.Connector, pub Publisher, opts Options) *Plugin {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SendConcurrency <= 0 {
		opts.SendConcurrency = defaultSendConcurrency
	}
	return &Plugin{
		store:           store,
		connector:       connector,
		pub:             pub,
		log:             opts.Logger,
		strictPost:      opts.StrictPost,
		sendConcurrency: opts.SendConcurrency,
	}
}

// Connected reports whether a bot session is active.
func (p *Plugin) Connected() bool {
	return p.session() != nil
}

func (p *Plugin) session() slackbot.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sess
}

// begin starts a new generation. Installs from older generations are refused.
func (p *Plugin) begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	return p.gen
}

// commit installs next if gen is still the newest generation and closes the
// session it displaced. A stale next is closed instead and false is returned.
func (p *Plugin) commit(gen uint64, next slackbot.Session) bool {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		if next != nil {
			p.closeSession(next)
		}
		return false
	}
	old := p.sess
	p.sess = next
	p.mu.Unlock()

	metrics.SetConnected(next != nil)
	if old != nil && old != next {
		p.closeSession(old)
	}
	return true
}

// swap unconditionally replaces the active session, superseding any Init
// still in flight.
func (p *Plugin) swap(next slackbot.Session) {
	p.commit(p.begin(), next)
}

func (p *Plugin) closeSession(s slackbot.Session) {
	if err := s.Close(); err != nil {
		p.log.Warn("slack: closing session failed", "err", err)
	}
}

// Close drops and closes the active session.
func (p *Plugin) Close() error {
	p.swap(nil)
	return nil
}
