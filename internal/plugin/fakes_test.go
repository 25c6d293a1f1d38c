package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	slackgo "github.com/slack-go/slack"

	"github.com/crystaldolphin/slackrelay/internal/slackbot"
)

type said struct {
	channel, text string
}

type fakeSession struct {
	channels    []slackgo.Channel
	channelsErr error
	sayErr      map[string]error

	mu       sync.Mutex
	said     []said
	closed   int
	messages chan slackbot.Message
}

func newFakeSession(chs ...slackgo.Channel) *fakeSession {
	return &fakeSession{channels: chs, messages: make(chan slackbot.Message, 8)}
}

func (s *fakeSession) BotUserID() string { return "UBOT" }

func (s *fakeSession) Say(_ context.Context, channelID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, said{channelID, text})
	return s.sayErr[channelID]
}

func (s *fakeSession) Channels(context.Context) ([]slackgo.Channel, error) {
	return s.channels, s.channelsErr
}

func (s *fakeSession) Messages() <-chan slackbot.Message { return s.messages }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed == 0 {
		close(s.messages)
	}
	s.closed++
	return nil
}

func (s *fakeSession) saidTo() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.said))
	for _, m := range s.said {
		out[m.channel] = m.text
	}
	return out
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeConnector struct {
	mu       sync.Mutex
	sessions []*fakeSession // handed out in order
	err      error
	panicMsg string
	tokens   []string

	// Connects with held.token block until held.release is closed.
	held *heldConnect
}

type heldConnect struct {
	token   string
	entered chan struct{}
	release chan struct{}
	sess    *fakeSession
	err     error
}

func holdConnect(token string, sess *fakeSession, err error) *heldConnect {
	return &heldConnect{
		token:   token,
		entered: make(chan struct{}),
		release: make(chan struct{}),
		sess:    sess,
		err:     err,
	}
}

func (c *fakeConnector) Connect(_ context.Context, token string) (slackbot.Session, error) {
	c.mu.Lock()
	if h := c.held; h != nil && h.token == token {
		c.tokens = append(c.tokens, token)
		c.mu.Unlock()
		close(h.entered)
		<-h.release
		if h.err != nil {
			return nil, h.err
		}
		return h.sess, nil
	}
	defer c.mu.Unlock()
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	c.tokens = append(c.tokens, token)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.sessions) == 0 {
		return newFakeSession(), nil
	}
	s := c.sessions[0]
	c.sessions = c.sessions[1:]
	return s, nil
}

func (c *fakeConnector) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

type memStore struct {
	mu     sync.Mutex
	items  map[string]string
	getErr error
	setErr error
}

func newMemStore() *memStore { return &memStore{items: map[string]string{}} }

func (m *memStore) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStore) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = value
	return nil
}

type published struct {
	topic   string
	payload map[string]any
}

type chanPublisher struct {
	ch chan published
}

func newChanPublisher() *chanPublisher { return &chanPublisher{ch: make(chan published, 8)} }

func (p *chanPublisher) Publish(topic string, payload map[string]any) {
	p.ch <- published{topic, payload}
}

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func channel(id, name string, member, archived bool) slackgo.Channel {
	var ch slackgo.Channel
	ch.ID = id
	ch.Name = name
	ch.IsMember = member
	ch.IsArchived = archived
	return ch
}

// connectedPlugin returns a Plugin already holding sess.
func connectedPlugin(sess *fakeSession) (*Plugin, *memStore, *chanPublisher) {
	store := newMemStore()
	pub := newChanPublisher()
	p := New(store, &fakeConnector{}, pub, Options{Logger: quietLogger()})
	if sess != nil {
		p.swap(sess)
	}
	return p, store, pub
}
