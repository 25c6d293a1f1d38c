package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystaldolphin/slackrelay/internal/bus"
	"github.com/crystaldolphin/slackrelay/internal/plugin"
)

type call struct {
	method, path string
	args         map[string]string
}

type fakePlugin struct {
	mu        sync.Mutex
	calls     []call
	settings  []map[string]any
	setErr    error
	connected bool
}

func (f *fakePlugin) Call(_ context.Context, method, path string, args map[string]string) plugin.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method, path, args})
	if path == "" {
		return plugin.Result{Post: &plugin.Descriptor{Text: "[TEXT TO SAY]"}}
	}
	return plugin.Result{Success: "ok:" + args["text"]}
}

func (f *fakePlugin) SetSettings(_ context.Context, in map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = append(f.settings, in)
	if _, ok := in["bottoken"]; ok {
		in["bottoken"] = ""
	}
	return in, f.setErr
}

func (f *fakePlugin) Connected() bool { return f.connected }

func (f *fakePlugin) lastCall(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

type memRecord struct {
	mu  sync.Mutex
	rec map[string]any
}

func (m *memRecord) UISettings() (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return map[string]any{}, nil
	}
	return m.rec, nil
}

func (m *memRecord) SaveUISettings(s map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = s
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakePlugin, *memRecord, *bus.TopicBus) {
	t.Helper()
	p := &fakePlugin{connected: true}
	rec := &memRecord{}
	b := bus.NewTopicBus(4)
	srv := httptest.NewServer(NewServer(p, rec, b, Options{MetricsPath: "/metrics"}).Handler())
	t.Cleanup(srv.Close)
	return srv, p, rec, b
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestCall_Describe(t *testing.T) {
	srv, p, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/?info=true")
	if err != nil {
		t.Fatal(err)
	}
	var res plugin.Result
	decode(t, resp, &res)
	if res.Post == nil {
		t.Fatalf("expected descriptor, got %+v", res)
	}
	c := p.lastCall(t)
	if c.method != "GET" || c.path != "" || c.args["info"] != "true" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestCall_PostJSON(t *testing.T) {
	srv, p, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/post", "application/json", strings.NewReader(`{"text":"hi there"}`))
	if err != nil {
		t.Fatal(err)
	}
	var res plugin.Result
	decode(t, resp, &res)
	if res.Success != "ok:hi there" {
		t.Errorf("unexpected result %+v", res)
	}
	c := p.lastCall(t)
	if c.method != "POST" || c.path != "post" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestCall_PostForm(t *testing.T) {
	srv, p, _, _ := newTestServer(t)

	resp, err := http.PostForm(srv.URL+"/api/post/", url.Values{"text": {"from form"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if c := p.lastCall(t); c.path != "post" || c.args["text"] != "from form" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestCall_BadJSON(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/post", "application/json", strings.NewReader(`{nope`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSettings_HookThenPersist(t *testing.T) {
	srv, p, rec, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/settings", "application/json", strings.NewReader(`{"bottoken":"xyz","note":"n"}`))
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	decode(t, resp, &out)
	if out["bottoken"] != "" || out["note"] != "n" {
		t.Errorf("unexpected response %v", out)
	}
	if len(p.settings) != 1 {
		t.Fatalf("expected settings hook to run once, got %d", len(p.settings))
	}

	saved, _ := rec.UISettings()
	if saved["bottoken"] != "" {
		t.Errorf("secret persisted in UI record: %v", saved)
	}

	resp, err = http.Get(srv.URL + "/settings")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	decode(t, resp, &got)
	if got["note"] != "n" {
		t.Errorf("unexpected stored record %v", got)
	}
}

func TestSettings_HookFailureIsNotSaved(t *testing.T) {
	srv, p, rec, _ := newTestServer(t)
	p.mu.Lock()
	p.setErr = errors.New("store bottoken: disk full")
	p.mu.Unlock()

	resp, err := http.Post(srv.URL+"/settings", "application/json", strings.NewReader(`{"bottoken":"xyz","note":"n"}`))
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]string
	decode(t, resp, &out)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if !strings.Contains(out["error"], "disk full") {
		t.Errorf("unexpected error body %v", out)
	}
	saved, _ := rec.UISettings()
	if len(saved) != 0 {
		t.Errorf("record saved after failed hook: %v", saved)
	}
}

func TestSettings_MethodNotAllowed(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/settings", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]bool
	decode(t, resp, &out)
	if !out["connected"] {
		t.Errorf("expected connected=true, got %v", out)
	}
}

func TestMetricsMounted(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestEvents_StreamsPublishedEvents(t *testing.T) {
	srv, _, _, b := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for b.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish("lights", map[string]any{"params": "on"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got bus.Wire
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Topic != "lights" || got.Payload["params"] != "on" {
		t.Errorf("unexpected event %+v", got)
	}
}
