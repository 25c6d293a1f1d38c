// Package schedule posts configured announcements on cron schedules by
// calling the plugin the same way the host does.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/crystaldolphin/slackrelay/internal/config"
	"github.com/crystaldolphin/slackrelay/internal/metrics"
	"github.com/crystaldolphin/slackrelay/internal/plugin"
)

// Caller is the plugin call entry point.
type Caller interface {
	Call(ctx context.Context, method, path string, args map[string]string) plugin.Result
}

// Entry describes one scheduled announcement.
type Entry struct {
	Name string
	Spec string
	Text string
	Next time.Time
}

type job struct {
	post config.ScheduledPost
	id   robfigcron.EntryID
}

// Scheduler runs scheduled announcements.
type Scheduler struct {
	caller Caller
	robfig *robfigcron.Cron
	jobs   map[string]*job
}

// New validates every job and registers it. Specs are 5-field cron
// expressions, optionally prefixed with TZ=Zone or CRON_TZ=Zone.
func New(posts []config.ScheduledPost, caller Caller) (*Scheduler, error) {
	s := &Scheduler{
		caller: caller,
		robfig: robfigcron.New(),
		jobs:   make(map[string]*job, len(posts)),
	}
	for _, p := range posts {
		if err := s.add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(p config.ScheduledPost) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("schedule: job with spec %q has no name", p.Spec)
	}
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("schedule: duplicate job %q", name)
	}
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("schedule: job %q has no text", name)
	}
	sched, err := robfigcron.ParseStandard(p.Spec)
	if err != nil {
		return fmt.Errorf("schedule: job %q: %w", name, err)
	}

	j := &job{post: p}
	j.id = s.robfig.Schedule(sched, robfigcron.FuncJob(func() {
		s.run(context.Background(), j.post)
	}))
	s.jobs[name] = j
	return nil
}

// Start arms all jobs and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.robfig.Start()
	slog.Info("schedule: started", "jobs", len(s.jobs))

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	return ctx.Err()
}

// Entries lists the jobs sorted by name. Next is zero until Start.
func (s *Scheduler) Entries() []Entry {
	out := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		e := s.robfig.Entry(j.id)
		out = append(out, Entry{Name: j.post.Name, Spec: j.post.Spec, Text: j.post.Text, Next: e.Next})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// RunNow fires the named job immediately.
func (s *Scheduler) RunNow(ctx context.Context, name string) (plugin.Result, error) {
	j, ok := s.jobs[name]
	if !ok {
		return plugin.Result{}, fmt.Errorf("schedule: unknown job %q", name)
	}
	return s.run(ctx, j.post), nil
}

func (s *Scheduler) run(ctx context.Context, p config.ScheduledPost) plugin.Result {
	res := s.caller.Call(ctx, http.MethodPost, plugin.PostPath, map[string]string{"text": p.Text})
	if res.IsError() {
		metrics.IncScheduled("error")
		slog.Warn("schedule: post failed", "job", p.Name, "kind", res.Kind, "err", res.Error)
		return res
	}
	metrics.IncScheduled("ok")
	slog.Info("schedule: posted", "job", p.Name, "result", res.Success)
	return res
}
