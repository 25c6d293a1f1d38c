package plugin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/slackrelay/internal/metrics"
	"github.com/crystaldolphin/slackrelay/internal/slackbot"
)

// PostPath is the only path that accepts text.
const PostPath = "post"

// Call is the single entry point the host invokes. Failures come back as
// error results; Call never panics.
func (p *Plugin) Call(ctx context.Context, method, path string, args map[string]string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("plugin: call panicked", "method", method, "path", path, "panic", r)
			res = errorResult(KindInternal, fmt.Sprintf("internal error: %v", r))
		}
		outcome := "ok"
		if res.IsError() {
			outcome = string(res.Kind)
		}
		metrics.IncCall(methodLabel(method), outcome)
	}()

	switch method {
	case http.MethodGet:
		if path == "" {
			return describe(args)
		}
		if p.strictPost {
			return methodNotImplemented(method)
		}
		// GET on any other path is handled like POST.
		return p.post(ctx, path, args)
	case http.MethodPost:
		return p.post(ctx, path, args)
	default:
		return methodNotImplemented(method)
	}
}

// methodLabel bounds the metric label set to the methods the host sends.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return method
	}
	return "other"
}

func methodNotImplemented(method string) Result {
	return errorResult(KindValidation,
		fmt.Sprintf("The specified method %s is not implemented in admin plugin.", method))
}

func describe(args map[string]string) Result {
	d := &Descriptor{Text: "[TEXT TO SAY]"}
	if args["info"] == "true" {
		d.Info = &Info{Doc: Doc{Short: "Bot to say something"}}
	}
	return Result{Post: d}
}

func (p *Plugin) post(ctx context.Context, path string, args map[string]string) Result {
	if path != PostPath {
		return errorResult(KindValidation, fmt.Sprintf("path %s is not supported.", path))
	}
	text := args["text"]
	if text == "" {
		return errorResult(KindValidation, msgNoText)
	}
	sess := p.session()
	if sess == nil {
		return errorResult(KindConfig, msgTokenNotSet)
	}

	channels, err := listChannels(ctx, sess)
	if err != nil {
		p.log.Error("slack: channel list failed", "err", err)
		return errorResult(KindUpstream, err.Error())
	}

	posted, failed := p.fanOut(ctx, sess, channels, text)
	if len(posted) == 0 && len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = f.Channel
		}
		res := errorResult(KindUpstream, "Could not post to channels ["+strings.Join(names, ",")+"]")
		res.Failed = failed
		return res
	}
	return Result{
		Success: "Successfully posted to channels [" + strings.Join(posted, ",") + "]",
		Failed:  failed,
	}
}

// fanOut sends text to every channel concurrently and waits for all sends.
// Both returned slices keep the channel order.
func (p *Plugin) fanOut(ctx context.Context, sess slackbot.Session, channels []Channel, text string) ([]string, []SendFailure) {
	errs := make([]error, len(channels))

	var g errgroup.Group
	g.SetLimit(p.sendConcurrency)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			errs[i] = sess.Say(ctx, ch.ID, text)
			metrics.IncSend(errs[i] == nil)
			return nil
		})
	}
	_ = g.Wait()

	posted := make([]string, 0, len(channels))
	var failed []SendFailure
	for i, ch := range channels {
		if errs[i] != nil {
			p.log.Warn("slack: post failed", "channel", ch.Name, "channel_id", ch.ID, "err", errs[i])
			failed = append(failed, SendFailure{Channel: ch.Name, Error: errs[i].Error()})
			continue
		}
		posted = append(posted, ch.Name)
	}
	p.log.Info("slack: posted", "channels", len(posted), "failed", len(failed))
	return posted, failed
}
