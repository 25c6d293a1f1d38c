// Package container wires slackrelay services using go.uber.org/dig.
package container

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"go.uber.org/dig"

	"github.com/crystaldolphin/slackrelay/internal/bus"
	"github.com/crystaldolphin/slackrelay/internal/config"
	"github.com/crystaldolphin/slackrelay/internal/gateway"
	"github.com/crystaldolphin/slackrelay/internal/plugin"
	"github.com/crystaldolphin/slackrelay/internal/schedule"
	"github.com/crystaldolphin/slackrelay/internal/slackbot"
	"github.com/crystaldolphin/slackrelay/internal/store"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	store     *store.Store
	bus       *bus.TopicBus
	plugin    *plugin.Plugin
	scheduler *schedule.Scheduler
	server    *gateway.Server
}

func (c *Container) Store() *store.Store            { return c.store }
func (c *Container) Bus() *bus.TopicBus             { return c.bus }
func (c *Container) Plugin() *plugin.Plugin         { return c.plugin }
func (c *Container) Scheduler() *schedule.Scheduler { return c.scheduler }
func (c *Container) Server() *gateway.Server        { return c.server }

// New builds and wires all services from cfg. The plugin is not connected
// yet; callers run Plugin().Init.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		newStore,
		newBus,
		newConnector,
		newPlugin,
		newScheduler,
		newServer,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		st *store.Store,
		b *bus.TopicBus,
		p *plugin.Plugin,
		sched *schedule.Scheduler,
		srv *gateway.Server,
	) {
		result = &Container{store: st, bus: b, plugin: p, scheduler: sched, server: srv}
	})
	if err != nil {
		return nil, fmt.Errorf("wire services: %w", dig.RootCause(err))
	}
	return result, nil
}

// Close disconnects the bot, closes the bus and releases the store.
func (c *Container) Close() error {
	return errors.Join(c.plugin.Close(), closeBus(c.bus), c.store.Close())
}

func closeBus(b *bus.TopicBus) error {
	b.Close()
	return nil
}

func newStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.SettingsPath()
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings %s: %w", path, err)
	}
	return st, nil
}

func newBus(cfg *config.Config) *bus.TopicBus {
	return bus.NewTopicBus(cfg.Gateway.EventBuffer)
}

func newConnector(cfg *config.Config) slackbot.Connector {
	return slackbot.NewConnector(slackbot.Options{
		AppToken:     cfg.Slack.AppToken,
		Debug:        cfg.Slack.Debug,
		ChannelTypes: cfg.Slack.ChannelTypes,
	})
}

func newPlugin(cfg *config.Config, st *store.Store, conn slackbot.Connector, b *bus.TopicBus) *plugin.Plugin {
	return plugin.New(st, conn, b, plugin.Options{
		StrictPost:      cfg.Plugin.StrictPost,
		SendConcurrency: cfg.Plugin.SendConcurrency,
		Logger:          slog.Default().With("component", "plugin"),
	})
}

func newScheduler(cfg *config.Config, p *plugin.Plugin) (*schedule.Scheduler, error) {
	return schedule.New(cfg.Schedule.Jobs, p)
}

func newServer(cfg *config.Config, p *plugin.Plugin, st *store.Store, b *bus.TopicBus) *gateway.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return gateway.NewServer(p, st, b, gateway.Options{
		Addr:        net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port)),
		MetricsPath: metricsPath,
	})
}
