// Package metrics exposes Prometheus counters for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	calls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slackrelay_calls_total",
		Help: "Plugin calls by method and outcome",
	}, []string{"method", "outcome"})
	sends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slackrelay_channel_sends_total",
		Help: "Per-channel chat.postMessage attempts",
	}, []string{"status"})
	relayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slackrelay_relayed_messages_total",
		Help: "Bot mentions published to the bus, by class",
	}, []string{"class"})
	inits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slackrelay_connection_inits_total",
		Help: "Connection initialisations by result",
	}, []string{"result"})
	connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slackrelay_connected",
		Help: "1 when a bot session is active",
	})
	scheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slackrelay_scheduled_posts_total",
		Help: "Scheduled announcement runs by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(calls, sends, relayed, inits, connected, scheduled)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func IncCall(method, outcome string) { calls.WithLabelValues(method, outcome).Inc() }

func IncSend(ok bool) {
	if ok {
		sends.WithLabelValues("ok").Inc()
		return
	}
	sends.WithLabelValues("error").Inc()
}

func IncRelayed(class string) { relayed.WithLabelValues(class).Inc() }

func IncInit(result string) { inits.WithLabelValues(result).Inc() }

func SetConnected(up bool) {
	if up {
		connected.Set(1)
		return
	}
	connected.Set(0)
}

func IncScheduled(status string) { scheduled.WithLabelValues(status).Inc() }
