package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsEndpoint = "/metrics"

var sessionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "pareto_bridge",
	Subsystem: "gateway",
	Name:      "bridge_sessions_total",
	Help:      "Amount of bridge sessions opened over the gateway",
})

func init() {
	prometheus.MustRegister(sessionsOpened)
}

// metricsHandler exposes the go runtime and process collectors of the default registry
// in the prometheus text format.
var metricsHandler = promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
