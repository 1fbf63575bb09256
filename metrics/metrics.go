// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to the service so tests and embedding programs don't
// collide on the global default registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// VoteToggles counts completed toggles by side and outcome.
	VoteToggles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "versus",
		Name:      "votes_total",
		Help:      "Vote toggles by side (A, B) and outcome (voted, unvoted).",
	}, []string{"side", "outcome"})

	// AuthEvents counts register, login, login_failed, logout and refresh.
	AuthEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "versus",
		Name:      "auth_events_total",
		Help:      "Authentication events by kind.",
	}, []string{"event"})

	// TokenRejections counts refresh and access tokens refused, by reason.
	TokenRejections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "versus",
		Name:      "token_rejections_total",
		Help:      "Requests refused for an invalid session token, by reason.",
	}, []string{"reason"})

	// PollsCreated counts polls created.
	PollsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "versus",
		Name:      "polls_created_total",
		Help:      "Polls created.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
