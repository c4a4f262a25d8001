// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry and the collectors the
// services update.
type Registry struct {
	reg *prometheus.Registry

	Registrations    *prometheus.CounterVec
	Checkouts        *prometheus.CounterVec
	BackgroundFailed *prometheus.CounterVec
	BackgroundSec    *prometheus.HistogramVec
	EmailsSent       *prometheus.CounterVec
	ODEnabled        prometheus.Counter
}

// NewRegistry creates and registers every collector.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_registrations_total",
		Help: "Registrations accepted, by payment mode.",
	}, []string{"mode"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_checkouts_total",
		Help: "Gateway checkout outcomes.",
	}, []string{"outcome"})
	bgFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_background_failures_total",
		Help: "Background side effects that gave up after retrying.",
	}, []string{"task"})
	bgSec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "impulse_background_duration_seconds",
		Help:    "Time spent on a background side effect, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "impulse_emails_total",
		Help: "Emails handed to the transport, by kind and result.",
	}, []string{"kind", "result"})
	od := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "impulse_od_enabled_total",
		Help: "On-Duty letters enabled by an administrator.",
	})

	r.MustRegister(registrations, checkouts, bgFailed, bgSec, emails, od)
	return &Registry{
		reg:              r,
		Registrations:    registrations,
		Checkouts:        checkouts,
		BackgroundFailed: bgFailed,
		BackgroundSec:    bgSec,
		EmailsSent:       emails,
		ODEnabled:        od,
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
