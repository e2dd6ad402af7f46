package cron

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the scheduler pass, exposed on the admin HTTP
// surface's /metrics endpoint.
var (
	hostsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostd_hosts_triggered_total",
		Help: "Total number of HostAction events fired by the scheduler pass",
	})

	mastersTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostd_masters_triggered_total",
		Help: "Total number of MasterAction events fired by the scheduler pass",
	})

	scheduleChangesTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostd_schedule_changes_triggered_total",
		Help: "Total number of ScheduleChangeAction events fired by the scheduler pass",
	})

	inactivityKicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostd_inactivity_kicks_total",
		Help: "Total number of slots cleared by the inactivity-kick pass",
	})

	gamesOverdue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hostd_games_overdue",
		Help: "Number of running games whose computed next host time is already in the past",
	})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hostd_scheduler_pass_duration_seconds",
		Help:    "Duration of a full scheduler pass across every running game",
		Buckets: prometheus.DefBuckets,
	})
)

// observeEvents updates the per-kind counters for a batch of events
// produced by ComputeNext for a single game.
func observeEvents(events []Event) {
	for _, e := range events {
		switch e.Kind {
		case HostAction:
			hostsTriggered.Inc()
		case MasterAction:
			mastersTriggered.Inc()
		case ScheduleChangeAction:
			scheduleChangesTriggered.Inc()
		}
	}
}
