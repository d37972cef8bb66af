// Package metrics holds the prometheus collectors shared by every layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	// Email
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Email send attempts by template and outcome",
		},
		[]string{"template", "status"}, // verification/new_task/reminder/test, success/failure
	)

	// Reminders
	RemindersScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_scheduled_total",
			Help: "Reminder notifications added to the schedule",
		},
	)

	ReminderRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_runs_total",
			Help: "Reminder scheduler runs by outcome",
		},
		[]string{"status"},
	)

	// Notifications
	NotificationsShownTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_shown_total",
			Help: "Notifications delivered by sink",
		},
		[]string{"sink"}, // relay, inbox
	)

	// Worker
	WorkerJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_total",
			Help: "Background jobs by name and outcome",
		},
		[]string{"job", "status"}, // success/failure/dropped
	)

	WorkerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Jobs waiting in the background queue",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func TrackEmail(template string, err error) {
	EmailsSentTotal.WithLabelValues(template, outcome(err)).Inc()
}

func TrackJob(job, status string) {
	WorkerJobsTotal.WithLabelValues(job, status).Inc()
}

func TrackNotification(sink string) {
	NotificationsShownTotal.WithLabelValues(sink).Inc()
}

func TrackReminderRun(err error) {
	ReminderRunsTotal.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
