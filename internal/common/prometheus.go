package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	UnreadRebuildTotal         = "unread_rebuild_total"
	UnreadPersistFailureTotal  = "unread_persist_failure_total"
	SlowSessionClosedTotal     = "slow_session_closed_total"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"path", "status_code"}),
		UnreadRebuildTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: UnreadRebuildTotal,
			Help: "Count of full unread recounts of a session",
		}, []string{"reason"}),
		UnreadPersistFailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: UnreadPersistFailureTotal,
			Help: "Count of read markers which could not be saved",
		}, []string{"kind"}),
		SlowSessionClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SlowSessionClosedTotal,
			Help: "Count of websocket sessions closed because they could not keep up",
		}, []string{"component"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"path", "status_code"}),
	}
)
