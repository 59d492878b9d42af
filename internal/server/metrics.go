package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "http_request_duration_seconds",
	Help:    "Time spent serving requests.",
	Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10},
}, []string{"path"})

var uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "document_uploads_total",
	Help: "Documents received through the upload endpoint",
})

var processingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "document_processing_outcomes_total",
	Help: "Terminal orchestration outcomes by state",
}, []string{"state"})

var activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "document_active_runs",
	Help: "Orchestration runs currently in flight",
})

type httpStatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *httpStatusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming keeps working behind
// the recorder.
func (r *httpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
