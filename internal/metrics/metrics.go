// Package metrics provides Prometheus metrics for sync runs.
//
// A run is short-lived, so nothing is served over HTTP. When a metrics file
// is configured the registry is written once at the end of the run in the
// text exposition format, for the node exporter textfile collector.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sketch actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionLink   = "add_to_collection"
)

var (
	// API request metrics
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketchsync_api_requests_total",
			Help: "Total number of editor API requests",
		},
		[]string{"method", "route", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sketchsync_api_request_duration_seconds",
			Help:    "Editor API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Sketch metrics
	sketchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketchsync_sketches_total",
			Help: "Sketch operations by action and result",
		},
		[]string{"action", "result"},
	)

	filesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sketchsync_files_uploaded_total",
			Help: "Total sketch files sent to the editor",
		},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sketchsync_bytes_uploaded_total",
			Help: "Total bytes of sketch file content sent to the editor",
		},
	)

	lastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sketchsync_last_run_timestamp_seconds",
			Help: "Unix time the last sync run finished",
		},
	)

	lastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sketchsync_last_run_duration_seconds",
			Help: "Duration of the last sync run",
		},
	)
)

// RecordAPIRequest records an editor API request. Status 0 means the request
// failed before a response arrived.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	route := Route(path)
	apiRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSketch records the outcome of one sketch action.
func RecordSketch(action string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	sketchesTotal.WithLabelValues(action, result).Inc()
}

// RecordUpload records the files of one sketch payload.
func RecordUpload(files int, bytes int64) {
	filesUploaded.Add(float64(files))
	bytesUploaded.Add(float64(bytes))
}

// RecordRun records the end of a run.
func RecordRun(duration time.Duration) {
	lastRunTimestamp.SetToCurrentTime()
	lastRunDuration.Set(duration.Seconds())
}

// WriteFile writes the default registry to path in the text exposition format.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Route collapses object ids in an editor API path so label cardinality
// stays bounded: /editor/projects/abc -> /editor/projects/:id.
func Route(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) < 2 || segs[0] != "editor" {
		return path
	}
	switch segs[1] {
	case "projects", "collections":
		for i := 2; i < len(segs); i++ {
			segs[i] = ":id"
		}
	}
	return "/" + strings.Join(segs, "/")
}
