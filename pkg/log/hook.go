package log

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// MetricsHook counts the log entries written, by level. It is both a logrus hook and a
// prometheus collector.
type MetricsHook struct {
	entries *prometheus.CounterVec
}

func NewMetricsHook() *MetricsHook {
	return &MetricsHook{
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_entries_total",
			Help: "Number of log entries written, by level.",
		}, []string{"level"}),
	}
}

// Levels the levels for which the hook should fire
func (h *MetricsHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *MetricsHook) Fire(entry *log.Entry) error {
	h.entries.WithLabelValues(entry.Level.String()).Inc()
	return nil
}

func (h *MetricsHook) Describe(ch chan<- *prometheus.Desc) {
	h.entries.Describe(ch)
}

func (h *MetricsHook) Collect(ch chan<- prometheus.Metric) {
	h.entries.Collect(ch)
}
