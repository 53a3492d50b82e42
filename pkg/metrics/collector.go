package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/databacker/docker-database-backup/pkg/core"
)

var targetLabels = []string{"name", "type"}

var (
	targetsDesc = prometheus.NewDesc("targets",
		"Number of database containers in the last backup cycle", nil, nil)
	successfulTargetsDesc = prometheus.NewDesc("successful_targets",
		"Number of database containers backed up successfully in the last backup cycle", nil, nil)
	cycleDurationDesc = prometheus.NewDesc("cycle_duration_ms",
		"Duration of the last backup cycle in milliseconds", nil, nil)

	statusDesc = prometheus.NewDesc("backup_status",
		"1 if the last backup of the database succeeded, 0 otherwise", targetLabels, nil)
	durationDesc = prometheus.NewDesc("backup_duration_ms",
		"Duration of the last backup of the database in milliseconds", targetLabels, nil)
	rawSizeDesc = prometheus.NewDesc("backup_dump_raw_size",
		"Size of the last dump in bytes before compression and encryption", targetLabels, nil)
	sizeDesc = prometheus.NewDesc("backup_dump_size",
		"Size of the last dump in bytes as stored", targetLabels, nil)
	checkedDesc = prometheus.NewDesc("backup_retention_checked_files",
		"Dump files checked by the retention policy", targetLabels, nil)
	keptDesc = prometheus.NewDesc("backup_retention_kept_files",
		"Dump files kept by the retention policy", targetLabels, nil)
)

var _ core.MetricsSink = &Collector{}
var _ prometheus.Collector = &Collector{}

// Collector exposes the result of the last backup cycle. Nothing is exposed before the first
// cycle finished.
type Collector struct {
	mu   sync.RWMutex
	last *core.CycleResult
}

func NewCollector() *Collector {
	return &Collector{}
}

// Flush replaces the exposed values with the ones of result.
func (c *Collector) Flush(result core.CycleResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = &result
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		targetsDesc, successfulTargetsDesc, cycleDurationDesc,
		statusDesc, durationDesc, rawSizeDesc, sizeDesc, checkedDesc, keptDesc,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return
	}
	r := c.last
	ch <- prometheus.MustNewConstMetric(targetsDesc, prometheus.GaugeValue, float64(r.Targets))
	ch <- prometheus.MustNewConstMetric(successfulTargetsDesc, prometheus.GaugeValue, float64(r.Successful))
	ch <- prometheus.MustNewConstMetric(cycleDurationDesc, prometheus.GaugeValue, float64(r.Duration.Milliseconds()))

	// two containers may share a dump name; the first one wins
	seen := map[[2]string]bool{}
	for _, tr := range r.Results {
		labels := [2]string{tr.Name, tr.Kind.String()}
		if seen[labels] {
			continue
		}
		seen[labels] = true
		status := 0.0
		if tr.Status == core.StatusSuccess {
			status = 1
		}
		gauge := func(desc *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels[0], labels[1])
		}
		gauge(statusDesc, status)
		gauge(durationDesc, float64(tr.Duration.Milliseconds()))
		if tr.RawSize > 0 {
			gauge(rawSizeDesc, float64(tr.RawSize))
			gauge(sizeDesc, float64(tr.Size))
		}
		gauge(checkedDesc, float64(tr.Checked))
		gauge(keptDesc, float64(tr.Kept))
	}
}
