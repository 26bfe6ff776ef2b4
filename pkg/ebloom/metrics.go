package ebloom

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Filter's read-only statistics as Prometheus metrics.
// It implements prometheus.Collector, so it can be registered directly:
//
//	reg.MustRegister(ebloom.NewCollector(filter, "orders"))
//
// This is purely additive instrumentation (spec §6 stats surface); a
// Filter never requires a Collector to function correctly.
type Collector struct {
	filter *Filter
	name   string

	totalInserts *prometheus.Desc
	activeLevel  *prometheus.Desc
	numLevels    *prometheus.Desc
	capacity     *prometheus.Desc
	targetFPR    *prometheus.Desc
}

// NewCollector builds a Collector for filter, labeling every metric with
// the given logical name (e.g. the filter's purpose: "login_attempts").
func NewCollector(filter *Filter, name string) *Collector {
	constLabels := prometheus.Labels{"filter": name}
	return &Collector{
		filter: filter,
		name:   name,
		totalInserts: prometheus.NewDesc(
			"ebloom_total_insert_count", "Sum of insert_count across all levels.", nil, constLabels),
		activeLevel: prometheus.NewDesc(
			"ebloom_active_level_index", "Index of the level currently receiving inserts.", nil, constLabels),
		numLevels: prometheus.NewDesc(
			"ebloom_num_levels", "Configured number of sliding-window levels.", nil, constLabels),
		capacity: prometheus.NewDesc(
			"ebloom_capacity_per_level", "Configured intended distinct-item capacity per level.", nil, constLabels),
		targetFPR: prometheus.NewDesc(
			"ebloom_target_fpr", "Configured target false-positive rate per level.", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalInserts
	ch <- c.activeLevel
	ch <- c.numLevels
	ch <- c.capacity
	ch <- c.targetFPR
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.filter.Stats()
	ch <- prometheus.MustNewConstMetric(c.totalInserts, prometheus.CounterValue, float64(s.TotalInsertCount))
	ch <- prometheus.MustNewConstMetric(c.activeLevel, prometheus.GaugeValue, float64(s.ActiveLevelIndex))
	ch <- prometheus.MustNewConstMetric(c.numLevels, prometheus.GaugeValue, float64(s.NumLevels))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.CapacityPerLevel))
	ch <- prometheus.MustNewConstMetric(c.targetFPR, prometheus.GaugeValue, s.TargetFPR)
}
