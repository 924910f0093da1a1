// Package metric provides Prometheus metrics for the SyncMesh client.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/syncmesh-go/internal/infra/buildinfo"
)

// BuildInfoCollector exposes build metadata as a constant gauge.
type BuildInfoCollector struct {
	desc *prometheus.Desc
}

// NewBuildInfoCollector creates a collector reporting syncmesh_build_info.
func NewBuildInfoCollector() *BuildInfoCollector {
	info := buildinfo.Get()
	return &BuildInfoCollector{
		desc: prometheus.NewDesc(
			namespace+"_build_info",
			"Build metadata of the SyncMesh client library. Always 1.",
			nil,
			prometheus.Labels{
				"version":    info.Version,
				"commit":     info.Commit,
				"go_version": info.GoVersion,
			},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BuildInfoCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *BuildInfoCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, 1)
}
