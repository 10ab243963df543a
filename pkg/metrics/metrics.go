// Package metrics exposes the outcome of an analysis as Prometheus gauges,
// written to a file for the node exporter textfile collector.
package metrics

import (
	"github.com/observatorium/cfganalyzer/pkg/graph"
	"github.com/observatorium/cfganalyzer/pkg/project"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	reg *prometheus.Registry

	projects     prometheus.Gauge
	configFiles  prometheus.Gauge
	schemaErrors prometheus.Gauge
	edges        prometheus.Gauge
	cycles       prometheus.Gauge
	diagnostics  *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		projects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cfganalyzer_projects",
			Help: "Number of analyzed projects.",
		}),
		configFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cfganalyzer_config_files",
			Help: "Number of variable share documents found, including invalid ones.",
		}),
		schemaErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cfganalyzer_schema_errors",
			Help: "Number of documents or projects skipped because of errors.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cfganalyzer_dependency_edges",
			Help: "Number of dependencies between projects.",
		}),
		cycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cfganalyzer_dependency_cycle",
			Help: "1 if the dependency graph has a cycle.",
		}),
		diagnostics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cfganalyzer_diagnostics",
			Help: "Number of resolver diagnostics by rule and severity.",
		}, []string{"rule", "severity"}),
	}
	m.reg.MustRegister(m.projects, m.configFiles, m.schemaErrors, m.edges, m.cycles, m.diagnostics)
	return m
}

// Registry returns the registry holding the analysis metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe replaces the gauges with the values of the given analysis.
func (m *Metrics) Observe(a *project.Analysis) {
	m.projects.Set(float64(len(a.Nodes)))
	m.configFiles.Set(float64(a.Files))
	m.schemaErrors.Set(float64(a.Errors.Len()))
	m.edges.Set(float64(len(a.Graph.Edges())))

	m.cycles.Set(0)
	if _, ok := a.Graph.DetectCycles().(*graph.CycleError); ok {
		m.cycles.Set(1)
	}

	m.diagnostics.Reset()
	for _, d := range a.Result.Diagnostics {
		m.diagnostics.WithLabelValues(string(d.Rule), d.Severity.String()).Inc()
	}
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.reg), "write metrics to %v", path)
}
