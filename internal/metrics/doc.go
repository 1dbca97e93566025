// Package metrics provides build observability for assetpack.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default and costs nothing; PrometheusRecorder registers collectors on a
// prometheus.Registry that the dev server exposes at /metrics.
//
//	reg := prometheus.NewRegistry()
//	b := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
package metrics
