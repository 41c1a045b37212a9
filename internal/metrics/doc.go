// Package metrics records build observability data.
//
// Components receive a Recorder through injection and default to
// NoopRecorder, so metrics never require nil checks at call sites:
//
//	svc := build.NewService(deps) // NoopRecorder
//	svc.Recorder = metrics.NewPrometheusRecorder(reg)
//
// PrometheusRecorder registers its collectors on a private registry. After a
// build the registry can be written to a node-exporter textfile with
// WriteTextfile, or served by HTTPHandler while watching.
package metrics
