// Package metrics exposes Prometheus counters for classification runs.
//
// eventcoder is a batch tool, so values are not scraped over HTTP. At the end
// of a run the registry is written to a node_exporter textfile when
// metrics.textfile is configured.
package metrics
