// Package metrics exposes Prometheus instrumentation for the event loop,
// pairing state machine, and cryptographic envelope.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "bluebeam"

// Registry is the collector registry all metrics in this package attach
// to, at package init. It is a dedicated registry rather than
// prometheus.DefaultRegisterer, so only this package's collectors are
// served by Handler.
var Registry = prometheus.NewRegistry()
