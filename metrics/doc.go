// Package metrics exports msgloop counters to Prometheus.
//
// Like msgloop itself, it is only built on Linux and macOS.
package metrics
