//go:build linux || darwin

package metrics

import (
	"strconv"

	"github.com/joeycumines/go-msgloop"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a prometheus.Collector reading a loop's counters on each
// scrape. The loop must be created with msgloop.WithMetrics(true), otherwise
// every counter reads zero.
type Collector struct {
	loop *msgloop.Loop

	iterations       *prometheus.Desc
	messagesExecuted *prometheus.Desc
	messagesPosted   *prometheus.Desc
	eventsDispatched *prometheus.Desc
	staleEvents      *prometheus.Desc
	wakeups          *prometheus.Desc
	panics           *prometheus.Desc
	watches          *prometheus.Desc
	running          *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for loop. Every metric carries a
// constant loop_id label, so collectors for several loops can share a
// registry.
func NewCollector(loop *msgloop.Loop, namespace string) *Collector {
	labels := prometheus.Labels{"loop_id": strconv.FormatUint(loop.ID(), 10)}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "msgloop", name), help, nil, labels)
	}
	return &Collector{
		loop:             loop,
		iterations:       desc("iterations_total", "Drain, wait and dispatch cycles completed"),
		messagesExecuted: desc("messages_executed_total", "Messages popped and executed"),
		messagesPosted:   desc("messages_posted_total", "Messages accepted from other goroutines"),
		eventsDispatched: desc("events_dispatched_total", "Readiness events dispatched"),
		staleEvents:      desc("stale_events_total", "Notifications dropped for removed or replaced registrations"),
		wakeups:          desc("wakeups_total", "Wake signals written"),
		panics:           desc("panics_total", "Panics recovered from messages and events"),
		watches:          desc("watches", "Current number of watched descriptors"),
		running:          desc("running", "Whether the loop is running (1) or not (0)"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.iterations
	ch <- c.messagesExecuted
	ch <- c.messagesPosted
	ch <- c.eventsDispatched
	ch <- c.staleEvents
	ch <- c.wakeups
	ch <- c.panics
	ch <- c.watches
	ch <- c.running
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.loop.Metrics()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.iterations, m.Iterations)
	counter(c.messagesExecuted, m.MessagesExecuted)
	counter(c.messagesPosted, m.MessagesPosted)
	counter(c.eventsDispatched, m.EventsDispatched)
	counter(c.staleEvents, m.StaleEvents)
	counter(c.wakeups, m.Wakeups)
	counter(c.panics, m.Panics)

	ch <- prometheus.MustNewConstMetric(c.watches, prometheus.GaugeValue, float64(m.Watches))

	var running float64
	if c.loop.Running() {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
}
