package metrics

// Counter describes a metric that accumulates values monotonically.
// An example of a counter is the number of numbers added by the service.
type Counter interface {
	With(labelValues ...string) Counter
	Add(delta float64)
}

// Histogram describes a metric that takes repeated observations of the same
// kind of thing, and produces a statistical summary of those observations,
// typically expressed as quantiles or buckets. An example of a histogram is
// endpoint latencies.
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}
