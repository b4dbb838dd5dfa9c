// Package generic implements in-memory versions of the metric types. The
// fixture reads them back to report what the service did, and tests use them
// to make assertions about instrumentation.
package generic

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/VividCortex/gohistogram"

	"github.com/coinbub/testrpc/metrics"
)

// LabelValueUnknown is used as a label value when one is expected but not
// provided, typically due to user error.
const LabelValueUnknown = "unknown"

// Counter is an in-memory implementation of a Counter. Counters derived via
// With share the value of their parent.
type Counter struct {
	Name string
	bits *uint64
	lvs  []string // immutable
}

// NewCounter returns a new, usable Counter.
func NewCounter(name string) *Counter {
	return &Counter{
		Name: name,
		bits: new(uint64),
	}
}

// With implements Counter.
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{
		Name: c.Name,
		bits: c.bits,
		lvs:  withLabels(c.lvs, labelValues),
	}
}

// Add implements Counter.
func (c *Counter) Add(delta float64) {
	for {
		var (
			old  = atomic.LoadUint64(c.bits)
			newf = math.Float64frombits(old) + delta
			new  = math.Float64bits(newf)
		)
		if atomic.CompareAndSwapUint64(c.bits, old, new) {
			break
		}
	}
}

// Value returns the current value of the counter.
func (c *Counter) Value() float64 {
	return math.Float64frombits(atomic.LoadUint64(c.bits))
}

// ValueReset returns the current value of the counter, and resets it to zero.
func (c *Counter) ValueReset() float64 {
	for {
		old := atomic.LoadUint64(c.bits)
		if atomic.CompareAndSwapUint64(c.bits, old, math.Float64bits(0)) {
			return math.Float64frombits(old)
		}
	}
}

// LabelValues returns the set of label values attached to the counter.
func (c *Counter) LabelValues() []string {
	return c.lvs
}

// Histogram is an in-memory implementation of a streaming histogram, based on
// VividCortex/gohistogram. It dynamically computes quantiles, so it's not
// suitable for aggregation. Histograms derived via With share observations
// with their parent.
type Histogram struct {
	Name string
	lvs  []string // immutable
	h    *safeHistogram
}

// NewHistogram returns a numeric histogram based on VividCortex/gohistogram. A
// good default value for buckets is 50.
func NewHistogram(name string, buckets int) *Histogram {
	return &Histogram{
		Name: name,
		h:    &safeHistogram{Histogram: gohistogram.NewHistogram(buckets)},
	}
}

// With implements Histogram.
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{
		Name: h.Name,
		lvs:  withLabels(h.lvs, labelValues),
		h:    h.h,
	}
}

// Observe implements Histogram.
func (h *Histogram) Observe(value float64) {
	h.h.Lock()
	defer h.h.Unlock()
	h.h.Add(value)
	h.h.n++
}

// Quantile returns the value of the quantile q, 0.0 < q < 1.0.
func (h *Histogram) Quantile(q float64) float64 {
	h.h.RLock()
	defer h.h.RUnlock()
	return h.h.Quantile(q)
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.h.RLock()
	defer h.h.RUnlock()
	return h.h.n
}

// LabelValues returns the set of label values attached to the histogram.
func (h *Histogram) LabelValues() []string {
	return h.lvs
}

// gohistogram is not safe for concurrent use.
type safeHistogram struct {
	sync.RWMutex
	gohistogram.Histogram
	n uint64
}

func withLabels(lvs, labelValues []string) []string {
	if len(labelValues)%2 != 0 {
		labelValues = append(labelValues, LabelValueUnknown)
	}
	out := make([]string, 0, len(lvs)+len(labelValues))
	out = append(out, lvs...)
	return append(out, labelValues...)
}
