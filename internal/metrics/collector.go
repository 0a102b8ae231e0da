package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector handles metrics collection for a pmemlog logger.
type Collector struct {
	// Records
	recordsAppended uint64
	recordsDropped  uint64
	dynamicRenders  uint64
	truncations     uint64

	// Region operations
	growCount    uint64
	bytesWritten uint64

	// Error metrics
	errorCount     uint64
	errorsBySource sync.Map // map[string]*atomic.Uint64

	// Performance metrics
	totalWriteTime int64 // nanoseconds
	maxWriteTime   int64 // nanoseconds
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Metrics contains runtime metrics for the logger.
type Metrics struct {
	RecordsAppended uint64 `json:"records_appended" yaml:"records_appended"`
	RecordsDropped  uint64 `json:"records_dropped" yaml:"records_dropped"`
	DynamicRenders  uint64 `json:"dynamic_renders" yaml:"dynamic_renders"`
	Truncations     uint64 `json:"truncations" yaml:"truncations"`

	GrowCount    uint64 `json:"grow_count" yaml:"grow_count"`
	BytesWritten uint64 `json:"bytes_written" yaml:"bytes_written"`

	// Region state supplied by the logger
	Offset   int64 `json:"offset" yaml:"offset"`
	Capacity int64 `json:"capacity" yaml:"capacity"`

	ErrorCount     uint64            `json:"error_count" yaml:"error_count"`
	ErrorsBySource map[string]uint64 `json:"errors_by_source" yaml:"errors_by_source"`

	AverageWriteTime time.Duration `json:"average_write_time" yaml:"average_write_time"`
	MaxWriteTime     time.Duration `json:"max_write_time" yaml:"max_write_time"`
}

// GetMetrics returns current metrics snapshot.
func (c *Collector) GetMetrics(offset, capacity int64) Metrics {
	metrics := Metrics{
		RecordsAppended: atomic.LoadUint64(&c.recordsAppended),
		RecordsDropped:  atomic.LoadUint64(&c.recordsDropped),
		DynamicRenders:  atomic.LoadUint64(&c.dynamicRenders),
		Truncations:     atomic.LoadUint64(&c.truncations),
		GrowCount:       atomic.LoadUint64(&c.growCount),
		BytesWritten:    atomic.LoadUint64(&c.bytesWritten),
		Offset:          offset,
		Capacity:        capacity,
		ErrorCount:      atomic.LoadUint64(&c.errorCount),
		ErrorsBySource:  make(map[string]uint64),
	}

	// Copy error counts by source
	c.errorsBySource.Range(func(key, value interface{}) bool {
		source := key.(string)
		counter := value.(*atomic.Uint64)
		if count := counter.Load(); count > 0 {
			metrics.ErrorsBySource[source] = count
		}
		return true
	})

	if metrics.RecordsAppended > 0 {
		metrics.AverageWriteTime = time.Duration(atomic.LoadInt64(&c.totalWriteTime)) / time.Duration(metrics.RecordsAppended)
	}
	metrics.MaxWriteTime = time.Duration(atomic.LoadInt64(&c.maxWriteTime))

	return metrics
}

// ResetMetrics resets all metrics counters.
func (c *Collector) ResetMetrics() {
	atomic.StoreUint64(&c.recordsAppended, 0)
	atomic.StoreUint64(&c.recordsDropped, 0)
	atomic.StoreUint64(&c.dynamicRenders, 0)
	atomic.StoreUint64(&c.truncations, 0)
	atomic.StoreUint64(&c.growCount, 0)
	atomic.StoreUint64(&c.bytesWritten, 0)
	atomic.StoreUint64(&c.errorCount, 0)
	atomic.StoreInt64(&c.totalWriteTime, 0)
	atomic.StoreInt64(&c.maxWriteTime, 0)

	c.errorsBySource.Range(func(key, value interface{}) bool {
		value.(*atomic.Uint64).Store(0)
		return true
	})
}

// TrackAppend records a committed record of the given size.
func (c *Collector) TrackAppend(bytes int64, duration time.Duration) {
	if bytes > 0 {
		atomic.AddUint64(&c.bytesWritten, uint64(bytes))
	}
	atomic.AddUint64(&c.recordsAppended, 1)
	atomic.AddInt64(&c.totalWriteTime, int64(duration))

	// Update max write time
	for {
		oldMax := atomic.LoadInt64(&c.maxWriteTime)
		if int64(duration) <= oldMax {
			break
		}
		if atomic.CompareAndSwapInt64(&c.maxWriteTime, oldMax, int64(duration)) {
			break
		}
	}
}

// TrackDynamicRender counts a record that overflowed the stack buffer.
func (c *Collector) TrackDynamicRender() {
	atomic.AddUint64(&c.dynamicRenders, 1)
}

// TrackTruncation counts a record cut short by the second rendering pass.
func (c *Collector) TrackTruncation() {
	atomic.AddUint64(&c.truncations, 1)
}

// TrackGrow counts a remap of the region to a larger capacity.
func (c *Collector) TrackGrow() {
	atomic.AddUint64(&c.growCount, 1)
}

// TrackDropped counts a record that was never committed.
func (c *Collector) TrackDropped() {
	atomic.AddUint64(&c.recordsDropped, 1)
}

// TrackError increments the error counter and tracks by source.
func (c *Collector) TrackError(source string) {
	atomic.AddUint64(&c.errorCount, 1)

	val, _ := c.errorsBySource.LoadOrStore(source, &atomic.Uint64{})
	val.(*atomic.Uint64).Add(1)
}
