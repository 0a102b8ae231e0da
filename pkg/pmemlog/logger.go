package pmemlog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/pmemlog/internal/metrics"
	"github.com/wayneeseguin/pmemlog/pkg/pmem"
)

// Printer is the logging contract a Logger satisfies: take a format string
// and its arguments and write one line.
type Printer interface {
	Logv(format string, args ...interface{})
}

// Metrics is a snapshot of logger counters and region state.
type Metrics = metrics.Metrics

// Logger appends formatted text records to a memory-mapped file.
//
// Logger is safe for concurrent use. Rendering happens outside the lock;
// the capacity check, growth, copy and offset advance happen under it, so
// records never interleave.
type Logger struct {
	mu     sync.Mutex
	region *region // nil once closed
	offset int64   // logical size: bytes of real log content

	path     string
	config   *Config
	renderer renderer
	lock     *flock.Flock // held when the logger was opened with Open
	metrics  *metrics.Collector
}

var _ Printer = (*Logger)(nil)

// New creates a logger over an established mapping of the file at path.
//
// When existing is false the logger starts writing at offset 0. When it is
// true the whole mapping is treated as written content and appends start
// at initial.Size().
//
// initial must be a live mapping; New panics otherwise.
func New(path string, initial pmem.Mapping, existing bool, options ...Option) (*Logger, error) {
	if isNilMapping(initial) {
		panic("pmemlog: New requires a live mapping")
	}
	config, err := newConfig(options...)
	if err != nil {
		return nil, err
	}
	return newLogger(path, initial, existing, config), nil
}

// Open maps the file at path and returns a logger that owns it.
//
// A missing or empty file is created sparse with one growth increment of
// capacity. An existing file is reopened: trailing zero bytes left by a
// crash or by Close are trimmed and appends continue after the last
// written byte, on a new line if the last record was torn. Open holds an exclusive lock on path+".lock" until Close
// and fails with ErrLocked if another logger holds it.
func Open(path string, options ...Option) (*Logger, error) {
	config, err := newConfig(options...)
	if err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	// #nosec G301 - log directories need to be accessible by other processes
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create directory")
	}

	lock := flock.New(cleanPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "lock %s", cleanPath)
	}
	if !locked {
		return nil, errors.Wrap(ErrLocked, cleanPath)
	}

	mapping, existing, err := openRegion(config, cleanPath)
	if err != nil {
		_ = lock.Unlock() // Best effort unlock on error path
		return nil, err
	}

	l := newLogger(cleanPath, mapping, existing, config)
	l.lock = lock
	if existing {
		if err := l.terminateLastRecord(); err != nil {
			_ = l.Close()
			return nil, errors.Wrapf(err, "recover %s", cleanPath)
		}
	}
	return l, nil
}

// terminateLastRecord ends a record torn by a crash with a newline so the
// next record starts on a line of its own.
func (l *Logger) terminateLastRecord() error {
	if l.offset == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := l.region.mapping.ReadAt(last, l.offset-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	return l.commit([]byte{'\n'})
}

func newLogger(path string, initial pmem.Mapping, existing bool, config *Config) *Logger {
	l := &Logger{
		region: &region{
			mapping: initial,
			mapper:  config.Mapper,
			path:    path,
			perm:    config.FileMode,
		},
		path:     path,
		config:   config,
		renderer: renderer{location: config.Location, strict: config.StrictFormat},
		metrics:  metrics.NewCollector(),
	}
	if existing {
		l.offset = initial.Size()
	}
	return l
}

func isNilMapping(m pmem.Mapping) bool {
	if m == nil {
		return true
	}
	r, ok := m.(*pmem.Region)
	return ok && r == nil
}

// openRegion maps path for Open and reports whether it held log content.
func openRegion(config *Config, path string) (pmem.Mapping, bool, error) {
	info, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, false, errors.Wrapf(err, "stat %s", path)
	}

	if err == nil && info.Size() > 0 {
		m, err := config.Mapper.Map(path, 0, 0, config.FileMode)
		if err != nil {
			return nil, false, errors.Wrapf(err, "map %s", path)
		}
		end, err := logicalEnd(m)
		if err != nil {
			_ = m.Unmap()
			return nil, false, errors.Wrapf(err, "scan %s", path)
		}
		if end == m.Size() {
			return m, true, nil
		}
		if err := m.Unmap(); err != nil {
			return nil, false, errors.Wrapf(err, "unmap %s", path)
		}
		if end > 0 {
			m, err = config.Mapper.Map(path, end, pmem.FileCreate, config.FileMode)
			if err != nil {
				return nil, false, errors.Wrapf(err, "trim %s to %d bytes", path, end)
			}
			return m, true, nil
		}
	}

	m, err := config.Mapper.Map(path, config.GrowthIncrement, pmem.FileCreate|pmem.FileSparse, config.FileMode)
	if err != nil {
		return nil, false, errors.Wrapf(err, "create %s", path)
	}
	return m, false, nil
}

// logicalEnd returns the offset just past the last non-zero byte.
func logicalEnd(m pmem.Mapping) (int64, error) {
	const chunkSize = 64 * 1024

	chunk := make([]byte, chunkSize)
	end := m.Size()
	for end > 0 {
		start := max(end-chunkSize, 0)
		buf := chunk[:end-start]
		if _, err := m.ReadAt(buf, start); err != nil && err != io.EOF {
			return 0, err
		}
		for i := len(buf) - 1; i >= 0; i-- {
			if buf[i] != 0 {
				return start + int64(i) + 1, nil
			}
		}
		end = start
	}
	return 0, nil
}

// Logv appends one record: a timestamp and thread id header followed by
// the formatted message and exactly one trailing newline.
//
// Logv never returns an error. A record that cannot be committed is
// dropped, counted and passed to the configured ErrorHandler.
func (l *Logger) Logv(format string, args ...interface{}) {
	now := l.config.Clock()
	tid := l.config.ThreadID()

	fixed := stagingPool.Get().(*stagingBuffer)
	defer stagingPool.Put(fixed)

	line, rec := l.renderer.render(fixed, now, tid, format, args)
	if rec.state == overflowed {
		l.metrics.TrackDynamicRender()
	}
	if rec.truncated {
		l.metrics.TrackTruncation()
	}

	start := time.Now()
	if err := l.commit(line); err != nil {
		l.metrics.TrackDropped()
		var logErr LogError
		if errors.As(err, &logErr) {
			l.metrics.TrackError(logErr.Operation)
			l.config.ErrorHandler(logErr)
		}
		return
	}
	l.metrics.TrackAppend(int64(len(line)), time.Since(start))
}

// Logf is an alias for Logv.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.Logv(format, args...)
}

// commit copies line into the region at the logical offset, growing the
// region first if needed.
func (l *Logger) commit(line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.region == nil {
		return ErrClosed
	}

	end := l.offset + int64(len(line))
	if end > l.region.size() {
		grows, err := l.region.growTo(end, l.config.GrowthIncrement)
		for i := 0; i < grows; i++ {
			l.metrics.TrackGrow()
		}
		if err != nil {
			return newLogError(OpGrow, l.path, err)
		}
	}

	if err := l.region.write(l.offset, line); err != nil {
		return newLogError(OpWrite, l.path, err)
	}
	l.offset = end
	return nil
}

// Close shrinks the backing file to the logical size plus one byte,
// releases the mapping and, for loggers from Open, the ownership lock.
// Closing a closed logger is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.region == nil {
		return nil
	}

	var errs []error
	if err := l.region.shrinkToExact(l.offset + 1); err != nil {
		l.metrics.TrackError(OpClose)
		errs = append(errs, newLogError(OpClose, l.path, err))
	}
	l.region = nil

	if l.lock != nil {
		if err := l.lock.Unlock(); err != nil {
			errs = append(errs, errors.Wrap(err, "unlock"))
		}
		l.lock = nil
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Errorf("close errors: %v", errs)
	}
}

// Path returns the backing file path.
func (l *Logger) Path() string {
	return l.path
}

// Offset returns the logical size: the number of bytes of log content.
func (l *Logger) Offset() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset
}

// Capacity returns the mapped size, or 0 after Close.
func (l *Logger) Capacity() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.region == nil {
		return 0
	}
	return l.region.size()
}

// IsClosed reports whether Close has been called.
func (l *Logger) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.region == nil
}

// Metrics returns a snapshot of the logger counters.
func (l *Logger) Metrics() Metrics {
	l.mu.Lock()
	offset := l.offset
	var capacity int64
	if l.region != nil {
		capacity = l.region.size()
	}
	l.mu.Unlock()
	return l.metrics.GetMetrics(offset, capacity)
}

// ResetMetrics zeroes the logger counters. Offset and capacity are region
// state and are not affected.
func (l *Logger) ResetMetrics() {
	l.metrics.ResetMetrics()
}

// Writer returns an io.Writer that appends each Write as one record, for
// use with the standard log package.
func (l *Logger) Writer() io.Writer {
	return logWriter{l}
}

type logWriter struct {
	l *Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	if w.l.IsClosed() {
		return 0, ErrClosed
	}
	w.l.Logv("%s", p)
	return len(p), nil
}
