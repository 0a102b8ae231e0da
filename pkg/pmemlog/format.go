package pmemlog

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
	"time"
)

const (
	// stagingBufferSize is the fixed buffer most records are rendered into.
	stagingBufferSize = 512
	// maxThreadIDSize caps the thread identity in the header.
	maxThreadIDSize = 32
	// maxHeaderSize is 10 date + 15 time + 3 delimiters plus the thread id.
	maxHeaderSize = 28 + maxThreadIDSize

	headerTimeLayout = "2006/01/02-15:04:05.000000"
)

// The header must always fit into the fixed buffer with room to spare.
var _ [stagingBufferSize - maxHeaderSize - 1]struct{}

// renderState records which buffer produced a record.
type renderState int

const (
	// sized: the record fit into the fixed staging buffer.
	sized renderState = iota
	// overflowed: the record was re-rendered into an exactly sized buffer.
	overflowed
)

func (s renderState) String() string {
	switch s {
	case sized:
		return "sized"
	case overflowed:
		return "overflowed"
	default:
		return "unknown"
	}
}

// stagingBuffer is a bounded io.Writer in the manner of snprintf: it keeps
// what fits into its fixed capacity and counts everything it was offered.
type stagingBuffer struct {
	buf    []byte
	needed int
}

func newStagingBuffer(size int) *stagingBuffer {
	return &stagingBuffer{buf: make([]byte, 0, size)}
}

func (b *stagingBuffer) reset() {
	b.buf = b.buf[:0]
	b.needed = 0
}

// Write never fails and never grows the buffer.
func (b *stagingBuffer) Write(p []byte) (int, error) {
	if room := cap(b.buf) - len(b.buf); room > 0 {
		b.buf = append(b.buf, p[:min(room, len(p))]...)
	}
	b.needed += len(p)
	return len(p), nil
}

// stagingPool reuses fixed staging buffers across appends.
var stagingPool = sync.Pool{
	New: func() interface{} {
		return newStagingBuffer(stagingBufferSize)
	},
}

// record describes one rendered log line.
type record struct {
	state     renderState
	truncated bool
}

// renderer renders records for a Logger.
type renderer struct {
	location *time.Location
	strict   bool
}

// render formats header and message into fixed and returns the finished
// line, newline-terminated. fixed is used when the line fits; otherwise the
// line is rendered once more into a buffer of exactly the size the first
// pass reported, plus room for the newline and a terminator.
func (r renderer) render(fixed *stagingBuffer, now time.Time, tid string, format string, args []interface{}) ([]byte, record) {
	var rec record
	buf := fixed
	for {
		buf.reset()
		r.writeHeader(buf, now, tid)
		fmt.Fprintf(buf, format, args...)

		// One byte must stay free for the newline.
		if buf.needed < cap(buf.buf)-1 {
			break
		}
		if rec.state == sized {
			rec.state = overflowed
			buf = newStagingBuffer(buf.needed + 2)
			continue
		}

		// The arguments rendered longer the second time.
		if r.strict {
			panic(fmt.Sprintf("pmemlog: record needed %d bytes in a %d-byte buffer", buf.needed, cap(buf.buf)))
		}
		rec.truncated = true
		buf.buf = buf.buf[:cap(buf.buf)-1]
		break
	}

	line := buf.buf
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	return line, rec
}

func (r renderer) writeHeader(buf *stagingBuffer, now time.Time, tid string) {
	if len(tid) > maxThreadIDSize {
		tid = tid[:maxThreadIDSize]
	}
	buf.buf = now.In(r.location).AppendFormat(buf.buf, headerTimeLayout)
	buf.buf = append(buf.buf, ' ')
	buf.buf = append(buf.buf, tid...)
	buf.buf = append(buf.buf, ' ')
	buf.needed = len(buf.buf)
}

// goroutineID returns the id of the calling goroutine, the closest Go has
// to a thread identity.
func goroutineID() string {
	var stack [64]byte
	b := stack[:runtime.Stack(stack[:], false)]
	// "goroutine 18 [running]:"
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		return string(b[:i])
	}
	return "0"
}
