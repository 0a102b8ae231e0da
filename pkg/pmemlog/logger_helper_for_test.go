//go:build linux

package pmemlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wayneeseguin/pmemlog/pkg/pmem"
)

const testGrowth = 64 * 1024

// mapCall is one request seen by recordingMapper.
type mapCall struct {
	size  int64
	flags pmem.Flags
}

// recordingMapper maps real files and records every request. fail, when
// set, can reject a request before it reaches the filesystem.
type recordingMapper struct {
	mu    sync.Mutex
	calls []mapCall
	fail  func(call mapCall) error
}

func (m *recordingMapper) Map(path string, size int64, flags pmem.Flags, perm os.FileMode) (pmem.Mapping, error) {
	call := mapCall{size: size, flags: flags}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	fail := m.fail
	m.mu.Unlock()

	if fail != nil {
		if err := fail(call); err != nil {
			return nil, err
		}
	}
	return pmem.DefaultMapper.Map(path, size, flags, perm)
}

func (m *recordingMapper) recorded() []mapCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mapCall(nil), m.calls...)
}

func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithGrowthIncrement(testGrowth),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return testInstant }),
		WithThreadID(func() string { return "tid" }),
		WithStrictFormat(true),
		WithErrorHandler(SilentErrorHandler),
	}, extra...)
}

// openTestLogger opens a logger on a fresh file in a temporary directory.
func openTestLogger(t *testing.T, extra ...Option) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "LOG")

	l, err := Open(path, testOptions(extra...)...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = l.Close()
	})
	return l, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return string(data)
}
