package pmemlog

import (
	"github.com/pkg/errors"

	"github.com/wayneeseguin/pmemlog/pkg/pmem"
)

// Content returns the logical content of a log file: every byte up to the
// last non-zero one. The zero tail left by Close or by a crash is dropped.
func Content(path string) ([]byte, error) {
	m, err := pmem.DefaultMapper.Map(path, 0, 0, DefaultFileMode)
	if err != nil {
		return nil, errors.Wrapf(err, "map %s", path)
	}
	defer func() {
		_ = m.Unmap()
	}()

	end, err := logicalEnd(m)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}
	content := make([]byte, end)
	if _, err := m.ReadAt(content, 0); err != nil && end > 0 {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return content, nil
}
