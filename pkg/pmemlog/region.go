package pmemlog

import (
	"os"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/pmemlog/pkg/pmem"
)

// region owns the mapping of the backing file. All access to the mapped
// bytes goes through it; callers hold Logger.mu.
type region struct {
	mapping pmem.Mapping
	mapper  pmem.Mapper
	path    string
	perm    os.FileMode
}

func (r *region) size() int64 {
	return r.mapping.Size()
}

// growTo remaps the file in increment steps until the mapping holds at
// least minSize bytes, adopting whatever size the mapper returns. It
// reports how many remaps it made. The new mapping is established before
// the old one is released, so on failure the old mapping stays usable.
func (r *region) growTo(minSize, increment int64) (int, error) {
	grows := 0
	for r.mapping.Size() < minSize {
		current := r.mapping.Size()
		next, err := r.mapper.Map(r.path, current+increment, pmem.FileCreate|pmem.FileSparse, r.perm)
		if err != nil {
			return grows, errors.Wrapf(err, "remap to %d bytes", current+increment)
		}
		if next.Size() <= current {
			_ = next.Unmap()
			return grows, errors.Errorf("remap to %d bytes returned %d", current+increment, next.Size())
		}

		old := r.mapping
		r.mapping = next
		grows++
		if err := old.Unmap(); err != nil {
			return grows, errors.Wrap(err, "release previous mapping")
		}
	}
	return grows, nil
}

// write stores p at off with a non-temporal persistent copy.
func (r *region) write(off int64, p []byte) error {
	return r.mapping.Copy(off, p, pmem.CopyNonTemporal)
}

// shrinkToExact releases the mapping and resizes the backing file to size
// bytes. The region is unusable afterwards.
func (r *region) shrinkToExact(size int64) error {
	if err := r.mapping.Unmap(); err != nil {
		return errors.Wrap(err, "release mapping")
	}
	m, err := r.mapper.Map(r.path, size, pmem.FileCreate, r.perm)
	if err != nil {
		return errors.Wrapf(err, "resize to %d bytes", size)
	}
	r.mapping = m
	return errors.Wrap(m.Unmap(), "release resized mapping")
}
