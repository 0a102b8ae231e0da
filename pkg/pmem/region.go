package pmem

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var pageSize = int64(os.Getpagesize())

// Region is a file mapped into the address space by MapFile.
//
// A Region is not safe for concurrent use; callers serialize Copy and
// Unmap themselves.
type Region struct {
	path     string
	data     []byte
	direct   bool // mapped with MAP_SYNC on a DAX filesystem
	unmapped bool
}

// Path returns the cleaned path of the backing file.
func (r *Region) Path() string {
	return r.path
}

// Size returns the mapped length in bytes.
func (r *Region) Size() int64 {
	return int64(len(r.data))
}

// Direct reports whether stores go straight to persistent memory.
func (r *Region) Direct() bool {
	return r.direct
}

// Copy stores src at off and, unless CopyNoFlush is set, flushes the
// touched pages to the medium before returning.
func (r *Region) Copy(off int64, src []byte, flags CopyFlags) error {
	if r.unmapped {
		return ErrUnmapped
	}
	if off < 0 || off+int64(len(src)) > int64(len(r.data)) {
		return errors.Wrapf(ErrOutOfRange, "copy %d bytes at offset %d into %d-byte mapping of %s",
			len(src), off, len(r.data), r.path)
	}

	n := copy(r.data[off:], src)
	if n == 0 || flags&CopyNoFlush != 0 {
		return nil
	}

	start := off &^ (pageSize - 1)
	if err := flush(r.data[start:off+int64(n)], flags&CopyNonTemporal != 0); err != nil {
		return errors.Wrapf(err, "flush %s", r.path)
	}
	return nil
}

// ReadAt implements io.ReaderAt over the mapping.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	if r.unmapped {
		return 0, ErrUnmapped
	}
	if off < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "read at offset %d", off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Unmap releases the mapping. The backing file keeps its current size.
func (r *Region) Unmap() error {
	if r.unmapped {
		return nil
	}
	r.unmapped = true
	data := r.data
	r.data = nil
	if data == nil {
		return nil
	}
	if err := unmapBytes(data); err != nil {
		return errors.Wrapf(err, "unmap %s", r.path)
	}
	return nil
}
