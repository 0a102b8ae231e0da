package pmem

import (
	"errors"
	"os"
)

// Flags control how MapFile opens and sizes the backing file.
type Flags uint

const (
	// FileCreate creates the file if it does not exist and resizes it to
	// exactly the requested size.
	FileCreate Flags = 1 << iota
	// FileSparse leaves the extent added by FileCreate unallocated.
	FileSparse
)

// CopyFlags control how Copy stores data.
type CopyFlags uint

const (
	// CopyNonTemporal marks the data as write-once: after the flush the
	// touched pages are advised cold so they are the first to leave memory.
	CopyNonTemporal CopyFlags = 1 << iota
	// CopyNoFlush stores the bytes without flushing them.
	CopyNoFlush
)

var (
	// ErrUnmapped is returned by operations on a region that was unmapped.
	ErrUnmapped = errors.New("pmem: region is unmapped")
	// ErrOutOfRange is returned when a copy or read falls outside the mapping.
	ErrOutOfRange = errors.New("pmem: access out of mapped range")
	// ErrUnsupported is returned on platforms without mmap support.
	ErrUnsupported = errors.New("pmem: memory mapping is not supported on this platform")
)

// Mapping is a live mapping of a file.
type Mapping interface {
	// Size returns the mapped length in bytes.
	Size() int64
	// Copy stores src at off and persists it according to flags.
	Copy(off int64, src []byte, flags CopyFlags) error
	// ReadAt reads from the mapping at off.
	ReadAt(p []byte, off int64) (int, error)
	// Unmap releases the mapping. Calling it more than once is a no-op.
	Unmap() error
}

// Mapper establishes mappings.
type Mapper interface {
	Map(path string, size int64, flags Flags, perm os.FileMode) (Mapping, error)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc func(path string, size int64, flags Flags, perm os.FileMode) (Mapping, error)

// Map calls f.
func (f MapperFunc) Map(path string, size int64, flags Flags, perm os.FileMode) (Mapping, error) {
	return f(path, size, flags, perm)
}

// DefaultMapper maps files with MapFile.
var DefaultMapper Mapper = MapperFunc(func(path string, size int64, flags Flags, perm os.FileMode) (Mapping, error) {
	r, err := MapFile(path, size, flags, perm)
	if err != nil {
		return nil, err
	}
	return r, nil
})
