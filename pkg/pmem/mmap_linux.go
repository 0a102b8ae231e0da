//go:build linux

package pmem

import (
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MapFile maps the file at path into memory.
//
// With FileCreate the file is created when missing and resized to exactly
// size bytes, which may shrink it. Without FileSparse any added extent is
// allocated on the medium up front. Without FileCreate the file must exist
// and hold at least size bytes; a size of zero maps the whole file.
//
// The returned Region covers the whole file, so its Size may exceed the
// requested size.
func MapFile(path string, size int64, flags Flags, perm os.FileMode) (*Region, error) {
	if size < 0 {
		return nil, errors.Errorf("pmem: negative map size %d for %s", size, path)
	}

	cleanPath := filepath.Clean(path)
	oflag := os.O_RDWR
	if flags&FileCreate != 0 {
		oflag |= os.O_CREATE
	}
	file, err := os.OpenFile(cleanPath, oflag, perm) // #nosec G304 - path is chosen by the owner of the log
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	// The mapping stays valid after the descriptor is closed.
	defer func() {
		_ = file.Close()
	}()

	fd := int(file.Fd())
	if flags&FileCreate != 0 {
		if err := resize(file, size, flags&FileSparse != 0); err != nil {
			return nil, errors.Wrapf(err, "resize %s to %d", cleanPath, size)
		}
	}

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", cleanPath)
	}
	length := info.Size()
	if length < size {
		return nil, errors.Errorf("pmem: %s holds %d bytes, need %d", cleanPath, length, size)
	}
	if length > math.MaxInt {
		return nil, errors.Errorf("pmem: %s is too large to map (%d bytes)", cleanPath, length)
	}
	if length == 0 {
		return &Region{path: cleanPath}, nil
	}

	data, direct, err := mmap(fd, int(length))
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", cleanPath)
	}
	return &Region{path: cleanPath, data: data, direct: direct}, nil
}

func resize(file *os.File, size int64, sparse bool) error {
	info, err := file.Stat()
	if err != nil {
		return err
	}
	current := info.Size()
	if current == size {
		return nil
	}
	fd := int(file.Fd())
	if err := unix.Ftruncate(fd, size); err != nil {
		return errors.Wrap(err, "ftruncate")
	}
	if sparse || size < current {
		return nil
	}
	err = unix.Fallocate(fd, 0, current, size-current)
	if errors.Is(err, unix.EOPNOTSUPP) {
		// Filesystems without fallocate keep the extent sparse.
		return nil
	}
	return errors.Wrap(err, "fallocate")
}

// mmap tries a synchronous DAX mapping first and falls back to a plain
// shared mapping when the filesystem does not support it.
func mmap(fd, length int) ([]byte, bool, error) {
	const prot = unix.PROT_READ | unix.PROT_WRITE

	data, err := unix.Mmap(fd, 0, length, prot, unix.MAP_SHARED_VALIDATE|unix.MAP_SYNC)
	if err == nil {
		return data, true, nil
	}
	if !errors.Is(err, unix.EOPNOTSUPP) && !errors.Is(err, unix.EINVAL) {
		return nil, false, err
	}

	data, err = unix.Mmap(fd, 0, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func flush(b []byte, nonTemporal bool) error {
	if err := unix.Msync(b, unix.MS_SYNC); err != nil {
		return err
	}
	if nonTemporal {
		// Advisory only; kernels before 5.4 reject MADV_COLD.
		_ = unix.Madvise(b, unix.MADV_COLD)
	}
	return nil
}

func unmapBytes(b []byte) error {
	return unix.Munmap(b)
}
