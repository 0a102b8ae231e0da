//go:build !linux

package pmem

import "os"

// MapFile is not available on this platform.
func MapFile(path string, size int64, flags Flags, perm os.FileMode) (*Region, error) {
	return nil, ErrUnsupported
}

func flush(b []byte, nonTemporal bool) error {
	return ErrUnsupported
}

func unmapBytes(b []byte) error {
	return ErrUnsupported
}

// IsPmem always reports false on this platform.
func IsPmem(path string) (bool, error) {
	return false, nil
}
