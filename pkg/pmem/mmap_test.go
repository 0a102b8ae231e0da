//go:build linux

package pmem

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMapFileCreate(t *testing.T) {
	tests := []struct {
		name  string
		size  int64
		flags Flags
	}{
		{"Sparse", 1 << 20, FileCreate | FileSparse},
		{"Allocated", 64 * 1024, FileCreate},
		{"Empty", 0, FileCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "region.pmem")

			r, err := MapFile(path, tt.size, tt.flags, 0666)
			if err != nil {
				t.Fatalf("MapFile() error = %v", err)
			}
			defer r.Unmap()

			if r.Size() != tt.size {
				t.Errorf("Size() = %d, want %d", r.Size(), tt.size)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Stat() error = %v", err)
			}
			if info.Size() != tt.size {
				t.Errorf("file size = %d, want %d", info.Size(), tt.size)
			}
		})
	}
}

func TestMapFileMissingWithoutCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pmem")

	if _, err := MapFile(path, 0, 0, 0666); err == nil {
		t.Fatal("Expected error mapping a missing file without FileCreate")
	}
}

func TestMapFileTooSmallWithoutCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.pmem")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := MapFile(path, 4096, 0, 0666); err == nil {
		t.Fatal("Expected error mapping a file smaller than the requested size")
	}

	r, err := MapFile(path, 0, 0, 0666)
	if err != nil {
		t.Fatalf("MapFile() whole file error = %v", err)
	}
	defer r.Unmap()
	if r.Size() != 3 {
		t.Errorf("Size() = %d, want 3", r.Size())
	}
}

func TestMapFileResizePreservesPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resize.pmem")

	r, err := MapFile(path, 8192, FileCreate|FileSparse, 0666)
	if err != nil {
		t.Fatalf("MapFile() error = %v", err)
	}
	if err := r.Copy(0, []byte("persisted line\n"), CopyNonTemporal); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if err := r.Unmap(); err != nil {
		t.Fatalf("Unmap() error = %v", err)
	}

	// Grow.
	r, err = MapFile(path, 1<<20, FileCreate|FileSparse, 0666)
	if err != nil {
		t.Fatalf("MapFile() grow error = %v", err)
	}
	got := make([]byte, 15)
	if _, err := r.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if string(got) != "persisted line\n" {
		t.Errorf("after grow got %q", got)
	}
	if err := r.Unmap(); err != nil {
		t.Fatal(err)
	}

	// Shrink.
	r, err = MapFile(path, 16, FileCreate, 0666)
	if err != nil {
		t.Fatalf("MapFile() shrink error = %v", err)
	}
	if err := r.Unmap(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte("persisted line\n"), 0)
	if !bytes.Equal(data, want) {
		t.Errorf("file contents = %q, want %q", data, want)
	}
}

func TestCopyOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "range.pmem")
	r, err := MapFile(path, 16, FileCreate, 0666)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Unmap()

	tests := []struct {
		name string
		off  int64
		n    int
	}{
		{"Past end", 10, 7},
		{"Negative offset", -1, 1},
		{"Beyond mapping", 17, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Copy(tt.off, make([]byte, tt.n), 0)
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Copy() error = %v, want ErrOutOfRange", err)
			}
		})
	}

	if err := r.Copy(0, make([]byte, 16), CopyNoFlush); err != nil {
		t.Errorf("Copy() filling mapping error = %v", err)
	}
}

func TestUnmapIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unmap.pmem")
	r, err := MapFile(path, 4096, FileCreate, 0666)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Unmap(); err != nil {
		t.Fatalf("first Unmap() error = %v", err)
	}
	if err := r.Unmap(); err != nil {
		t.Fatalf("second Unmap() error = %v", err)
	}
	if err := r.Copy(0, []byte("x"), 0); !errors.Is(err, ErrUnmapped) {
		t.Errorf("Copy() after Unmap error = %v, want ErrUnmapped", err)
	}
	if _, err := r.ReadAt(make([]byte, 1), 0); !errors.Is(err, ErrUnmapped) {
		t.Errorf("ReadAt() after Unmap error = %v, want ErrUnmapped", err)
	}
}

func TestReadAtEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "read.pmem")
	r, err := MapFile(path, 4, FileCreate, 0666)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Unmap()

	if err := r.Copy(0, []byte("abcd"), 0); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8)
	n, err := r.ReadAt(buf, 2)
	if n != 2 || err != io.EOF {
		t.Errorf("ReadAt() = %d, %v; want 2, io.EOF", n, err)
	}
	if string(buf[:n]) != "cd" {
		t.Errorf("ReadAt() read %q, want %q", buf[:n], "cd")
	}
	if _, err := r.ReadAt(buf, 4); err != io.EOF {
		t.Errorf("ReadAt() at end error = %v, want io.EOF", err)
	}
}

func TestDefaultMapper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapper.pmem")

	m, err := DefaultMapper.Map(path, 4096, FileCreate|FileSparse, 0666)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if m.Size() != 4096 {
		t.Errorf("Size() = %d, want 4096", m.Size())
	}
	if err := m.Unmap(); err != nil {
		t.Errorf("Unmap() error = %v", err)
	}

	m, err = DefaultMapper.Map(filepath.Join(t.TempDir(), "missing"), 0, 0, 0666)
	if err == nil || m != nil {
		t.Errorf("Map() of missing file = %v, %v; want nil mapping and error", m, err)
	}
}
