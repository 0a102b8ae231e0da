// Package pmem maps files into memory for direct, byte-addressable
// persistence.
//
// It provides the three primitives a persistent-memory sink needs:
//
//	MapFile   map a file of at least N bytes, optionally creating or resizing it
//	Unmap     release a mapping
//	Copy      store bytes into a mapping and flush them to the medium
//
// On a DAX filesystem the mapping is established with MAP_SYNC so stores
// reach persistent memory without going through the page cache. On any
// other filesystem the package falls back to a regular shared mapping and
// msync(2), which gives the same durability guarantee at a higher cost.
//
// Basic Usage:
//
//	r, err := pmem.MapFile("/mnt/pmem/app.log", 32<<20, pmem.FileCreate|pmem.FileSparse, 0666)
//	if err != nil {
//		return err
//	}
//	defer r.Unmap()
//
//	if err := r.Copy(0, []byte("hello\n"), pmem.CopyNonTemporal); err != nil {
//		return err
//	}
package pmem
