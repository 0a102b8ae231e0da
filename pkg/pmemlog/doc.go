// Package pmemlog provides a durable, append-only text logger that writes
// straight into a memory-mapped file instead of through a buffered file
// descriptor.
//
// On a DAX mount the mapping is persistent memory itself, so a record is
// durable as soon as Logv returns. On any other filesystem every record is
// flushed with msync before Logv returns.
//
// Record format:
//
//	2024/03/05-07:08:09.123456 18 connected to 10.0.0.7
//	\______ timestamp ______/ \/ \_____ message _____/
//	                        thread id
//
// Every record ends with exactly one newline. The thread id is the id of
// the calling goroutine, truncated to 32 bytes.
//
// Storage:
//
// The backing file grows in fixed increments (32 MiB by default) as records
// are appended. Growth is sparse, so unused capacity costs no space on the
// medium. Close shrinks the file to the written size plus one byte.
//
// Basic Usage:
//
//	logger, err := pmemlog.Open("/mnt/pmem/db/LOG")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	logger.Logv("recovered %d files in %v", n, elapsed)
//
// Using an existing mapping:
//
//	region, err := pmem.MapFile(path, 32<<20, pmem.FileCreate|pmem.FileSparse, 0666)
//	if err != nil {
//		return err
//	}
//	logger, err := pmemlog.New(path, region, false)
//
// Configuration:
//
//	logger, err := pmemlog.Open(path,
//		pmemlog.WithGrowthIncrement(64<<20),
//		pmemlog.WithLocation(time.UTC),
//		pmemlog.WithErrorHandler(pmemlog.StderrErrorHandler),
//	)
//
// Options can also come from a YAML file, see LoadConfig.
package pmemlog
