// Command pmemlog appends to and inspects persistent-memory log files.
//
//	pmemlog append /mnt/pmem/db/LOG compaction finished
//	pmemlog stat /mnt/pmem/db/LOG
//	pmemlog cat /mnt/pmem/db/LOG
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Exit); err != nil {
		fmt.Fprintf(os.Stderr, "pmemlog: %v\n", err)
		os.Exit(1)
	}
}
