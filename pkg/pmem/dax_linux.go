//go:build linux

package pmem

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var mountsPath = "/proc/mounts"

// IsPmem reports whether path lives on a filesystem mounted with DAX, where
// mappings reach persistent memory directly.
func IsPmem(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, errors.Wrapf(err, "resolve %s", path)
	}

	f, err := os.Open(mountsPath)
	if err != nil {
		return false, errors.Wrap(err, "read mount table")
	}
	defer func() {
		_ = f.Close()
	}()

	best := ""
	dax := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		mountPoint := fields[1]
		if !underMount(abs, mountPoint) || len(mountPoint) < len(best) {
			continue
		}
		best = mountPoint
		dax = hasDAXOption(fields[3])
	}
	if err := scanner.Err(); err != nil {
		return false, errors.Wrap(err, "scan mount table")
	}
	return dax, nil
}

func underMount(path, mountPoint string) bool {
	if mountPoint == "/" {
		return true
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}

func hasDAXOption(options string) bool {
	for _, opt := range strings.Split(options, ",") {
		if opt == "dax" || opt == "dax=always" {
			return true
		}
	}
	return false
}
