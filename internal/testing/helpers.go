package testing

import (
	"os"
	"testing"
)

const (
	envUnitOnly       = "PMEMLOG_UNIT_TESTS_ONLY"
	envRunIntegration = "PMEMLOG_RUN_INTEGRATION_TESTS"
	envDAXDir         = "PMEMLOG_DAX_DIR"
)

// Unit returns true if running in unit test mode.
// Unit tests map files in t.TempDir() and never need a DAX mount.
// Integration mode is entered only when PMEMLOG_RUN_INTEGRATION_TESTS=true
// and PMEMLOG_UNIT_TESTS_ONLY is not set.
func Unit() bool {
	if os.Getenv(envUnitOnly) == "true" {
		return true
	}
	if os.Getenv(envRunIntegration) == "true" {
		return false
	}
	return true
}

// SkipIfUnit skips the test if running in unit test mode.
func SkipIfUnit(t testing.TB, message ...string) {
	t.Helper()
	if Unit() {
		msg := "Skipping integration test in unit mode"
		if len(message) > 0 {
			msg = message[0]
		}
		t.Skip(msg)
	}
}

// DAXDir returns a fresh directory on the persistent-memory mount named by
// PMEMLOG_DAX_DIR, removed when the test ends. The test is skipped in unit
// mode or when the variable is unset.
func DAXDir(t testing.TB) string {
	t.Helper()
	SkipIfUnit(t)

	root := os.Getenv(envDAXDir)
	if root == "" {
		t.Skip("PMEMLOG_DAX_DIR is not set")
	}
	dir, err := os.MkdirTemp(root, "pmemlog-test-")
	if err != nil {
		t.Fatalf("create test directory on %s: %v", root, err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
