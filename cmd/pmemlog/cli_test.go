//go:build linux

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

func runForTest(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(args, &out, func(int) {}); err != nil {
		t.Fatalf("run(%q) error = %v", args, err)
	}
	return out.String()
}

func TestAppendAndCat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOG")

	runForTest(t, "append", path, "compaction", "finished")
	runForTest(t, "append", path, "flush", "done")

	got := runForTest(t, "cat", path)
	pattern := regexp.MustCompile(`^\d{4}/\d{2}/\d{2}-\d{2}:\d{2}:\d{2}\.\d{6} \d+ compaction finished\n` +
		`\d{4}/\d{2}/\d{2}-\d{2}:\d{2}:\d{2}\.\d{6} \d+ flush done\n$`)
	if !pattern.MatchString(got) {
		t.Errorf("cat output = %q", got)
	}
}

func TestAppendWithConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LOG")
	config := filepath.Join(dir, "pmemlog.yaml")
	if err := os.WriteFile(config, []byte("time_zone: UTC\nfile_mode: \"0600\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runForTest(t, "--config", config, "append", path, "configured")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("file mode = %v, want no group or other bits", info.Mode().Perm())
	}
}

func TestStat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOG")
	runForTest(t, "append", path, "one")
	runForTest(t, "append", path, "two")

	content := runForTest(t, "cat", path)

	text := runForTest(t, "stat", path)
	if !strings.Contains(text, "records:      2\n") {
		t.Errorf("stat output = %q, want 2 records", text)
	}

	var st fileStat
	if err := yaml.Unmarshal([]byte(runForTest(t, "stat", "--format", "yaml", path)), &st); err != nil {
		t.Fatalf("stat yaml output does not parse: %v", err)
	}
	if st.Records != 2 || st.LogicalSize != int64(len(content)) || st.FileSize != st.LogicalSize+1 {
		t.Errorf("stat = %+v, want 2 records, logical %d, file %d", st, len(content), len(content)+1)
	}
}

func TestMissingFile(t *testing.T) {
	var out bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing")

	if err := run([]string{"cat", missing}, &out, func(int) {}); err == nil {
		t.Error("cat of missing file error = nil")
	}
}
