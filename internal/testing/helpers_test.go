package testing

import (
	"os"
	"testing"
)

func TestUnit(t *testing.T) {
	tests := []struct {
		name                string
		unitTestsOnly       string
		runIntegrationTests string
		expectedUnit        bool
	}{
		{
			name:         "default configuration",
			expectedUnit: true,
		},
		{
			name:          "explicit unit tests only",
			unitTestsOnly: "true",
			expectedUnit:  true,
		},
		{
			name:                "explicit integration tests enabled",
			runIntegrationTests: "true",
			expectedUnit:        false,
		},
		{
			name:                "explicit integration tests disabled",
			runIntegrationTests: "false",
			expectedUnit:        true,
		},
		{
			name:                "unit tests override integration tests",
			unitTestsOnly:       "true",
			runIntegrationTests: "true",
			expectedUnit:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envUnitOnly, tt.unitTestsOnly)
			t.Setenv(envRunIntegration, tt.runIntegrationTests)

			if got := Unit(); got != tt.expectedUnit {
				t.Errorf("Unit() = %v, want %v", got, tt.expectedUnit)
			}
		})
	}
}

func TestSkipIfUnit(t *testing.T) {
	t.Setenv(envUnitOnly, "true")

	ran := false
	t.Run("skipped", func(t *testing.T) {
		SkipIfUnit(t)
		ran = true
	})
	if ran {
		t.Error("SkipIfUnit did not skip in unit mode")
	}
}

func TestDAXDir(t *testing.T) {
	root := t.TempDir()
	t.Setenv(envUnitOnly, "")
	t.Setenv(envRunIntegration, "true")
	t.Setenv(envDAXDir, root)

	var dir string
	t.Run("integration", func(t *testing.T) {
		dir = DAXDir(t)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("DAXDir() = %q is not a directory: %v", dir, err)
		}
	})
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("DAXDir() directory %q not removed after test: %v", dir, err)
	}
}

func TestDAXDirUnset(t *testing.T) {
	t.Setenv(envRunIntegration, "true")
	t.Setenv(envDAXDir, "")

	ran := false
	t.Run("skipped", func(t *testing.T) {
		DAXDir(t)
		ran = true
	})
	if ran {
		t.Error("DAXDir did not skip without PMEMLOG_DAX_DIR")
	}
}
