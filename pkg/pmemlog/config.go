package pmemlog

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/pmemlog/pkg/pmem"
)

const (
	// DefaultGrowthIncrement is how much capacity each remap adds.
	DefaultGrowthIncrement = 32 * 1024 * 1024
	// DefaultFileMode is the permission used when the backing file is created.
	DefaultFileMode os.FileMode = 0666

	growthIncrementEnv = "PMEMLOG_GROWTH_INCREMENT"
)

// Config contains all configuration options for a Logger.
type Config struct {
	// Region settings
	GrowthIncrement int64       // Capacity added per remap, in bytes
	FileMode        os.FileMode // Permission bits for a newly created file
	Mapper          pmem.Mapper // Mapping service

	// Record settings
	Location     *time.Location   // Time zone of record headers
	Clock        func() time.Time // Timestamp source
	ThreadID     func() string    // Thread identity source
	StrictFormat bool             // Panic instead of truncating on a second-pass overflow

	// Error handling
	ErrorHandler ErrorHandler
}

// DefaultConfig returns a Config with the defaults used by New and Open:
// 32 MiB growth steps, 0666 files, local time, goroutine ids as thread
// identity and truncation on a second-pass overflow.
//
// The growth increment can be overridden with PMEMLOG_GROWTH_INCREMENT.
func DefaultConfig() *Config {
	return &Config{
		GrowthIncrement: getDefaultGrowthIncrement(),
		FileMode:        DefaultFileMode,
		Mapper:          pmem.DefaultMapper,
		Location:        time.Local,
		Clock:           time.Now,
		ThreadID:        goroutineID,
		StrictFormat:    false,
		ErrorHandler:    getDefaultErrorHandler(),
	}
}

// Validate checks the configuration and fills unset fields with defaults.
func (c *Config) Validate() error {
	if c.GrowthIncrement <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "growth increment must be positive, got %d", c.GrowthIncrement)
	}
	if c.FileMode&^os.ModePerm != 0 {
		return errors.Wrapf(ErrInvalidConfig, "file mode %o has non-permission bits", c.FileMode)
	}
	if c.FileMode == 0 {
		c.FileMode = DefaultFileMode
	}
	if c.Mapper == nil {
		c.Mapper = pmem.DefaultMapper
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.ThreadID == nil {
		c.ThreadID = goroutineID
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = getDefaultErrorHandler()
	}
	return nil
}

// getDefaultGrowthIncrement retrieves the growth increment from an
// environment variable or uses the default value.
func getDefaultGrowthIncrement() int64 {
	if value, exists := os.LookupEnv(growthIncrementEnv); exists {
		if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
			return size
		}
	}
	return DefaultGrowthIncrement
}

// Option is a functional option for configuring a Logger.
type Option func(*Config) error

func newConfig(options ...Option) (*Config, error) {
	config := DefaultConfig()
	for _, opt := range options {
		if err := opt(config); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(cfg *Config) Option {
	return func(c *Config) error {
		if cfg == nil {
			return errors.Wrap(ErrInvalidConfig, "nil config")
		}
		*c = *cfg
		return nil
	}
}

// WithGrowthIncrement sets the capacity added per remap.
func WithGrowthIncrement(n int64) Option {
	return func(c *Config) error {
		if n <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "growth increment must be positive, got %d", n)
		}
		c.GrowthIncrement = n
		return nil
	}
}

// WithFileMode sets the permission bits for a newly created backing file.
func WithFileMode(mode os.FileMode) Option {
	return func(c *Config) error {
		c.FileMode = mode
		return nil
	}
}

// WithMapper replaces the mapping service.
func WithMapper(m pmem.Mapper) Option {
	return func(c *Config) error {
		if m == nil {
			return errors.Wrap(ErrInvalidConfig, "nil mapper")
		}
		c.Mapper = m
		return nil
	}
}

// WithLocation sets the time zone used in record headers.
func WithLocation(loc *time.Location) Option {
	return func(c *Config) error {
		c.Location = loc
		return nil
	}
}

// WithClock sets the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) error {
		c.Clock = clock
		return nil
	}
}

// WithThreadID sets the thread identity source.
func WithThreadID(fn func() string) Option {
	return func(c *Config) error {
		c.ThreadID = fn
		return nil
	}
}

// WithStrictFormat makes a record that overflows its exactly sized buffer
// panic instead of being truncated. Meant for tests.
func WithStrictFormat(strict bool) Option {
	return func(c *Config) error {
		c.StrictFormat = strict
		return nil
	}
}

// WithErrorHandler sets the handler for failures inside Logv and Close.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *Config) error {
		c.ErrorHandler = handler
		return nil
	}
}

// FileConfig is the on-disk form of a Config. Unset fields keep their
// defaults.
type FileConfig struct {
	GrowthIncrement *int64      `yaml:"growth_increment"`
	FileMode        interface{} `yaml:"file_mode"` // "0644", 0644 or 0o644
	TimeZone        *string     `yaml:"time_zone"`
	StrictFormat    *bool       `yaml:"strict_format"`
}

// LoadConfig reads a YAML configuration file and returns the resulting
// Config, starting from DefaultConfig.
//
//	growth_increment: 67108864
//	file_mode: "0644"
//	time_zone: UTC
//	strict_format: false
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - config path is chosen by the operator
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data. See LoadConfig.
func ParseConfig(data []byte) (*Config, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	config := DefaultConfig()
	if fc.GrowthIncrement != nil {
		config.GrowthIncrement = *fc.GrowthIncrement
	}
	if fc.FileMode != nil {
		mode, err := parseFileMode(fc.FileMode)
		if err != nil {
			return nil, err
		}
		config.FileMode = mode
	}
	if fc.TimeZone != nil {
		loc, err := time.LoadLocation(*fc.TimeZone)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "time zone %q: %v", *fc.TimeZone, err)
		}
		config.Location = loc
	}
	if fc.StrictFormat != nil {
		config.StrictFormat = *fc.StrictFormat
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// parseFileMode accepts a permission written as an octal string or as a
// YAML integer. YAML reads an unquoted 0644 as octal already.
func parseFileMode(v interface{}) (os.FileMode, error) {
	var mode uint64
	switch m := v.(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimPrefix(m, "0o"), 8, 32)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidConfig, "file mode %q: %v", m, err)
		}
		mode = n
	case uint64:
		mode = m
	case int64:
		if m < 0 {
			return 0, errors.Wrapf(ErrInvalidConfig, "file mode %d is negative", m)
		}
		mode = uint64(m)
	case int:
		if m < 0 {
			return 0, errors.Wrapf(ErrInvalidConfig, "file mode %d is negative", m)
		}
		mode = uint64(m)
	default:
		return 0, errors.Wrapf(ErrInvalidConfig, "file mode %v: want an octal string or integer", v)
	}
	if mode > uint64(os.ModePerm) {
		return 0, errors.Wrapf(ErrInvalidConfig, "file mode %o has non-permission bits", mode)
	}
	return os.FileMode(mode), nil
}
