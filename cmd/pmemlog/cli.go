package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/wayneeseguin/pmemlog/pkg/pmem"
	"github.com/wayneeseguin/pmemlog/pkg/pmemlog"
)

// CLI is the top-level command-line interface.
type CLI struct {
	Config string `help:"YAML configuration file." short:"c" type:"existingfile"`

	Append appendCmd `cmd:"" help:"Append one record to a log file."`
	Stat   statCmd   `cmd:"" help:"Show sizes of a log file."`
	Cat    catCmd    `cmd:"" help:"Print the logical content of a log file."`
}

func run(args []string, stdout io.Writer, exit func(int)) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("pmemlog"),
		kong.Description("Append to and inspect persistent-memory log files."),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.Writers(stdout, os.Stderr),
		kong.BindTo(stdout, (*io.Writer)(nil)),
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return ktx.Run(&cli)
}

func (c *CLI) options() ([]pmemlog.Option, error) {
	opts := []pmemlog.Option{pmemlog.WithErrorHandler(pmemlog.StderrErrorHandler)}
	if c.Config == "" {
		return opts, nil
	}
	config, err := pmemlog.LoadConfig(c.Config)
	if err != nil {
		return nil, err
	}
	return append([]pmemlog.Option{pmemlog.WithConfig(config)}, opts...), nil
}

type appendCmd struct {
	File    string   `arg:"" help:"Log file."`
	Message []string `arg:"" help:"Message words, joined by spaces."`
}

// Run appends the message as one record and closes the file, shrinking it.
func (a *appendCmd) Run(cli *CLI) (err error) {
	opts, err := cli.options()
	if err != nil {
		return err
	}
	logger, err := pmemlog.Open(a.File, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logger.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	logger.Logv("%s", strings.Join(a.Message, " "))
	if m := logger.Metrics(); m.RecordsDropped > 0 {
		return errors.Errorf("record was not written to %s", a.File)
	}
	return nil
}

// fileStat is what stat reports.
type fileStat struct {
	Path        string `yaml:"path"`
	FileSize    int64  `yaml:"file_size"`
	LogicalSize int64  `yaml:"logical_size"`
	Records     int    `yaml:"records"`
	DAX         bool   `yaml:"dax"`
}

type statCmd struct {
	Format string `help:"Output format." enum:"text,yaml" default:"text"`
	File   string `arg:"" help:"Log file." type:"existingfile"`
}

// Run prints the file and logical sizes.
func (s *statCmd) Run(out io.Writer) error {
	info, err := os.Stat(s.File)
	if err != nil {
		return err
	}
	content, err := pmemlog.Content(s.File)
	if err != nil {
		return err
	}
	dax, err := pmem.IsPmem(s.File)
	if err != nil {
		return err
	}

	st := fileStat{
		Path:        s.File,
		FileSize:    info.Size(),
		LogicalSize: int64(len(content)),
		Records:     bytes.Count(content, []byte("\n")),
		DAX:         dax,
	}

	if s.Format == "yaml" {
		data, err := yaml.Marshal(st)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	_, err = fmt.Fprintf(out, "path:         %s\nfile size:    %d\nlogical size: %d\nrecords:      %d\ndax:          %t\n",
		st.Path, st.FileSize, st.LogicalSize, st.Records, st.DAX)
	return err
}

type catCmd struct {
	File string `arg:"" help:"Log file." type:"existingfile"`
}

// Run writes the logical content to stdout.
func (c *catCmd) Run(out io.Writer) error {
	content, err := pmemlog.Content(c.File)
	if err != nil {
		return err
	}
	_, err = out.Write(content)
	return err
}
