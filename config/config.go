/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	EnvVarPrefix = "UNSHRINK"
	StdOut       = "STDOUT"

	DefaultJobs = 1
	MinJobs     = 1
	MaxJobs     = 64
	MaxVerbose  = 4
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"
)

type Config struct {
	CLI     *CLI
	TOML    *TOML // nil in single entry mode
	Entries []*Entry

	Jobs      int
	Overwrite bool
	Checksum  bool
}

// Entry is one compressed member to decode, whatever its origin
type Entry struct {
	Name   string
	Input  string
	Output string
	Offset int64
	End    int64 // exclusive, 0 means end of input file
	Size   int64
	CRC32  uint32
	HasCRC bool
}

type TOML struct {
	Config  *TOMLConfig  `toml:"config"`
	Entries []*TOMLEntry `toml:"entry"`
}

type TOMLConfig struct {
	Jobs      int  `toml:"jobs"`
	Overwrite bool `toml:"overwrite"`
	Checksum  bool `toml:"checksum"`
}

type TOMLEntry struct {
	Name   string `toml:"name"`
	Input  string `toml:"input"`
	Offset int64  `toml:"offset"`
	End    int64  `toml:"end"`
	Size   *int64 `toml:"size"`
	Output string `toml:"output"`
	CRC32  string `toml:"crc32"`
}

type CLI struct {
	Input    string `kong:"help='Compressed input file',short='i'"`
	Output   string `kong:"help='Decoded output file (or STDOUT)',short='o'"`
	Offset   int64  `kong:"help='Offset of the compressed data in the input file',default='0'"`
	End      int64  `kong:"help='End (exclusive) of the compressed data, 0 for end of file',default='0'"`
	Size     int64  `kong:"help='Uncompressed size in bytes',short='s',default='-1'"`
	CRC32    string `kong:"help='Expected CRC-32 of the decoded data (hex)',name='crc32'"`
	Manifest string `kong:"help='TOML manifest listing the entries to decode',short='m'"`
	Jobs     int    `kong:"help='Number of concurrent jobs',short='j',default='0'"`
	Force    bool   `kong:"help='Overwrite existing output files',short='f'"`
	Checksum bool   `kong:"help='Display the XXHash64 of the decoded data',short='x'"`
	Verbose  int    `kong:"help='Verbosity (repeat up to 4 times)',short='v',type='counter'"`

	Version kong.VersionFlag `help:"Show version and exit" env:"-"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

// NewConfig parses the command line 'args' (without program name), loading
// a .env file first when one exists, then the manifest if requested.
func NewConfig(args []string) (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	cfg := &Config{CLI: cli}

	if cli.Manifest != "" {
		if cfg.TOML, err = readTOML(cli.Manifest); err != nil {
			return nil, errors.Wrap(err, "error reading manifest")
		}
	}

	if err := buildEntries(cfg); err != nil {
		return nil, errors.Wrap(err, "error building entry list")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}

	parser, err := kong.New(cli,
		kong.Name("unshrink"),
		kong.Description("Decoder for ZIP Shrink (method 1) compressed data"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})
	if err != nil {
		return nil, errors.Wrap(err, "error creating CLI parser")
	}

	if cli.Ctx, err = parser.Parse(args); err != nil {
		return nil, err
	}

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if cli.Verbose > MaxVerbose {
		return errors.Errorf("verbosity cannot exceed %d", MaxVerbose)
	}

	if cli.Jobs < 0 || cli.Jobs > MaxJobs {
		return errors.Errorf("jobs must be between %d and %d", MinJobs, MaxJobs)
	}

	if cli.Manifest != "" {
		if cli.Input != "" || cli.Output != "" {
			return errors.New("input and output cannot be combined with a manifest")
		}

		return nil
	}

	if cli.Input == "" {
		return errors.New("input is required (or use a manifest)")
	}

	if cli.Output == "" {
		return errors.New("output is required (use STDOUT for the console)")
	}

	if cli.Size < 0 {
		return errors.New("size is required")
	}

	return nil
}

func readTOML(file string) (*TOML, error) {
	// Attempt to load file
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file")
	}

	tomlConfig := &TOML{}

	if err := toml.Unmarshal(data, tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error parsing TOML manifest")
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig, filepath.Dir(file)); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	// Validate loaded config
	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML manifest")
	}

	return tomlConfig, nil
}

// Relative paths in the manifest are relative to the manifest directory
func setTOMLDefaults(t *TOML, dir string) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Config == nil {
		t.Config = &TOMLConfig{}
	}

	if t.Config.Jobs == 0 {
		t.Config.Jobs = DefaultJobs
	}

	for i, e := range t.Entries {
		if e == nil {
			continue
		}

		if e.Name == "" {
			e.Name = "entry" + strconv.Itoa(i)
		}

		if e.Input != "" && filepath.IsAbs(e.Input) == false {
			e.Input = filepath.Join(dir, e.Input)
		}

		if e.Output != "" && e.Output != StdOut && filepath.IsAbs(e.Output) == false {
			e.Output = filepath.Join(dir, e.Output)
		}
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [config]
	if err := validateTOMLConfig(t.Config); err != nil {
		return errors.Wrap(err, "config error(s)")
	}

	if len(t.Entries) == 0 {
		return errors.New("manifest must contain at least one [[entry]]")
	}

	for i, e := range t.Entries {
		if err := validateTOMLEntry(e); err != nil {
			return errors.Wrapf(err, "entry %d error(s)", i)
		}
	}

	return nil
}

func validateTOMLConfig(c *TOMLConfig) error {
	if c == nil {
		return errors.New("config cannot be empty")
	}

	if c.Jobs < MinJobs || c.Jobs > MaxJobs {
		return errors.Errorf("config.jobs must be between %d and %d", MinJobs, MaxJobs)
	}

	return nil
}

func validateTOMLEntry(e *TOMLEntry) error {
	if e == nil {
		return errors.New("entry cannot be nil")
	}

	if e.Input == "" {
		return errors.New("entry.input cannot be empty")
	}

	if e.Output == "" {
		return errors.New("entry.output cannot be empty")
	}

	if e.Size == nil {
		return errors.New("entry.size is required")
	}

	if _, _, err := parseCRC32(e.CRC32); err != nil {
		return errors.Wrap(err, "entry.crc32 is invalid")
	}

	return nil
}

func buildEntries(cfg *Config) error {
	if cfg.TOML == nil {
		crc, hasCRC, err := parseCRC32(cfg.CLI.CRC32)
		if err != nil {
			return errors.Wrap(err, "invalid crc32")
		}

		cfg.Entries = []*Entry{{
			Name:   filepath.Base(cfg.CLI.Input),
			Input:  cfg.CLI.Input,
			Output: cfg.CLI.Output,
			Offset: cfg.CLI.Offset,
			End:    cfg.CLI.End,
			Size:   cfg.CLI.Size,
			CRC32:  crc,
			HasCRC: hasCRC,
		}}

		cfg.Jobs = DefaultJobs
		cfg.Overwrite = cfg.CLI.Force
		cfg.Checksum = cfg.CLI.Checksum
		return nil
	}

	cfg.Entries = make([]*Entry, 0, len(cfg.TOML.Entries))

	for _, e := range cfg.TOML.Entries {
		crc, hasCRC, err := parseCRC32(e.CRC32)
		if err != nil {
			return errors.Wrapf(err, "invalid crc32 for entry %s", e.Name)
		}

		cfg.Entries = append(cfg.Entries, &Entry{
			Name:   e.Name,
			Input:  e.Input,
			Output: e.Output,
			Offset: e.Offset,
			End:    e.End,
			Size:   *e.Size,
			CRC32:  crc,
			HasCRC: hasCRC,
		})
	}

	cfg.Jobs = cfg.TOML.Config.Jobs
	cfg.Overwrite = cfg.CLI.Force || cfg.TOML.Config.Overwrite
	cfg.Checksum = cfg.CLI.Checksum || cfg.TOML.Config.Checksum
	return nil
}

// Validate checks the entry list and the resolved settings
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if c.CLI.Jobs > 0 {
		c.Jobs = c.CLI.Jobs
	}

	if c.Jobs < MinJobs || c.Jobs > MaxJobs {
		return errors.Errorf("jobs must be between %d and %d", MinJobs, MaxJobs)
	}

	outputs := make(map[string]string, len(c.Entries))

	for _, e := range c.Entries {
		if err := validateEntry(e); err != nil {
			return errors.Wrapf(err, "error validating entry %s", e.Name)
		}

		if e.Output == StdOut {
			continue
		}

		if other, found := outputs[e.Output]; found {
			return errors.Errorf("entries %s and %s write to the same output %s", other, e.Name, e.Output)
		}

		outputs[e.Output] = e.Name
	}

	return nil
}

func validateEntry(e *Entry) error {
	if e.Input == "" || e.Output == "" {
		return errors.New("input and output cannot be empty")
	}

	if e.Offset < 0 {
		return errors.Errorf("offset cannot be negative (got %d)", e.Offset)
	}

	if e.End != 0 && e.End < e.Offset {
		return errors.Errorf("end %d is before offset %d", e.End, e.Offset)
	}

	if e.Size < 0 {
		return errors.Errorf("size cannot be negative (got %d)", e.Size)
	}

	return nil
}

// Accepts "", "4a17b156" or "0x4A17B156"
func parseCRC32(s string) (uint32, bool, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, false, nil
	}

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false, errors.Wrapf(err, "cannot parse %q as a 32 bit hex value", s)
	}

	return uint32(v), true, nil
}
