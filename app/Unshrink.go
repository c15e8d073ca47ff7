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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	unshrink "github.com/flanglet/unshrink-go"
	"github.com/flanglet/unshrink-go/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// Returns the process exit code
func run(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Missing arguments, try --help")
		return unshrink.ERR_MISSING_PARAM
	}

	cfg, err := config.NewConfig(args)

	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: ", err)
		return unshrink.ERR_INVALID_PARAM
	}

	setupLogging(cfg.CLI.Verbose)
	displayConfig(cfg)
	ed, err := NewEntryDecompressor(cfg)

	if err != nil {
		logrus.Errorf("unable to create decompressor: %s", err)
		return unshrink.ERR_INVALID_PARAM
	}

	ed.SetStdOut(stdout)

	if cfg.CLI.Verbose > 0 {
		if printer, err := NewInfoPrinter(uint(cfg.CLI.Verbose), logrus.StandardLogger()); err == nil {
			ed.AddListener(printer)
		}
	}

	if cfg.CLI.Verbose >= config.MaxVerbose {
		trace := logrus.StandardLogger().WriterLevel(logrus.TraceLevel)
		defer trace.Close()
		ed.SetTrace(trace)
	}

	code, written := ed.Decompress()

	if code != 0 {
		logrus.Errorf("%d of %d entries failed", ed.Failed(), len(cfg.Entries))
		return code
	}

	logrus.Infof("Decompressed %d entries (%d bytes)", len(cfg.Entries), written)
	return 0
}

func setupLogging(verbosity int) {
	logrus.SetOutput(os.Stderr)

	switch {
	case verbosity <= 0:
		logrus.SetLevel(logrus.ErrorLevel)
	case verbosity == 1:
		logrus.SetLevel(logrus.InfoLevel)
	case verbosity == 2:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.TraceLevel)
	}
}

func displayConfig(cfg *config.Config) {
	if cfg == nil || logrus.IsLevelEnabled(logrus.DebugLevel) == false {
		return
	}

	logrus.Debug("unshrink settings:")
	logrus.Debugf("  version: %s", config.VERSION)
	logrus.Debugf("  verbosity: %d", cfg.CLI.Verbose)
	logrus.Debugf("  manifest: %s", cfg.CLI.Manifest)
	logrus.Debugf("  jobs: %d", cfg.Jobs)
	logrus.Debugf("  overwrite: %v", cfg.Overwrite)
	logrus.Debugf("  checksum: %v", cfg.Checksum)

	for i, e := range cfg.Entries {
		logrus.Debugf("  entry.%d: %s <- %s [%d, %d) size=%d", i, e.Output, e.Input, e.Offset, e.End, e.Size)
	}
}
