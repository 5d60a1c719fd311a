// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command bagcount counts the tokens of its input files and prints each
// distinct token with its count in the order the token was first seen.
//
//	bagcount [--mode words|lines] [--ignore-case] [file...]
//
// Standard input is read when no files are given or a file is named "-".
package main

import (
	"context"
	"os"
	"runtime"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
)

const (
	modeWords = "words"
	modeLines = "lines"
)

type config struct {
	mode            string
	initialCapacity int
	jobs            int
	minCount        uint64
	ignoreCase      bool
	verbose         bool
}

// defaultConfig returns the configuration before flags are applied. The
// BAGCOUNT_* environment variables override the builtin defaults.
func defaultConfig() config {
	// The env package caches the environment on first use.
	env.Load()
	return config{
		mode:            env.Str("BAGCOUNT_MODE", modeWords),
		initialCapacity: env.Int("BAGCOUNT_INITIAL_CAPACITY", 64),
		jobs:            env.Int("BAGCOUNT_JOBS", runtime.GOMAXPROCS(0)),
		minCount:        1,
	}
}

func (c *config) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.mode, "mode", c.mode, `token kind: "words" or "lines"`)
	fs.IntVar(&c.initialCapacity, "initial-capacity", c.initialCapacity, "initial capacity of each multiset")
	fs.IntVarP(&c.jobs, "jobs", "j", c.jobs, "number of files counted concurrently")
	fs.Uint64Var(&c.minCount, "min-count", c.minCount, "omit tokens seen fewer times")
	fs.BoolVarP(&c.ignoreCase, "ignore-case", "i", c.ignoreCase, "treat tokens differing only in case as equal")
	fs.BoolVarP(&c.verbose, "verbose", "v", c.verbose, "log progress to stderr")
}

func (c *config) validate() error {
	if c.mode != modeWords && c.mode != modeLines {
		return errors.Errorf("unknown mode %q", c.mode)
	}
	if c.initialCapacity < 1 {
		return errors.Errorf("initial capacity must be positive, got %d", c.initialCapacity)
	}
	if c.jobs < 1 {
		return errors.Errorf("jobs must be positive, got %d", c.jobs)
	}
	return nil
}

func newRootCommand() *cobra.Command {
	cfg := defaultConfig()
	cmd := &cobra.Command{
		Use:           "bagcount [file...]",
		Short:         "Count tokens in first-seen order",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			if cfg.verbose {
				log.SetLevel(log.DebugLevel)
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			bag, err := countSources(cmd.Context(), &cfg, args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer bag.Close()
			return writeCounts(cmd.OutOrStdout(), bag, cfg.minCount)
		},
	}
	cfg.addFlags(cmd.Flags())
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		if e, ok := err.(*errors.Error); ok && log.IsLevelEnabled(log.DebugLevel) {
			log.Debug(e.ErrorStack())
		}
		log.Error(err)
		os.Exit(1)
	}
}
