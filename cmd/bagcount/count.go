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

package main

import (
	"bufio"
	"context"
	"fmt"
	"hash/maphash"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/multiset"
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var foldSeed = maphash.MakeSeed()

// bagOptions returns the multiset options implied by cfg. Case folding
// compares and hashes the lower-cased token so that tokens which compare
// equal also hash equally.
func bagOptions(cfg *config) []multiset.Option[string] {
	options := []multiset.Option[string]{
		multiset.WithLogger[string](log.StandardLogger()),
	}
	if cfg.ignoreCase {
		options = append(options,
			multiset.WithHash[string](func(elem *string, seed uintptr) uintptr {
				return uintptr(maphash.String(foldSeed, strings.ToLower(*elem))) ^ seed
			}),
			multiset.WithEqual[string](func(a, b *string) bool {
				return strings.ToLower(*a) == strings.ToLower(*b)
			}))
	}
	return options
}

// countReader adds every token read from r to bag.
func countReader(r io.Reader, mode string, bag *multiset.Multiset[string]) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if mode == modeWords {
		scanner.Split(bufio.ScanWords)
	}
	for scanner.Scan() {
		bag.Add(scanner.Text())
	}
	return scanner.Err()
}

// countSources counts each source into its own multiset, up to cfg.jobs at a
// time, and then merges the results in argument order. The merged multiset
// therefore lists tokens in the order a sequential read of the sources would
// first see them. The source "-" reads stdin and may appear at most once.
func countSources(
	ctx context.Context, cfg *config, paths []string, stdin io.Reader,
) (*multiset.Multiset[string], error) {
	if err := checkSources(paths); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	bags := make([]*multiset.Multiset[string], len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			bag, err := multiset.New[string](cfg.initialCapacity, bagOptions(cfg)...)
			if err != nil {
				return err
			}

			if path == "-" {
				err = countReader(stdin, cfg.mode, bag)
			} else {
				err = countFile(path, cfg.mode, bag)
			}
			if err != nil {
				return errors.WrapPrefix(err, path, 0)
			}

			log.WithFields(log.Fields{
				"path":     path,
				"tokens":   bag.Len(),
				"distinct": bag.DistinctLen(),
				"elapsed":  time.Since(start),
			}).Debug("counted")
			bags[i] = bag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total, err := multiset.New[string](cfg.initialCapacity, bagOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	for _, bag := range bags {
		total.AddAll(bag)
		bag.Close()
	}
	return total, nil
}

func checkSources(paths []string) error {
	stdinSeen := false
	for _, path := range paths {
		if path != "-" {
			continue
		}
		if stdinSeen {
			return errors.Errorf("standard input %q named more than once", path)
		}
		stdinSeen = true
	}
	return nil
}

func countFile(path, mode string, bag *multiset.Multiset[string]) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return countReader(f, mode, bag)
}

// writeCounts prints "count<TAB>token" for each distinct token of bag with at
// least minCount copies, in iteration order.
func writeCounts(w io.Writer, bag *multiset.Multiset[string], minCount uint64) error {
	bw := bufio.NewWriter(w)
	var err error
	bag.Entries(func(token string, count uint64) bool {
		if count < minCount {
			return true
		}
		_, err = fmt.Fprintf(bw, "%d\t%s\n", count, token)
		return err == nil
	})
	if err != nil {
		return errors.Wrap(err, 0)
	}
	return bw.Flush()
}
