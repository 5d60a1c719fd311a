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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/multiset"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type tokenCount struct {
	Token string
	Count uint64
}

func entries(bag *multiset.Multiset[string]) []tokenCount {
	var r []tokenCount
	bag.Entries(func(token string, count uint64) bool {
		r = append(r, tokenCount{token, count})
		return true
	})
	return r
}

func writeFiles(t *testing.T, contents ...string) []string {
	dir := t.TempDir()
	var paths []string
	for i, c := range contents {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte(c), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func testConfig() config {
	return config{
		mode:            modeWords,
		initialCapacity: 1,
		jobs:            4,
		minCount:        1,
	}
}

func TestCountReader(t *testing.T) {
	testCases := []struct {
		mode     string
		input    string
		expected []tokenCount
	}{
		{modeWords, "the cat and the hat\nthe end", []tokenCount{
			{"the", 3}, {"cat", 1}, {"and", 1}, {"hat", 1}, {"end", 1},
		}},
		{modeLines, "b\na\nb\nb\n", []tokenCount{
			{"b", 3}, {"a", 1},
		}},
		{modeWords, "", nil},
	}
	for _, c := range testCases {
		t.Run(c.mode, func(t *testing.T) {
			bag, err := multiset.New[string](1)
			require.NoError(t, err)
			require.NoError(t, countReader(strings.NewReader(c.input), c.mode, bag))
			if diff := cmp.Diff(c.expected, entries(bag)); diff != "" {
				t.Fatalf("unexpected counts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountSourcesOrder(t *testing.T) {
	paths := writeFiles(t,
		"x y x",
		"z y w",
		"w v",
	)
	cfg := testConfig()
	for _, jobs := range []int{1, 2, 8} {
		cfg.jobs = jobs
		bag, err := countSources(context.Background(), &cfg, paths, nil)
		require.NoError(t, err)
		expected := []tokenCount{
			{"x", 2}, {"y", 2}, {"z", 1}, {"w", 2}, {"v", 1},
		}
		if diff := cmp.Diff(expected, entries(bag)); diff != "" {
			t.Fatalf("jobs=%d: unexpected counts (-want +got):\n%s", jobs, diff)
		}
		require.EqualValues(t, 8, bag.Len())
	}
}

func TestCountSourcesStdin(t *testing.T) {
	paths := writeFiles(t, "b c")
	cfg := testConfig()
	bag, err := countSources(context.Background(), &cfg,
		[]string{"-", paths[0]}, strings.NewReader("a b"))
	require.NoError(t, err)
	require.Equal(t, []tokenCount{{"a", 1}, {"b", 2}, {"c", 1}}, entries(bag))
}

func TestCountSourcesIgnoreCase(t *testing.T) {
	paths := writeFiles(t, "Go go GO rust", "RUST Zig")
	cfg := testConfig()
	cfg.ignoreCase = true
	bag, err := countSources(context.Background(), &cfg, paths, nil)
	require.NoError(t, err)
	require.Equal(t, []tokenCount{{"Go", 3}, {"rust", 2}, {"Zig", 1}}, entries(bag))
}

func TestCountSourcesMissingFile(t *testing.T) {
	paths := writeFiles(t, "a")
	missing := filepath.Join(t.TempDir(), "missing.txt")
	cfg := testConfig()
	_, err := countSources(context.Background(), &cfg, append(paths, missing), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.txt")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCountSourcesRepeatedStdin(t *testing.T) {
	paths := writeFiles(t, "a")
	cfg := testConfig()
	_, err := countSources(context.Background(), &cfg,
		[]string{"-", paths[0], "-"}, strings.NewReader("a b"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "more than once")
}

func TestWriteCounts(t *testing.T) {
	bag, err := multiset.New[string](4)
	require.NoError(t, err)
	bag.AddN("a", 3)
	bag.Add("b")
	bag.AddN("c", 2)

	var buf bytes.Buffer
	require.NoError(t, writeCounts(&buf, bag, 1))
	require.Equal(t, "3\ta\n1\tb\n2\tc\n", buf.String())

	buf.Reset()
	require.NoError(t, writeCounts(&buf, bag, 2))
	require.Equal(t, "3\ta\n2\tc\n", buf.String())
}

func TestRootCommand(t *testing.T) {
	paths := writeFiles(t, "one\ntwo two\n", "two\nthree\n")

	run := func(args ...string) (string, error) {
		cmd := newRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader("stdin stdin\n"))
		cmd.SetArgs(append([]string{}, args...))
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	out, err := run(paths...)
	require.NoError(t, err)
	require.Equal(t, "1\tone\n3\ttwo\n1\tthree\n", out)

	out, err = run(append([]string{"--mode", "lines"}, paths...)...)
	require.NoError(t, err)
	require.Equal(t, "1\tone\n1\ttwo two\n1\ttwo\n1\tthree\n", out)

	out, err = run(append([]string{"--min-count", "2", "-j", "1"}, paths...)...)
	require.NoError(t, err)
	require.Equal(t, "3\ttwo\n", out)

	out, err = run()
	require.NoError(t, err)
	require.Equal(t, "2\tstdin\n", out)

	_, err = run("--mode", "bytes")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")

	_, err = run("--initial-capacity", "0")
	require.Error(t, err)

	_, err = run("-", "-")
	require.Error(t, err)
}

func TestDefaultConfigFromEnv(t *testing.T) {
	// Read the environment before it changes.
	_ = defaultConfig()

	t.Setenv("BAGCOUNT_MODE", modeLines)
	t.Setenv("BAGCOUNT_INITIAL_CAPACITY", "7")
	t.Setenv("BAGCOUNT_JOBS", "3")
	cfg := defaultConfig()
	require.Equal(t, modeLines, cfg.mode)
	require.Equal(t, 7, cfg.initialCapacity)
	require.Equal(t, 3, cfg.jobs)
	require.NoError(t, cfg.validate())
}
