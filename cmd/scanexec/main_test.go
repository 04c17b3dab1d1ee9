// Copyright 2026 The nutsdb Author. All rights reserved.
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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCollScanCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		rows string
	}{
		{"all", []string{"collscan"}, "10 rows"},
		{"reverse", []string{"collscan", "--reverse"}, "10 rows"},
		{"resume", []string{"collscan", "--resume-after", "7"}, "3 rows"},
		{"filter", []string{"collscan", "--gt", "6"}, "3 rows"},
		{"small", []string{"collscan", "--docs", "3"}, "3 rows"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runCmd(t, tc.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tc.rows)
			assert.Contains(t, out, "RECORDID")
		})
	}
}

func TestCollScanCmd_ResumeFromMissingRecord(t *testing.T) {
	out, err := runCmd(t, "collscan", "--resume-after", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists in the collection: 42")
	assert.Contains(t, out, "0 rows")
}

func TestOplogCmd(t *testing.T) {
	t.Run("bounded", func(t *testing.T) {
		out, err := runCmd(t, "oplog", "--min", "30", "--max", "60", "--track", "--explain")
		require.NoError(t, err)
		assert.Contains(t, out, "4 rows")
		assert.Contains(t, out, "Timestamp(30, 0)")
		assert.Contains(t, out, "Timestamp(60, 0)")
		assert.NotContains(t, out, "Timestamp(70, 0)")
		assert.Contains(t, out, "LATESTTS")
		assert.Contains(t, out, "nlj")
	})

	t.Run("stop after first match", func(t *testing.T) {
		out, err := runCmd(t, "oplog", "--min", "55", "--stop-after-first-match", "--stats")
		require.NoError(t, err)
		assert.Contains(t, out, "5 rows")
		assert.Contains(t, out, "numTested=2")
	})

	t.Run("min ts fallen off", func(t *testing.T) {
		_, err := runCmd(t, "oplog", "--min", "10", "--track", "--min-ts", "5")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Specified minTs has already fallen off the oplog")
	})

	t.Run("wait for visibility", func(t *testing.T) {
		out, err := runCmd(t, "oplog", "--wait")
		require.NoError(t, err)
		assert.Contains(t, out, "10 rows")
	})

	t.Run("bad flags", func(t *testing.T) {
		for _, args := range [][]string{
			{"oplog", "--stop-after-first-match"},
			{"oplog", "--min", "10", "--max", "20", "--stop-after-first-match"},
			{"oplog", "--min", "10", "--min-ts", "5"},
			{"oplog", "--min", "10", "--reverse"},
			{"oplog", "--min", "30", "--stop-after-first-match", "--track", "--min-ts", "20"},
		} {
			var err error
			require.NotPanics(t, func() { _, err = runCmd(t, args...) }, "%v", args)
			assert.Error(t, err, "%v", args)
		}
	})
}

func TestIxScanCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		rows string
	}{
		{"unbounded", []string{"ixscan"}, "10 rows"},
		{"inclusive", []string{"ixscan", "--low", "3", "--high", "6"}, "4 rows"},
		{"exclusive", []string{"ixscan", "--low", "3", "--high", "6", "--exclusive"}, "2 rows"},
		{"reverse", []string{"ixscan", "--low", "3", "--high", "6", "--reverse"}, "4 rows"},
		{"descending", []string{"ixscan", "--low", "3", "--high", "6", "--descending"}, "4 rows"},
		{"low only", []string{"ixscan", "--low", "8"}, "2 rows"},
		{"high only reverse", []string{"ixscan", "--high", "1", "--reverse"}, "2 rows"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runCmd(t, tc.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tc.rows)
		})
	}
}

func TestReports(t *testing.T) {
	out, err := runCmd(t, "ixscan", "--low", "3", "--stats", "--prometheus")
	require.NoError(t, err)
	assert.Contains(t, out, "ixseek")
	assert.Contains(t, out, "numReads=")
	assert.Contains(t, out, "scanexec_seeks_total")
	assert.Contains(t, out, "scanexec_reads_total")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanexec.toml")
	require.NoError(t, os.WriteFile(path, []byte("yield_iterations = 1\nyield_period = \"1h\"\n"), 0o644))

	out, err := runCmd(t, "--config", path, "collscan", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "10 rows")

	_, err = runCmd(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "collscan")
	assert.Error(t, err)
}
