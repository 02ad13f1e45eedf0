package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/hypersmac/internal/config"
	"github.com/cwbudde/hypersmac/internal/opt"
	"github.com/cwbudde/hypersmac/internal/space"
	"github.com/cwbudde/hypersmac/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const runYAML = `
scenario:
  name: cli
  n_trials: 6
  deterministic: true
  output_directory: OUTPUT
callbacks:
  metrics:
    _target_: monitor.MetricsCallback
initial_design:
  _target_: smbo.RandomInitialDesign
  _partial_: true
  n_configs: 3
`

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out.String()
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tree.yaml")
	data := strings.ReplaceAll(runYAML, "OUTPUT", dir)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunAndTrialsCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	out := execute(t, "run", "--config", cfg)
	if !strings.Contains(out, "Best performance") || !strings.Contains(out, "6 trials") {
		t.Errorf("Unexpected run output: %q", out)
	}

	out = execute(t, "trials", "--dir", filepath.Join(dir, "cli"))
	if !strings.Contains(out, "Total trials: 6") {
		t.Errorf("Unexpected trials output: %q", out)
	}

	out = execute(t, "runs", "list", "--dir", filepath.Join(dir, "cli"))
	if !strings.Contains(out, "Total runs: 1") {
		t.Errorf("Unexpected runs output: %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	if out := execute(t, "version"); !strings.Contains(out, "hypersmac version "+version) {
		t.Errorf("Unexpected version output: %q", out)
	}
}

func TestExampleConfigsInstantiate(t *testing.T) {
	cs, err := space.Load(filepath.Join("..", "examples", "branin_space.yaml"))
	if err != nil {
		t.Fatalf("Failed to load space: %v", err)
	}
	if cs.Dim() != 2 {
		t.Fatalf("Expected 2 hyperparameters, got %d", cs.Dim())
	}

	for _, name := range []string{"branin.yaml", "branin_redis.yaml"} {
		tree, err := config.Load(filepath.Join("..", "examples", name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		reg := opt.NewRegistry(prometheus.NewRegistry())
		resolvers := config.NewResolvers()
		opt.RegisterResolvers(resolvers, reg, cs)
		resolved, err := resolvers.Resolve(tree)
		if err != nil {
			t.Fatalf("%s: resolve failed: %v", name, err)
		}
		if _, err := config.Instantiate(resolved, reg); err != nil {
			t.Errorf("%s: instantiate failed: %v", name, err)
		}
	}
}

func TestSelectRunsForDeletion(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "4", Timestamp: now.AddDate(0, 0, -30)},
	}

	tests := []struct {
		name          string
		keepLast, age int
		want          []string
	}{
		{"by age", 0, 7, []string{"1", "4"}},
		{"by count", 2, 0, []string{"4", "1"}},
		{"combined", 3, 7, []string{"1", "4"}},
		{"nothing", 10, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectRunsForDeletion(infos, tt.keepLast, tt.age, now)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d runs, got %d", len(tt.want), len(got))
			}
			for i, info := range got {
				if info.RunID != tt.want[i] {
					t.Errorf("Position %d: expected run %s, got %s", i, tt.want[i], info.RunID)
				}
			}
		})
	}
}

func TestRunsCleanCommand(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i, age := range []int{-20, -1} {
		snap := store.NewSnapshot(strconv.Itoa(i), store.ScenarioInfo{Name: "cli", NTrials: 1}, nil, 0, 0)
		snap.Timestamp = time.Now().AddDate(0, 0, age)
		if err := fs.SaveSnapshot(snap.RunID, snap); err != nil {
			t.Fatal(err)
		}
	}

	out := execute(t, "runs", "clean", "--dir", dir, "--older-than", "7", "--force")
	if !strings.Contains(out, "Deleted 1 run(s), 0 failed.") {
		t.Errorf("Unexpected clean output: %q", out)
	}
	infos, err := fs.ListSnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].RunID != "1" {
		t.Errorf("Expected only run 1 to remain, got %+v", infos)
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()
	content := []byte("Hello, World!")
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if result := formatBytes(tt.bytes); result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}
