package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "diffsim",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	return rootCmd
}

// execute runs sub with args and returns stdout.
func execute(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(sub)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// isolateEnv clears the DIFFSIM_* overrides so the host environment can't
// leak into run files.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DIFFSIM_LOG_LEVEL", "DIFFSIM_SEED", "DIFFSIM_ITERATIONS"} {
		t.Setenv(key, "")
	}
}

const seirRunFile = `model: seir
seed: 11
iterations: 10
graph:
  source: generator
  generator:
    kind: erdos_renyi
    n: 40
    p: 0.1
parameters:
  model:
    alpha: 0.3
    beta: 0.4
    gamma: 0.2
initial:
  fraction_infected: 0.1
output:
  format: csv
`

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write run file: %v", err)
	}
	return path
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	want := []string{"graph", "models", "run", "validate", "version"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newVersionCmd(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "diffsim version "+version) {
		t.Errorf("unexpected output: %q", out)
	}

	out, err = execute(t, newVersionCmd(), "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v["version"] != version {
		t.Errorf("expected version %s, got %s", version, v["version"])
	}
}

func TestModelsCmd(t *testing.T) {
	out, err := execute(t, newModelsCmd(), "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, want := range []string{"icep", "seir", "permeability", "tp_rate", "Exposed=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("models output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, newModelsCmd(), "models", "SEIR", "--json")
	if err != nil {
		t.Fatalf("models --json: %v", err)
	}
	var listings []modelListing
	if err := json.Unmarshal([]byte(out), &listings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listings) != 1 || listings[0].Name != "seir" || len(listings[0].Statuses) != 4 {
		t.Errorf("unexpected listing: %+v", listings)
	}

	if _, err := execute(t, newModelsCmd(), "models", "sir"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestRunCmdCSV(t *testing.T) {
	isolateEnv(t)
	path := writeRunFile(t, seirRunFile)

	out, err := execute(t, newRunCmd(), "run", path, "--root", t.TempDir())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected header + 10 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "iteration,Susceptible") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0,36,4,") {
		t.Errorf("expected 36 susceptible and 4 infected at iteration 0, got %q", lines[1])
	}
}

func TestRunCmdReproducible(t *testing.T) {
	isolateEnv(t)
	path := writeRunFile(t, seirRunFile)

	first, err := execute(t, newRunCmd(), "run", path, "--root", t.TempDir())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := execute(t, newRunCmd(), "run", path, "--root", t.TempDir())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first != second {
		t.Error("same seed produced different output")
	}
}

func TestRunCmdFlagOverrides(t *testing.T) {
	isolateEnv(t)
	path := writeRunFile(t, seirRunFile)

	out, err := execute(t, newRunCmd(), "run", path, "--root", t.TempDir(), "--iterations", "3", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var result struct {
		RunID   string            `json:"run_id"`
		Results []json.RawMessage `json:"results"`
		Info    struct {
			Model string `json:"model"`
			Seed  uint64 `json:"seed"`
		} `json:"info"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if len(result.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(result.Results))
	}
	if result.Info.Model != "seir" || result.Info.Seed != 11 {
		t.Errorf("unexpected info: %+v", result.Info)
	}
}

func TestRunCmdOutputFile(t *testing.T) {
	isolateEnv(t)
	path := writeRunFile(t, seirRunFile)
	dir := t.TempDir()

	t.Run("text", func(t *testing.T) {
		outPath := filepath.Join(dir, "trends.txt")
		stdout, err := execute(t, newRunCmd(), "run", path, "--root", dir, "--format", "text", "-o", outPath)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected nothing on stdout, got %q", stdout)
		}
		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		if !strings.Contains(string(data), "Susceptible") {
			t.Errorf("unexpected text output:\n%s", data)
		}
	})

	t.Run("html", func(t *testing.T) {
		outPath := filepath.Join(dir, "trends.html")
		stdout, err := execute(t, newRunCmd(), "run", path, "--root", dir, "--format", "html", "-o", outPath)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if !strings.Contains(stdout, "Chart written to "+outPath) {
			t.Errorf("unexpected stdout %q", stdout)
		}
		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		if !strings.Contains(string(data), "<svg") {
			t.Error("expected an SVG chart in the HTML output")
		}
	})
}

func TestRunCmdDecisionLog(t *testing.T) {
	isolateEnv(t)
	path := writeRunFile(t, seirRunFile)
	root := t.TempDir()

	if _, err := execute(t, newRunCmd(), "run", path, "--root", root); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".diffsim", "decisions.jsonl")); !os.IsNotExist(err) {
		t.Error("decision log should not be written at info level")
	}

	t.Setenv("DIFFSIM_LOG_LEVEL", "debug")
	if _, err := execute(t, newRunCmd(), "run", path, "--root", root); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, ".diffsim", "decisions.jsonl"))
	if err != nil {
		t.Fatalf("expected decision log at debug level: %v", err)
	}
	if !strings.Contains(string(data), `"event":"transition"`) {
		t.Error("expected transition events")
	}
}

func TestRunCmdErrors(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name    string
		content string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown model flag",
			content: seirRunFile,
			args:    []string{"--model", "sis"},
			wantErr: "unknown model",
		},
		{
			name:    "dot is not a trend format",
			content: seirRunFile,
			args:    []string{"--format", "dot"},
			wantErr: "renders graphs",
		},
		{
			name:    "out of range parameter",
			content: strings.Replace(seirRunFile, "beta: 0.4", "beta: 1.4", 1),
			wantErr: "OUT_OF_RANGE",
		},
		{
			name:    "missing parameter",
			content: strings.Replace(seirRunFile, "    gamma: 0.2\n", "", 1),
			wantErr: "MISSING_PARAMETER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRunFile(t, tt.content)
			args := append([]string{"run", path, "--root", t.TempDir()}, tt.args...)
			_, err := execute(t, newRunCmd(), args...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCmd(t *testing.T) {
	isolateEnv(t)

	path := writeRunFile(t, seirRunFile)
	out, err := execute(t, newValidateCmd(), "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "model seir over 40 nodes") {
		t.Errorf("unexpected output %q", out)
	}

	bad := writeRunFile(t, strings.Replace(seirRunFile, "fraction_infected: 0.1", "nodes:\n    Infected: [\"99\"]", 1))
	out, err = execute(t, newValidateCmd(), "validate", bad, "--json")
	if err == nil {
		t.Fatal("expected error for unknown initial node")
	}
	var v map[string]interface{}
	if jerr := json.Unmarshal([]byte(out), &v); jerr != nil {
		t.Fatalf("decode: %v", jerr)
	}
	if v["valid"] != false || v["code"] != "UNKNOWN_NODE" {
		t.Errorf("unexpected validation report: %v", v)
	}
}
