package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/linkage/internal/output"
)

const containers = "../../pkg/loader/testdata/containers.json"

// run executes the app with args and returns what it wrote to its writer.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"linkage"}, args...))
	return buf.String(), err
}

func TestModelPath(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"one model", []string{"model.json"}, "model.json", false},
		{"none", nil, "", true},
		{"two", []string{"a.json", "b.json"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Commands: []*cli.Command{{
					Name: "analyze",
					Action: func(c *cli.Context) error {
						got, err := modelPath(c)
						if (err != nil) != tt.wantErr {
							t.Errorf("modelPath() error = %v, wantErr %v", err, tt.wantErr)
						}
						if got != tt.want {
							t.Errorf("modelPath() = %q, want %q", got, tt.want)
						}
						return nil
					},
				}},
			}
			if err := app.Run(append([]string{"linkage", "analyze"}, tt.args...)); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestAnalyzeCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	if _, err := run(t, "--no-cache", "-f", "json", "-o", out, "analyze", "--no-progress", containers); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var data output.AnalysisData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, raw)
	}
	if data.Stats.Linked != 5 {
		t.Errorf("linked = %d, want 5", data.Stats.Linked)
	}
}

func TestAnalyzeCommandSelectedMethods(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.md")
	_, err := run(t, "--no-cache", "-f", "markdown", "-o", out,
		"analyze", "--no-progress", "-m", "X.pick", "-m", "C.setI", containers)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(out)
	text := string(raw)
	for _, want := range []string{"# Linkage Analysis", "X.pick", "C.setI"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "X.share") {
		t.Errorf("report should only list the selected methods:\n%s", text)
	}
}

func TestAnalyzeCommandErrors(t *testing.T) {
	if _, err := run(t, "--no-cache", "analyze"); err == nil {
		t.Error("analyze without a model should fail")
	}
	if _, err := run(t, "--no-cache", "analyze", "--no-progress", "missing.json"); err == nil {
		t.Error("analyze of a missing model should fail")
	}
	if _, err := run(t, "--no-cache", "analyze", "--no-progress", "-m", "X.nope", containers); err == nil {
		t.Error("analyze of an unknown method should fail")
	}
}

func TestLinksCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "links.txt")
	_, err := run(t, "--no-cache", "-f", "text", "-o", out,
		"links", "--method", "X.pick", "--variable", "m", containers)
	if err != nil {
		t.Fatalf("links failed: %v", err)
	}
	raw, _ := os.ReadFile(out)
	text := string(raw)
	for _, want := range []string{"m in X.pick at exit", "*M-4-0M", "ms"} {
		if !strings.Contains(text, want) {
			t.Errorf("links output missing %q:\n%s", want, text)
		}
	}

	if _, err := run(t, "--no-cache", "links", "--method", "X.pick", containers); err == nil {
		t.Error("links without --variable should fail")
	}
	if _, err := run(t, "--no-cache", "links", "--method", "X.pick", "--variable", "m", "--index", "7", containers); err == nil {
		t.Error("links at a missing statement should fail")
	}
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[analysis]", "max_scc_iterations = 10", "[cache]", "[log]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkage.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nmax_scc_iterations = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "-c", path, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "# Configuration from: "+path) || !strings.Contains(out, "max_scc_iterations = 3") {
		t.Errorf("config show from file:\n%s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(good, []byte("[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("[analysis]\nmax_scc_iterations = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "-c", good, "config", "validate"); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if _, err := run(t, "-c", bad, "config", "validate"); err == nil {
		t.Error("invalid config accepted")
	}
}

func TestMCPManifest(t *testing.T) {
	out, err := run(t, "mcp", "manifest")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"name": "io.github.panbanda/linkage"`) {
		t.Errorf("manifest output:\n%s", out)
	}
}
