package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		Name        string
		Content     string
		Expectation *Setup
	}{
		{
			Name:        "empty",
			Expectation: &Setup{},
		},
		{
			Name: "config and files",
			Expectation: &Setup{
				Config: &agentbuild.Config{
					RepoPath: "example.com/agent",
					BinName:  "sec",
				},
				ModulePath: "example.com/agent",
				Files: map[string]string{
					"pkg/compliance/gen_mocks.sh": "echo hi",
				},
			},
			Content: `config:
  repoPath: example.com/agent
  binName: sec
modulePath: example.com/agent
files:
  pkg/compliance/gen_mocks.sh: echo hi`,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			act, err := LoadFromYAML(bytes.NewBufferString(test.Content))
			if err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(test.Expectation, act); diff != "" {
				t.Errorf("LoadFromYAML() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMaterialise(t *testing.T) {
	type File struct {
		Path     string
		Contains string
	}
	tests := []struct {
		Name        string
		Setup       Setup
		Expectation []File
	}{
		{
			Name: "simple",
			Setup: Setup{
				Config:     &agentbuild.Config{BinName: "sec"},
				ModulePath: "example.com/agent",
				Files: map[string]string{
					"someFile":        "content",
					"some/other/file": "more content",
				},
			},
			Expectation: []File{
				{Path: agentbuild.ConfigFilename, Contains: "binName: sec"},
				{Path: "go.mod", Contains: "module example.com/agent"},
				{Path: "someFile", Contains: "content"},
				{Path: "some/other/file", Contains: "more content"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			loc, err := test.Setup.Materialize()
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { os.RemoveAll(loc) })
			t.Logf("materialized at %s", loc)

			for _, f := range test.Expectation {
				fc, err := os.ReadFile(filepath.Join(loc, f.Path))
				if err != nil {
					t.Errorf("expected file mismatch: %s: %v", f.Path, err)
					continue
				}
				if !strings.Contains(string(fc), f.Contains) {
					t.Errorf("file content mismatch: %s: expected to contain %q, got %q", f.Path, f.Contains, string(fc))
				}
			}
		})
	}
}

func TestRecordingExecutor(t *testing.T) {
	exec := &RecordingExecutor{
		Responses: map[string]Response{
			"gimme": {Stdout: "export GOROOT='/go';\n"},
			"false": {Stderr: "nope", ExitStatus: 1},
		},
	}

	var stdout, stderr bytes.Buffer
	status, err := exec.Execute(agentbuild.RenderedCommand{Command: "gimme 1.21"}, &stdout, &stderr)
	if err != nil || status != 0 {
		t.Fatalf("unexpected result: %d, %v", status, err)
	}
	if stdout.String() != "export GOROOT='/go';\n" {
		t.Errorf("unexpected stdout: %q", stdout.String())
	}

	status, _ = exec.Execute(agentbuild.RenderedCommand{Command: "false"}, &stdout, &stderr)
	if status != 1 || stderr.String() != "nope" {
		t.Errorf("unexpected failure response: %d %q", status, stderr.String())
	}

	if diff := cmp.Diff([]string{"gimme 1.21", "false"}, exec.CommandLines()); diff != "" {
		t.Errorf("CommandLines() mismatch (-want +got):\n%s", diff)
	}
}
