package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/agentbuild/pkg/agentbuild"
)

func TestBuildCommandFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want agentbuild.BuildRequest
	}{
		{
			name: "defaults",
			args: []string{},
			want: agentbuild.BuildRequest{
				Arch:         "x64",
				MajorVersion: "7",
				ModuleMode:   "vendor",
			},
		},
		{
			name: "everything set",
			args: []string{"--race", "--incremental-build", "--go-version", "1.22.1", "--major-version", "6", "--arch", "arm64", "--go-mod", "mod"},
			want: agentbuild.BuildRequest{
				Arch:             "arm64",
				MajorVersion:     "6",
				ToolchainVersion: "1.22.1",
				Race:             true,
				Incremental:      true,
				ModuleMode:       "mod",
			},
		},
		{
			name: "race explicitly disabled",
			args: []string{"--race=false", "--go-mod="},
			want: agentbuild.BuildRequest{
				Arch:         "x64",
				MajorVersion: "7",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got agentbuild.BuildRequest
			cmd := &cobra.Command{
				Use: "build",
				Run: func(cmd *cobra.Command, args []string) {
					got = getBuildRequest(cmd)
				},
			}
			addBuildFlags(cmd)

			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err != nil {
				t.Fatalf("failed to execute command: %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("getBuildRequest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFunctionalTestCommandFlags(t *testing.T) {
	var got agentbuild.FunctionalTestRequest
	cmd := &cobra.Command{
		Use: "functional-tests",
		Run: func(cmd *cobra.Command, args []string) {
			got = getFunctionalTestRequest(cmd)
		},
	}
	addFunctionalTestFlags(cmd)

	cmd.SetArgs([]string{"--race", "--test-verbose", "--pattern", "TestOpen", "-o", "/tmp/testsuite"})
	err := cmd.Execute()
	if err != nil {
		t.Fatalf("failed to execute command: %v", err)
	}

	want := agentbuild.FunctionalTestRequest{
		Arch:         "x64",
		MajorVersion: "7",
		FunctionalTestOptions: agentbuild.FunctionalTestOptions{
			Verbose: true,
			Pattern: "TestOpen",
			Output:  "/tmp/testsuite",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("getFunctionalTestRequest() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCommandHelpText(t *testing.T) {
	cmd := &cobra.Command{
		Use: "build",
		Run: func(cmd *cobra.Command, args []string) {},
	}
	addBuildFlags(cmd)

	for _, name := range []string{"race", "go-version", "incremental-build", "major-version", "arch", "go-mod"} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("flag %s not found", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("flag %s has no usage text", name)
		}
	}
}

func TestDescribePlanFormats(t *testing.T) {
	plan := &agentbuild.FunctionalTestPlan{
		Tags:    []string{"functionaltests", "linux_bpf"},
		EnvHash: "abc",
		Test:    agentbuild.RenderedCommand{Command: "sudo -E go test -tags functionaltests,linux_bpf ./pkg/security/tests", Dir: "/src"},
	}

	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{name: "tree by default", expected: []string{"functional-tests", "linux_bpf", "environment abc", "in /src"}},
		{name: "template", args: []string{"--format", "template", "-t", "{{ .EnvHash }}"}, expected: []string{"abc"}},
		{name: "json", args: []string{"--format", "json"}, expected: []string{`"envHash": "abc"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cmd := &cobra.Command{
				Use: "functional-tests",
				RunE: func(cmd *cobra.Command, args []string) error {
					w := getWriterFromFlags(cmd)
					w.Out = &buf
					return w.Write(plan)
				},
			}
			addFormatFlags(cmd)

			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err != nil {
				t.Fatalf("failed to execute command: %v", err)
			}

			for _, expected := range tt.expected {
				if !strings.Contains(buf.String(), expected) {
					t.Errorf("expected %q in output:\n%s", expected, buf.String())
				}
			}
		})
	}
}
