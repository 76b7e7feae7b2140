package prettyprint

import (
	"bytes"
	"strings"
	"testing"

	"github.com/disiqueira/gotree"
	"github.com/google/go-cmp/cmp"
)

func TestWrite(t *testing.T) {
	type value struct {
		Name string   `json:"name" yaml:"name"`
		Tags []string `json:"tags" yaml:"tags"`
	}
	in := value{Name: "build", Tags: []string{"docker", "zlib"}}

	tests := []struct {
		Name         string
		Format       Format
		FormatString string
		Expectation  string
		Err          bool
	}{
		{
			Name:        "json",
			Format:      JSONFormat,
			Expectation: "{\n  \"name\": \"build\",\n  \"tags\": [\n    \"docker\",\n    \"zlib\"\n  ]\n}\n",
		},
		{
			Name:        "yaml",
			Format:      YAMLFormat,
			Expectation: "name: build\ntags:\n  - docker\n  - zlib\n",
		},
		{
			Name:         "template",
			Format:       TemplateFormat,
			FormatString: `{{ .Name }}{{"\t"}}{{ range .Tags }}{{ . }} {{ end }}`,
			Expectation:  "build  docker zlib ",
		},
		{
			Name:   "template without format string",
			Format: TemplateFormat,
			Err:    true,
		},
		{
			Name:   "unknown format",
			Format: Format("xml"),
			Err:    true,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			var buf bytes.Buffer
			w := &Writer{Out: &buf, Format: test.Format, FormatString: test.FormatString}
			err := w.Write(in)
			if test.Err {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(test.Expectation, buf.String()); diff != "" {
				t.Errorf("Write() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type task struct {
	Name  string
	Steps []string
}

func (t task) Tree() gotree.Tree {
	res := gotree.New(t.Name)
	for _, s := range t.Steps {
		res.Add(s)
	}
	return res
}

func TestWriteTree(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, task{Name: "build", Steps: []string{"generate", "compile"}}, TreeFormat, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, expected := range []string{"build", "generate", "compile"} {
		if !strings.Contains(buf.String(), expected) {
			t.Errorf("expected %q in tree:\n%s", expected, buf.String())
		}
	}

	err = Write(&buf, struct{}{}, TreeFormat, "")
	if err == nil {
		t.Error("expected an error for a value which is not a Treer")
	}
}
