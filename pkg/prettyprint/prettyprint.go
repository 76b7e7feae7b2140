package prettyprint

import (
	"encoding/json"
	"io"
	"text/tabwriter"
	"text/template"

	"github.com/disiqueira/gotree"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Format is an output format for pretty printing
type Format string

const (
	// TreeFormat prints values implementing Treer as a tree
	TreeFormat Format = "tree"
	// TemplateFormat produces text/template-based output
	TemplateFormat Format = "template"
	// JSONFormat produces JSON output
	JSONFormat Format = "json"
	// YAMLFormat produces YAML output
	YAMLFormat Format = "yaml"
)

// Formats lists all formats Write supports
var Formats = []Format{TreeFormat, TemplateFormat, JSONFormat, YAMLFormat}

// Treer is implemented by values which can be printed in TreeFormat
type Treer interface {
	Tree() gotree.Tree
}

// Writer preconfigures the write function
type Writer struct {
	Out          io.Writer
	Format       Format
	FormatString string
}

// Write prints the input in the preconfigred way
func (w *Writer) Write(in interface{}) error {
	return Write(w.Out, in, w.Format, w.FormatString)
}

// Write prints an input value using the format to the writer
func Write(out io.Writer, in interface{}, format Format, formatString string) error {
	switch format {
	case TreeFormat:
		t, ok := in.(Treer)
		if !ok {
			return xerrors.Errorf("%T cannot be printed as a tree", in)
		}
		_, err := io.WriteString(out, t.Tree().Print())
		return err
	case TemplateFormat:
		return writeTemplate(out, in, formatString)
	case JSONFormat:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(in)
	case YAMLFormat:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err := enc.Encode(in)
		if err != nil {
			return err
		}
		return enc.Close()
	default:
		return xerrors.Errorf("unknown format: %s", format)
	}
}

func writeTemplate(out io.Writer, in interface{}, tplc string) error {
	if tplc == "" {
		return xerrors.Errorf("template format needs a format string")
	}

	tpl, err := template.New("template").Parse(tplc)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	return tpl.Execute(w, in)
}
