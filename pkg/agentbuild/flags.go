package agentbuild

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

const (
	// BuildDateLayout is the format of the BuildDate link variable
	BuildDateLayout = "2006-01-02T15:04:05"

	// DefaultSymbolPrefix is the package whose variables receive the link variables
	DefaultSymbolPrefix = "main."
)

// Link variable names. They must match the variables declared in the agent's main package.
const (
	LinkVarVersion   = "Version"
	LinkVarGoVersion = "GoVersion"
	LinkVarGitBranch = "GitBranch"
	LinkVarGitCommit = "GitCommit"
	LinkVarBuildDate = "BuildDate"
)

// BuildRequest describes a single build or test invocation
type BuildRequest struct {
	Arch         string
	MajorVersion string
	// ToolchainVersion selects a specific Go version. Empty means use whatever Go is on the PATH.
	ToolchainVersion string
	Race             bool
	Incremental      bool
	ModuleMode       string
}

// RuntimeMetadata is the version information looked up once per invocation
type RuntimeMetadata struct {
	Version   string
	GoVersion string
	GitBranch string
	GitCommit string
	BuildDate time.Time
}

// LinkVariable is a single symbol set at link time
type LinkVariable struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// LinkVariables is an ordered list of symbols set at link time
type LinkVariables []LinkVariable

// Get returns the value of a link variable
func (lv LinkVariables) Get(key string) (value string, ok bool) {
	for _, v := range lv {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Render produces the -X arguments for the linker, e.g. -X 'main.Version=7.50.0'
func (lv LinkVariables) Render(symbolPrefix string) string {
	segs := make([]string, 0, len(lv))
	for _, v := range lv {
		segs = append(segs, fmt.Sprintf("-X '%s%s=%s'", symbolPrefix, v.Key, v.Value))
	}
	return strings.Join(segs, " ")
}

// AppendLinkFlags appends the rendered link variables to the base linker flags
func AppendLinkFlags(base string, lv LinkVariables, symbolPrefix string) string {
	rendered := lv.Render(symbolPrefix)
	if base == "" || rendered == "" {
		return base + rendered
	}
	if strings.HasSuffix(base, " ") {
		return base + rendered
	}
	return base + " " + rendered
}

// BuildTagSet is a set of build tags
type BuildTagSet map[string]struct{}

// NewBuildTagSet creates a tag set from a list of tags, dropping duplicates and empty tags
func NewBuildTagSet(tags ...string) BuildTagSet {
	res := make(BuildTagSet, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		res[t] = struct{}{}
	}
	return res
}

// Sorted returns the tags in lexical order
func (s BuildTagSet) Sorted() []string {
	res := make([]string, 0, len(s))
	for t := range s {
		res = append(res, t)
	}
	sort.Strings(res)
	return res
}

// Has returns true if the set contains the tag
func (s BuildTagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// BuildFlags are the compiler and linker flags and base environment produced by a BuildFlagPolicy
type BuildFlags struct {
	LinkFlags    string         `json:"ldflags" yaml:"ldflags"`
	CompileFlags string         `json:"gcflags" yaml:"gcflags"`
	Env          EnvironmentMap `json:"env" yaml:"env"`
}

// FlagAssembler computes link variables and build tags
type FlagAssembler struct {
	Tags TagRegistry
	// Now is the clock used for the build date. Defaults to time.Now.
	Now func() time.Time
}

// linkVarUnsafeChars cannot appear in link variable values. The values end up in -X '...' within
// a double quoted -ldflags argument, where the shell would act on any of these.
const linkVarUnsafeChars = "'\"$`\\"

// AssembleLinkVars produces the five link variables. An explicitly requested toolchain version
// overrides the auto-detected Go version.
func (fa *FlagAssembler) AssembleLinkVars(req BuildRequest, meta RuntimeMetadata) (LinkVariables, error) {
	buildDate := meta.BuildDate
	if buildDate.IsZero() {
		now := fa.Now
		if now == nil {
			now = time.Now
		}
		buildDate = now()
	}

	goVersion := meta.GoVersion
	if req.ToolchainVersion != "" {
		goVersion = req.ToolchainVersion
	}

	res := LinkVariables{
		{Key: LinkVarVersion, Value: meta.Version},
		{Key: LinkVarGoVersion, Value: goVersion},
		{Key: LinkVarGitBranch, Value: meta.GitBranch},
		{Key: LinkVarGitCommit, Value: meta.GitCommit},
		{Key: LinkVarBuildDate, Value: buildDate.Local().Format(BuildDateLayout)},
	}
	for _, v := range res {
		if strings.ContainsAny(v.Value, linkVarUnsafeChars) {
			return nil, xerrors.Errorf("link variable %s contains one of %s: %s", v.Key, linkVarUnsafeChars, v.Value)
		}
	}
	return res, nil
}

// AssembleTags returns the default tags of a build profile.
// Tags are not filtered by architecture.
func (fa *FlagAssembler) AssembleTags(profile string) (BuildTagSet, error) {
	return fa.Tags.DefaultBuildTags(profile)
}
