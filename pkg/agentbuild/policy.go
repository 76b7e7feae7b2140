package agentbuild

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/xerrors"
)

// BuildFlagPolicy provides the platform specific compiler and linker flags
type BuildFlagPolicy interface {
	BaseBuildFlags(arch, majorVersion, runtimeFlavor string) (BuildFlags, error)
}

// goarchByArch maps the architecture names used on the command line to GOARCH values
var goarchByArch = map[string]string{
	"x64":   "amd64",
	"x86":   "386",
	"arm64": "arm64",
	"armhf": "arm",
}

// DefaultBuildFlagPolicy stamps the agent's version package and selects the target architecture
type DefaultBuildFlagPolicy struct {
	RepoPath string
	Metadata MetadataProvider

	// ExtraLinkFlags are prepended to the generated linker flags
	ExtraLinkFlags string
	// CompileFlags are passed as -gcflags
	CompileFlags string
}

// BaseBuildFlags implements BuildFlagPolicy
func (p DefaultBuildFlagPolicy) BaseBuildFlags(arch, majorVersion, runtimeFlavor string) (BuildFlags, error) {
	goarch, ok := goarchByArch[arch]
	if !ok {
		return BuildFlags{}, xerrors.Errorf("unsupported architecture %q", arch)
	}

	version, err := p.Metadata.VersionString(majorVersion)
	if err != nil {
		return BuildFlags{}, err
	}
	commit, err := p.Metadata.GitCommit()
	if err != nil {
		return BuildFlags{}, err
	}

	var ldflags []string
	if p.ExtraLinkFlags != "" {
		ldflags = append(ldflags, p.ExtraLinkFlags)
	}
	ldflags = append(ldflags,
		fmt.Sprintf("-X %s/pkg/version.Commit=%s", p.RepoPath, commit),
		fmt.Sprintf("-X %s/pkg/version.AgentVersion=%s", p.RepoPath, version),
	)
	if runtimeFlavor != "" {
		ldflags = append(ldflags, fmt.Sprintf("-X %s/pkg/collector/python.pythonRuntimes=%s", p.RepoPath, runtimeFlavor))
	}

	env := EnvironmentMap{
		"GOARCH":      goarch,
		"CGO_ENABLED": "1",
	}
	return BuildFlags{
		// keep a trailing space so link variables can be appended directly
		LinkFlags:    strings.Join(ldflags, " ") + " ",
		CompileFlags: p.CompileFlags,
		Env:          env,
	}, nil
}

// TagRegistry knows the default build tags of each build profile
type TagRegistry interface {
	DefaultBuildTags(profile string) (BuildTagSet, error)
}

// ProfileTags is a TagRegistry backed by a static map of profile name to tags
type ProfileTags map[string][]string

// DefaultProfileTags are the build profiles known out of the box
var DefaultProfileTags = ProfileTags{
	"security-agent": {
		"containerd",
		"docker",
		"ec2",
		"kubeapiserver",
		"kubelet",
		"netcgo",
		"podman",
		"secrets",
		"zlib",
	},
	"functional-tests": {
		"functionaltests",
		"linux_bpf",
	},
}

// DefaultBuildTags implements TagRegistry
func (pt ProfileTags) DefaultBuildTags(profile string) (BuildTagSet, error) {
	tags, ok := pt[profile]
	if !ok {
		known := make([]string, 0, len(pt))
		for k := range pt {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, xerrors.Errorf("unknown build profile %q (known profiles: %s)", profile, strings.Join(known, ", "))
	}
	return NewBuildTagSet(tags...), nil
}
