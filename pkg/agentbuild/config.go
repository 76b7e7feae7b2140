package agentbuild

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/mod/modfile"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFilename is the name of the optional config file in the repository root
	ConfigFilename = "agentbuild.yaml"

	// DefaultRepoPath is used when neither the config nor a go.mod file names the repository's import path
	DefaultRepoPath = "github.com/DataDog/datadog-agent"
)

// Config configures how the agent is built and tested. All fields are optional.
type Config struct {
	// RepoPath is the Go import path of the repository. Defaults to the module path in go.mod.
	RepoPath         string      `yaml:"repoPath,omitempty"`
	BinDir           string      `yaml:"binDir,omitempty"`
	BinName          string      `yaml:"binName,omitempty"`
	MainPackage      string      `yaml:"mainPackage,omitempty"`
	SymbolPrefix     string      `yaml:"symbolPrefix,omitempty"`
	ToolchainCommand string      `yaml:"toolchainCommand,omitempty"`
	BuildProfile     string      `yaml:"buildProfile,omitempty"`
	RuntimeFlavor    string      `yaml:"runtimeFlavor,omitempty"`
	LinkFlags        string      `yaml:"ldflags,omitempty"`
	CompileFlags     string      `yaml:"gcflags,omitempty"`
	GeneratePackages []string    `yaml:"generatePackages,omitempty"`
	Profiles         ProfileTags `yaml:"profiles,omitempty"`

	Mocks           MockConfig           `yaml:"mocks,omitempty"`
	FunctionalTests FunctionalTestConfig `yaml:"functionalTests,omitempty"`

	// Root is the absolute path of the repository
	Root string `yaml:"-"`
}

// MockConfig configures mock generation
type MockConfig struct {
	// Tool is the name of the mock generator binary in $GOPATH/bin
	Tool           string `yaml:"tool,omitempty"`
	InstallCommand string `yaml:"installCommand,omitempty"`
	// Dir is the directory the generation script runs in, relative to the repository root
	Dir    string `yaml:"dir,omitempty"`
	Script string `yaml:"script,omitempty"`
}

// FunctionalTestConfig configures the functional test run
type FunctionalTestConfig struct {
	// Package is the test package, relative to the repository path
	Package string `yaml:"package,omitempty"`
	// Profile names the build profile the test tags come from
	Profile          string `yaml:"profile,omitempty"`
	PrivilegeWrapper string `yaml:"privilegeWrapper,omitempty"`
}

func defaultConfig() Config {
	profiles := make(ProfileTags, len(DefaultProfileTags))
	for k, v := range DefaultProfileTags {
		profiles[k] = append([]string(nil), v...)
	}

	return Config{
		RepoPath:         DefaultRepoPath,
		BinDir:           filepath.Join("bin", "security-agent"),
		BinName:          "security-agent",
		MainPackage:      "cmd/security-agent",
		SymbolPrefix:     DefaultSymbolPrefix,
		ToolchainCommand: DefaultToolchainCommand,
		BuildProfile:     "security-agent",
		RuntimeFlavor:    "3",
		GeneratePackages: []string{"./pkg/status/..."},
		Profiles:         profiles,
		Mocks: MockConfig{
			Tool:           "mockery",
			InstallCommand: "go get -u github.com/vektra/mockery/cmd/mockery",
			Dir:            filepath.Join("pkg", "compliance"),
			Script:         "./gen_mocks.sh",
		},
		FunctionalTests: FunctionalTestConfig{
			Package:          "pkg/security/tests",
			Profile:          "functional-tests",
			PrivilegeWrapper: "sudo -E",
		},
	}
}

// BinPath returns the path of the agent binary relative to the repository root
func (c Config) BinPath() string {
	name := c.BinName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(c.BinDir, name)
}

// DiscoverRepoRoot finds the repository root by walking up from the working directory
// until it finds a config file or a go.mod.
func DiscoverRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 100; i++ {
		for _, marker := range []string{ConfigFilename, "go.mod"} {
			if _, err := os.Stat(filepath.Join(wd, marker)); err == nil {
				return wd, nil
			}
		}

		wd = filepath.Dir(wd)
		if wd == "/" || wd == "" {
			break
		}
	}

	return "", xerrors.Errorf("cannot find repository root")
}

// LoadConfig loads the configuration of the repository at root. If configFile is empty
// we look for agentbuild.yaml in the root. A missing config file is not an error.
func LoadConfig(root, configFile string) (Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return Config{}, err
	}

	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(root, ConfigFilename)
	}

	var cfg Config
	fc, err := os.ReadFile(configFile)
	if os.IsNotExist(err) && !explicit {
		log.WithField("root", root).Debug("no config file found - using defaults")
	} else if err != nil {
		return Config{}, xerrors.Errorf("cannot read config: %w", err)
	} else {
		err = yaml.Unmarshal(fc, &cfg)
		if err != nil {
			return Config{}, xerrors.Errorf("cannot parse %s: %w", configFile, err)
		}
	}

	if cfg.RepoPath == "" {
		cfg.RepoPath, err = readModulePath(root)
		if err != nil {
			return Config{}, err
		}
	}

	defaults := defaultConfig()
	if cfg.Profiles != nil {
		// profiles from the config file add to the default profiles and replace those of the same name
		for name, tags := range defaults.Profiles {
			if _, exists := cfg.Profiles[name]; !exists {
				cfg.Profiles[name] = tags
			}
		}
	}
	err = mergo.Merge(&cfg, defaults)
	if err != nil {
		return Config{}, err
	}
	cfg.Root = root

	return cfg, nil
}

// readModulePath returns the module path declared in root/go.mod, or an empty string if there is no go.mod
func readModulePath(root string) (string, error) {
	fc, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	pth := modfile.ModulePath(fc)
	if pth == "" {
		return "", xerrors.Errorf("cannot find module path in %s", filepath.Join(root, "go.mod"))
	}
	return pth, nil
}
