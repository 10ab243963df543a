package project

import (
	"strconv"

	"github.com/blang/semver/v4"
)

// DefaultRef is used when neither the analyzer config nor a project names a ref.
const DefaultRef Ref = "main"

// Config is the analyzer configuration: which projects to inspect and how.
type Config struct {
	// Ref is the default git ref config documents are read at.
	Ref Ref `yaml:"ref"`
	// SupportedVersions, when set, is a semver range documents must satisfy
	// (e.g. ">=1.0.0 <2.0.0"). Documents outside of it are reported as schema
	// errors. When empty, versions are only parsed.
	SupportedVersions string `yaml:"supportedVersions"`
	// SpawnSize bounds initial node positions of rendered graphs.
	SpawnSize float64         `yaml:"spawnSize"`
	Projects  []ProjectConfig `yaml:"projects"`

	// Versions is SupportedVersions parsed by the loader. Nil when lenient.
	Versions semver.Range `yaml:"-"`
}

// ProjectConfig describes one project repository.
type ProjectConfig struct {
	ID    uint64 `yaml:"id"`
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	URL   string `yaml:"url"`
	// Ref overrides Config.Ref for this project.
	Ref Ref `yaml:"ref,omitempty"`
}

// Key is the project key used by the resolver and the graph.
func (p ProjectConfig) Key() string {
	return strconv.FormatUint(p.ID, 10)
}
