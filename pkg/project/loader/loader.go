package loader

import (
	"github.com/blang/semver/v4"
	"github.com/observatorium/cfganalyzer/pkg/project"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadProjectConfig loads analyzer configuration from given bytes.
func LoadProjectConfig(file []byte) (*project.Config, error) {
	c := &project.Config{}
	if err := yaml.Unmarshal(file, c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if c.Ref == "" {
		c.Ref = project.DefaultRef
	}
	if c.SupportedVersions != "" {
		r, err := semver.ParseRange(c.SupportedVersions)
		if err != nil {
			return nil, errors.Wrapf(err, "parse supportedVersions %q", c.SupportedVersions)
		}
		c.Versions = r
	}
	if c.SpawnSize < 0 {
		return nil, errors.Errorf("spawnSize must not be negative, got %v", c.SpawnSize)
	}

	if len(c.Projects) == 0 {
		return nil, errors.New("no projects configured")
	}
	seen := map[uint64]string{}
	for i, p := range c.Projects {
		if p.ID == 0 {
			return nil, errors.Errorf("project %d (%q): id is required", i, p.Name)
		}
		if other, ok := seen[p.ID]; ok {
			return nil, errors.Errorf("project id %d is used by both %q and %q", p.ID, other, p.Name)
		}
		seen[p.ID] = p.Name
		if p.URL == "" {
			return nil, errors.Errorf("project %d (%q): url is required", p.ID, p.Name)
		}
		if p.Name == "" {
			c.Projects[i].Name = p.Key()
		}
	}
	return c, nil
}
