package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

// ProjectConfig represents a .mutaplan.yaml file checked into the root
// of a mutated repository.
type ProjectConfig struct {
	Version string `yaml:"version"`

	// Planning options merged into every plan.Input.Options.
	IgnoreStatic  bool    `yaml:"ignoreStatic,omitempty"`
	DisableBail   bool    `yaml:"disableBail,omitempty"`
	TimeoutMS     float64 `yaml:"timeoutMS,omitempty"`
	TimeoutFactor float64 `yaml:"timeoutFactor,omitempty"`
	TimeOverheadMS float64 `yaml:"timeOverheadMS,omitempty"`
	WarnSlow      bool    `yaml:"warnSlow,omitempty"`

	// File patterns considered for mutation.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// DefaultProjectConfig returns sensible defaults, mirroring
// plan.DefaultOptions.
func DefaultProjectConfig() *ProjectConfig {
	defaults := plan.DefaultOptions()
	return &ProjectConfig{
		Version:        "1.0",
		IgnoreStatic:   defaults.IgnoreStatic,
		DisableBail:    defaults.DisableBail,
		TimeoutMS:      defaults.TimeoutMS,
		TimeoutFactor:  defaults.TimeoutFactor,
		TimeOverheadMS: defaults.TimeOverheadMS,
		WarnSlow:       defaults.WarnSlow,
		Include:        []string{"**/*.go"},
		Exclude:        []string{"**/vendor/**", "**/*_test.go"},
	}
}

// Options converts the project config into the plan.Options the
// planning facade consumes.
func (c *ProjectConfig) Options() plan.Options {
	return plan.Options{
		IgnoreStatic:   c.IgnoreStatic,
		DisableBail:    c.DisableBail,
		TimeoutMS:      c.TimeoutMS,
		TimeoutFactor:  c.TimeoutFactor,
		TimeOverheadMS: c.TimeOverheadMS,
		WarnSlow:       c.WarnSlow,
	}
}

// LoadProjectConfig loads .mutaplan.yaml from the given directory,
// falling back to defaults when absent.
func LoadProjectConfig(repoPath string) (*ProjectConfig, error) {
	configPath := filepath.Join(repoPath, ".mutaplan.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join(repoPath, ".mutaplan.yml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return DefaultProjectConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveProjectConfig writes cfg to .mutaplan.yaml in repoPath.
func SaveProjectConfig(repoPath string, cfg *ProjectConfig) error {
	configPath := filepath.Join(repoPath, ".mutaplan.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Merge applies non-zero overrides from other (e.g. parsed CLI flags)
// on top of c.
func (c *ProjectConfig) Merge(other *ProjectConfig) {
	if other == nil {
		return
	}

	if other.TimeoutMS != 0 {
		c.TimeoutMS = other.TimeoutMS
	}
	if other.TimeoutFactor != 0 {
		c.TimeoutFactor = other.TimeoutFactor
	}
	if other.TimeOverheadMS != 0 {
		c.TimeOverheadMS = other.TimeOverheadMS
	}
	if other.IgnoreStatic {
		c.IgnoreStatic = true
	}
	if other.DisableBail {
		c.DisableBail = true
	}
	if other.WarnSlow {
		c.WarnSlow = true
	}
	if len(other.Include) > 0 {
		c.Include = other.Include
	}
	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}
}
