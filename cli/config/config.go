// Package config handles YAML merge-plan file loading for the CLI.
package config

import (
	"fmt"

	"github.com/kuzukami/jdependency/digest"
)

// Config represents a merge-plan YAML file. All values act as defaults
// for jdependency merge flags; CLI flags always override config
// values.
type Config struct {
	// Output is the path of the merged archive to create.
	Output string `yaml:"output"`

	// Digest selects the content digest algorithm ("blake3" or
	// "highwayhash"). Empty selects the default.
	Digest string `yaml:"digest"`

	// Verbose mirrors the --verbose flag.
	Verbose bool `yaml:"verbose"`

	// Inputs are the archives to merge, in order. Order matters: it
	// fixes both traversal order and which contribution of a
	// colliding name is considered first-seen.
	Inputs []InputConfig `yaml:"inputs"`
}

// InputConfig is one input archive of the merge plan.
type InputConfig struct {
	// Path is the archive file location.
	Path string `yaml:"path"`

	// Prefix is the namespace prefix applied to every entry name the
	// archive contributes. Optional.
	Prefix string `yaml:"prefix"`
}

// Validate checks the config for problems that would make a merge
// fail late or behave surprisingly.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("config: output path is required")
	}
	if len(c.Inputs) == 0 {
		return fmt.Errorf("config: at least one input archive is required")
	}
	for i, in := range c.Inputs {
		if in.Path == "" {
			return fmt.Errorf("config: inputs[%d] has no path", i)
		}
	}
	if c.Digest != "" {
		if _, err := digest.New(c.Digest); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
