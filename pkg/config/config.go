// Package config loads the tracectl configuration file,
// ~/.tracectl/config.yml by default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".tracectl"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Commands aliases.
	Aliases map[string][]string `yaml:"aliases" mapstructure:"aliases"`

	// Log enables debug logging, LogOutput selects the layers.
	Log       bool   `yaml:"log" mapstructure:"log"`
	LogOutput string `yaml:"log-output" mapstructure:"log-output"`

	// SyscallHooks resumes threads with PTRACE_SYSCALL instead of PTRACE_CONT.
	SyscallHooks bool `yaml:"syscall-hooks" mapstructure:"syscall-hooks"`

	// StepLimit caps stepuntil when no limit is given, -1 is unbounded.
	StepLimit int `yaml:"step-limit" mapstructure:"step-limit"`

	// DisasmSyntax is one of go, gnu or intel.
	DisasmSyntax string `yaml:"disasm-syntax" mapstructure:"disasm-syntax"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Aliases:      map[string][]string{},
		StepLimit:    10000,
		DisasmSyntax: "gnu",
	}
}

// SetDefaults registers the built-in values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log", d.Log)
	v.SetDefault("log-output", d.LogOutput)
	v.SetDefault("syscall-hooks", d.SyscallHooks)
	v.SetDefault("step-limit", d.StepLimit)
	v.SetDefault("disasm-syntax", d.DisasmSyntax)
}

// Path gets the full path to the given config file name.
func Path(file string) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, file), nil
}

// DefaultPath returns ~/.tracectl/config.yml.
func DefaultPath() (string, error) {
	return Path(configFile)
}

// Load reads ~/.tracectl/config.yml into v, creating the file with the
// default content first if it is missing.
func Load(v *viper.Viper) (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config file path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("could not create config directory: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaultConfig(path); err != nil {
			return nil, err
		}
	}
	return LoadFile(v, path)
}

// LoadFile reads the yaml file at path into v and decodes the result.
// Values already bound to v, e.g. command line flags, take precedence.
func LoadFile(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}

	c := Default()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}
	if c.Aliases == nil {
		c.Aliases = map[string][]string{}
	}
	return c, nil
}

// Save will marshal and save the config struct to path.
func Save(path string, c *Config) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}

func writeDefaultConfig(path string) error {
	err := os.WriteFile(path, []byte(
		`# Configuration file for tracectl.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Log execution control and ptrace requests to stderr.
# log: true
# log-output: target,ptrace

# Stop threads at syscall entry and exit when continuing.
# syscall-hooks: true

# Maximum number of instructions stepped by stepuntil, -1 means no limit.
# step-limit: 10000

# Syntax used by disass: go, gnu or intel.
# disasm-syntax: gnu

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]
`), 0600)
	if err != nil {
		return fmt.Errorf("unable to write default configuration: %v", err)
	}
	return nil
}
