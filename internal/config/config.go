// Package config loads the optional YAML configuration file. Every key is
// optional; missing keys keep the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lotas/ctxkeep/internal/classify"
	"github.com/lotas/ctxkeep/internal/keywords"
	"github.com/lotas/ctxkeep/internal/organize"
	"github.com/lotas/ctxkeep/internal/server"
)

// Config holds settings and the policy tables.
type Config struct {
	DB      string `yaml:"db"`
	Profile string `yaml:"profile"`
	Port    int    `yaml:"port"`
	APIPort int    `yaml:"api_port"`

	Classify  classify.Table `yaml:"classify"`
	Stopwords []string       `yaml:"stopwords"`
	Organize  OrganizeConfig `yaml:"organize"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// OrganizeConfig tunes the organizer.
type OrganizeConfig struct {
	ExcludePriorityFromDomains bool `yaml:"exclude_priority_from_domains"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:      server.DefaultPort,
		APIPort:   server.DefaultPort + 1,
		Classify:  classify.DefaultTable(),
		Stopwords: append([]string(nil), keywords.DefaultStopwords...),
	}
}

// DefaultPath returns $CTXKEEP_CONFIG or ~/.config/ctxkeep/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("CTXKEEP_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ctxkeep", "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Path = path
	if _, err := cfg.Classifier(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from CTXKEEP_DB, CTXKEEP_PROFILE and
// CTXKEEP_PORT.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CTXKEEP_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("CTXKEEP_PROFILE"); v != "" {
		c.Profile = v
	}
	if v := os.Getenv("CTXKEEP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CTXKEEP_PORT: %w", err)
		}
		c.Port = port
	}
	return nil
}

// Classifier builds a classifier from the configured table.
func (c *Config) Classifier() (*classify.Classifier, error) {
	return classify.New(c.Classify)
}

// Keywords builds a keyword extractor from the configured stopwords.
func (c *Config) Keywords() *keywords.Extractor {
	return keywords.New(c.Stopwords)
}

// OrganizeOptions returns the organizer options.
func (c *Config) OrganizeOptions() organize.Options {
	return organize.Options{ExcludePriorityFromDomains: c.Organize.ExcludePriorityFromDomains}
}
