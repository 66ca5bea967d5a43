package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CurrentProfile string              `yaml:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
	path           string
}

// Profile holds the service endpoints one environment exposes.
type Profile struct {
	IngestURL    string `yaml:"ingest_url"`
	ArtifactsURL string `yaml:"artifacts_url"`
	JournalURL   string `yaml:"journal_url"`
	RemitURL     string `yaml:"remit_url"`
	ReconURL     string `yaml:"recon_url"`
	NATSURL      string `yaml:"nats_url"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles: map[string]*Profile{
			"default": DefaultProfile(),
		},
	}
}

func DefaultProfile() *Profile {
	return &Profile{
		IngestURL:    "http://localhost:8081",
		ArtifactsURL: "http://localhost:8082",
		JournalURL:   "http://localhost:8083",
		RemitURL:     "http://localhost:8084",
		ReconURL:     "http://localhost:8085",
		NATSURL:      "nats://localhost:4222",
	}
}

func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfgFile = filepath.Join(home, ".cledger", "config.yaml")
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".cledger", "config.yaml")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// GetProfile resolves a named profile, falling back to the current one and
// filling unset endpoints with local defaults.
func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" || name == "default" {
		name = c.CurrentProfile
	}
	if name == "" {
		name = "default"
	}

	profile, ok := c.Profiles[name]
	if !ok {
		if name == "default" {
			return DefaultProfile(), nil
		}
		return nil, fmt.Errorf("profile '%s' not found", name)
	}

	defaults := DefaultProfile()
	if profile.IngestURL == "" {
		profile.IngestURL = defaults.IngestURL
	}
	if profile.ArtifactsURL == "" {
		profile.ArtifactsURL = defaults.ArtifactsURL
	}
	if profile.JournalURL == "" {
		profile.JournalURL = defaults.JournalURL
	}
	if profile.RemitURL == "" {
		profile.RemitURL = defaults.RemitURL
	}
	if profile.ReconURL == "" {
		profile.ReconURL = defaults.ReconURL
	}
	if profile.NATSURL == "" {
		profile.NATSURL = defaults.NATSURL
	}

	return profile, nil
}
