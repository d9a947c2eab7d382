package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goSession "github.com/MrEthical07/goSession"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML config file: the client configuration plus the
// CLI's own settings.
type fileConfig struct {
	Console   goSession.Config `yaml:",inline"`
	RedisAddr string           `yaml:"redis_addr"`
	// AuditLog receives audit events as JSON lines when set.
	AuditLog string `yaml:"audit_log"`
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "vesselctl")
}

func defaultConfig() fileConfig {
	console := goSession.DefaultConfig()
	console.Storage.Backend = goSession.StorageFile
	console.Storage.FilePath = filepath.Join(configDir(), "credentials.json")
	console.Storage.RedisPrefix = "vesselctl"
	// One short-lived process; a blocking buffer never loses events.
	console.Audit.DropIfFull = false
	return fileConfig{
		Console:   console,
		RedisAddr: "localhost:6379",
	}
}

// loadConfig overlays the YAML file at path on the defaults. A missing file is
// only an error when path was given explicitly.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(configDir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *fileConfig) apply(g globalFlags) {
	if g.baseURL != "" {
		c.Console.HTTP.BaseURL = g.baseURL
	}
	if g.store != "" {
		c.Console.Storage.Backend = goSession.StorageBackend(g.store)
	}
	if g.credentials != "" {
		c.Console.Storage.FilePath = g.credentials
	}
	if g.redisAddr != "" {
		c.RedisAddr = g.redisAddr
	}
}
