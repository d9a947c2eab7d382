package goSession

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.HTTP.BaseURL = "/api" }},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"refresh path", func(c *Config) { c.Refresh.Path = "auth/token/refresh/" }},
		{"negative leeway", func(c *Config) { c.Refresh.Leeway = -time.Second }},
		{"login equals landing", func(c *Config) { c.Guard.LandingPath = c.Guard.LoginPath }},
		{"zero hops", func(c *Config) { c.Guard.MaxHops = 0 }},
		{"audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }},
		{"latency without metrics", func(c *Config) { c.Metrics.Enabled = false }},
		{"file without path", func(c *Config) { c.Storage.Backend = StorageFile }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigAuditDisabledSkipsBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit = AuditConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}
