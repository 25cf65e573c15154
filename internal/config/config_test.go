package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8799" {
		t.Errorf("HTTPAddr = %q, want :8799", cfg.HTTPAddr)
	}
	if cfg.PollInterval != 400*time.Millisecond {
		t.Errorf("PollInterval = %v, want 400ms", cfg.PollInterval)
	}
	if cfg.ConfidenceThreshold != 0.8 {
		t.Errorf("ConfidenceThreshold = %v, want 0.8", cfg.ConfidenceThreshold)
	}
	if cfg.ConfirmCount != 2 {
		t.Errorf("ConfirmCount = %d, want 2", cfg.ConfirmCount)
	}
	if cfg.Cooldown != 4*time.Second {
		t.Errorf("Cooldown = %v, want 4s", cfg.Cooldown)
	}
	if cfg.StatePath != "state.json" {
		t.Errorf("StatePath = %q, want state.json", cfg.StatePath)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("CONFIRM_COUNT", "3")
	t.Setenv("REGION_WIDTH", "800")

	cfg := Load()

	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}
	if cfg.ConfidenceThreshold != 0.65 {
		t.Errorf("ConfidenceThreshold = %v, want 0.65", cfg.ConfidenceThreshold)
	}
	if cfg.ConfirmCount != 3 {
		t.Errorf("ConfirmCount = %d, want 3", cfg.ConfirmCount)
	}
	if cfg.RegionWidth != 800 {
		t.Errorf("RegionWidth = %d, want 800", cfg.RegionWidth)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("CONFIRM_COUNT", "two")

	cfg := Load()

	if cfg.PollInterval != 400*time.Millisecond {
		t.Errorf("malformed POLL_INTERVAL should fall back to default, got %v", cfg.PollInterval)
	}
	if cfg.ConfirmCount != 2 {
		t.Errorf("malformed CONFIRM_COUNT should fall back to default, got %d", cfg.ConfirmCount)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			PollInterval:        400 * time.Millisecond,
			ConfidenceThreshold: 0.8,
			ConfirmCount:        2,
			Cooldown:            4 * time.Second,
			StatePath:           "state.json",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"zero confirm count", func(c *Config) { c.ConfirmCount = 0 }},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }},
		{"empty state path", func(c *Config) { c.StatePath = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBudget(t *testing.T) {
	cfg := &Config{PollInterval: 400 * time.Millisecond}
	if got := cfg.Budget(); got != 400*time.Millisecond {
		t.Errorf("Budget() = %v, want poll interval", got)
	}

	cfg.RecognitionBudget = time.Second
	if got := cfg.Budget(); got != time.Second {
		t.Errorf("Budget() = %v, want explicit budget", got)
	}
}
