// Package config handles tracker configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// Config holds all tunables. Detection parameters are configuration, not
// structure: the detector algorithm is identical for any threshold/confirm/
// cooldown combination.
type Config struct {
	HTTPAddr string

	// Polling
	PollInterval      time.Duration
	RecognitionBudget time.Duration // per-call budget; 0 means PollInterval

	// Detection
	ConfidenceThreshold float64 // T: minimum confidence to arm/confirm
	ConfirmCount        int     // K: consecutive matches before an event
	Cooldown            time.Duration

	// Capture
	DisplayIndex      int
	RegionX           int
	RegionY           int
	RegionWidth       int // 0 means full display width
	RegionHeight      int // 0 means full display height
	CaptureWarnStreak int // consecutive capture failures before a warning

	// Recognition service
	OCREndpoint     string
	OCRModel        string
	OCRAPIKey       string
	MaxHashDistance int // pHash distance at or below which frames are treated as identical

	// Persistence and control
	StatePath   string
	CommandPath string
	PIDPath     string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() *Config {
	// .env beside the executable, then TRACKER_ENV as an explicit path.
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	return &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8799"),
		PollInterval:        getEnvDuration("POLL_INTERVAL", 400*time.Millisecond),
		RecognitionBudget:   getEnvDuration("RECOGNITION_BUDGET", 0),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.8),
		ConfirmCount:        getEnvInt("CONFIRM_COUNT", 2),
		Cooldown:            getEnvDuration("COOLDOWN", 4*time.Second),
		DisplayIndex:        getEnvInt("DISPLAY_INDEX", 0),
		RegionX:             getEnvInt("REGION_X", 0),
		RegionY:             getEnvInt("REGION_Y", 0),
		RegionWidth:         getEnvInt("REGION_WIDTH", 0),
		RegionHeight:        getEnvInt("REGION_HEIGHT", 0),
		CaptureWarnStreak:   getEnvInt("CAPTURE_WARN_STREAK", 5),
		OCREndpoint:         getEnv("OCR_ENDPOINT", "http://localhost:8643/recognize"),
		OCRModel:            getEnv("OCR_MODEL", ""),
		OCRAPIKey:           getEnv("OCR_API_KEY", ""),
		MaxHashDistance:     getEnvInt("MAX_HASH_DISTANCE", 8),
		StatePath:           getEnv("STATE_PATH", "state.json"),
		CommandPath:         getEnv("COMMAND_PATH", "tracker.cmd"),
		PIDPath:             getEnv("PID_PATH", "tracker.pid"),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "poll interval must be positive, got %v", c.PollInterval)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.ConfirmCount < 1 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "confirm count must be at least 1, got %d", c.ConfirmCount)
	}
	if c.Cooldown < 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "cooldown must not be negative, got %v", c.Cooldown)
	}
	if c.StatePath == "" {
		return apperrors.New(apperrors.CodeConfigInvalid, "state path must not be empty")
	}
	return nil
}

// Budget returns the effective recognition time budget.
func (c *Config) Budget() time.Duration {
	if c.RecognitionBudget > 0 {
		return c.RecognitionBudget
	}
	return c.PollInterval
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}
	if alt := os.Getenv("TRACKER_ENV"); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
