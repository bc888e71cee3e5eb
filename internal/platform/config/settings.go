package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration of the server. Values come from the
// defaults, then an optional YAML file, then the environment.
type Settings struct {
	Port      string `yaml:"port" validate:"required,numeric"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`

	StorageDir      string        `yaml:"storage_dir" validate:"required"`
	RetentionHours  int           `yaml:"retention_hours" validate:"min=1"`
	JanitorInterval time.Duration `yaml:"janitor_interval" validate:"min=1s"`
	MaxUploadMB     int           `yaml:"max_upload_mb" validate:"min=1"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute" validate:"min=1"`

	SigningSecret string        `yaml:"signing_secret" validate:"required,min=16"`
	TokenTTL      time.Duration `yaml:"token_ttl" validate:"min=1m"`

	ProviderConcurrency int    `yaml:"provider_concurrency" validate:"min=1,max=64"`
	MaxIterations       int    `yaml:"max_iterations" validate:"min=0,max=16"`
	FFmpegBin           string `yaml:"ffmpeg_bin" validate:"required"`
	FFprobeBin          string `yaml:"ffprobe_bin" validate:"required"`
}

// Retention returns RetentionHours as a duration.
func (s Settings) Retention() time.Duration {
	return time.Duration(s.RetentionHours) * time.Hour
}

// Defaults returns the settings used when nothing is configured. There is no
// default signing secret; it must come from the file or MONTAGE_SIGNING_SECRET.
func Defaults() Settings {
	return Settings{
		Port:                "8080",
		LogLevel:            "info",
		LogFormat:           "json",
		StorageDir:          "storage",
		RetentionHours:      2,
		JanitorInterval:     5 * time.Minute,
		MaxUploadMB:         100,
		RateLimitPerMinute:  6,
		TokenTTL:            20 * time.Minute,
		ProviderConcurrency: 4,
		FFmpegBin:           "ffmpeg",
		FFprobeBin:          "ffprobe",
	}
}

// LoadSettings builds Settings from the defaults, the YAML file at path (if
// path is not empty) and the environment, and validates the result.
func LoadSettings(path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	s = s.withEnv()
	if err := validator.New().Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func (s Settings) withEnv() Settings {
	s.Port = GetEnv("PORT", s.Port)
	s.LogLevel = GetEnv("LOG_LEVEL", s.LogLevel)
	s.LogFormat = GetEnv("LOG_FORMAT", s.LogFormat)
	s.StorageDir = GetEnv("MONTAGE_STORAGE_DIR", s.StorageDir)
	s.RetentionHours = GetEnvInt("MONTAGE_RETENTION_HOURS", s.RetentionHours)
	s.JanitorInterval = GetEnvDuration("MONTAGE_JANITOR_INTERVAL", s.JanitorInterval)
	s.MaxUploadMB = GetEnvInt("MONTAGE_MAX_UPLOAD_MB", s.MaxUploadMB)
	s.RateLimitPerMinute = GetEnvInt("MONTAGE_RATE_LIMIT", s.RateLimitPerMinute)
	s.SigningSecret = GetEnv("MONTAGE_SIGNING_SECRET", s.SigningSecret)
	s.TokenTTL = GetEnvDuration("MONTAGE_TOKEN_TTL", s.TokenTTL)
	s.ProviderConcurrency = GetEnvInt("MONTAGE_PROVIDER_CONCURRENCY", s.ProviderConcurrency)
	s.MaxIterations = GetEnvInt("MONTAGE_MAX_ITERATIONS", s.MaxIterations)
	s.FFmpegBin = GetEnv("FFMPEG_BIN", s.FFmpegBin)
	s.FFprobeBin = GetEnv("FFPROBE_BIN", s.FFprobeBin)
	return s
}
