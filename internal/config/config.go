package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LinkedIn struct {
		BaseURL string `yaml:"base_url" validate:"required,url"`
	} `yaml:"linkedin"`
	Limits struct {
		DailyConnectionLimit int `yaml:"daily_connection_limit" validate:"gt=0"`
		MaxProfilesPerSearch int `yaml:"max_profiles_per_search" validate:"gt=0"`
		MaxSearchPages       int `yaml:"max_search_pages" validate:"gt=0"`
	} `yaml:"limits"`
	Delays struct {
		ConnectionMinMs int `yaml:"connection_min_ms" validate:"gte=0"`
		ConnectionMaxMs int `yaml:"connection_max_ms" validate:"gtefield=ConnectionMinMs"`
		ActionsPerMin   int `yaml:"actions_per_minute" validate:"gt=0"`
	} `yaml:"delays"`
	Checker struct {
		IntervalMinutes int `yaml:"interval_minutes" validate:"gt=0"`
		MaxIterations   int `yaml:"max_iterations" validate:"gt=0"`
	} `yaml:"checker"`
	Stealth struct {
		Headless          bool   `yaml:"headless"`
		UserAgent         string `yaml:"user_agent"`
		ViewportWidthMin  int    `yaml:"viewport_width_min"`
		ViewportWidthMax  int    `yaml:"viewport_width_max"`
		ViewportHeightMin int    `yaml:"viewport_height_min"`
		ViewportHeightMax int    `yaml:"viewport_height_max"`
		ActiveStart       string `yaml:"active_start"`
		ActiveEnd         string `yaml:"active_end"`
	} `yaml:"stealth"`
	Database struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"database"`
	Session struct {
		CookiePath string `yaml:"cookie_path" validate:"required"`
	} `yaml:"session"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	// Credentials come from the environment only, never from the YAML
	// file. Both empty means the manual-login path.
	Credentials Credentials `yaml:"-"`
}

type Credentials struct {
	Email    string `env:"LINKEDIN_EMAIL"`
	Password string `env:"LINKEDIN_PASSWORD"`
}

// envOverrides are the knobs operators commonly flip per run without
// editing the config file.
type envOverrides struct {
	DBPath     string `env:"LINKEDREACH_DB_PATH"`
	LogLevel   string `env:"LINKEDREACH_LOG_LEVEL"`
	Headless   *bool  `env:"LINKEDREACH_HEADLESS"`
	DailyLimit int    `env:"DAILY_CONNECTION_LIMIT"`
	DelayMinMs int    `env:"CONNECTION_DELAY_MIN_MS"`
	DelayMaxMs int    `env:"CONNECTION_DELAY_MAX_MS"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional
	cfg := defaultConfig()
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	var cfg Config
	cfg.LinkedIn.BaseURL = "https://www.linkedin.com"
	cfg.Limits.DailyConnectionLimit = 20
	cfg.Limits.MaxProfilesPerSearch = 100
	cfg.Limits.MaxSearchPages = 10
	cfg.Delays.ConnectionMinMs = 2000
	cfg.Delays.ConnectionMaxMs = 5000
	cfg.Delays.ActionsPerMin = 12
	cfg.Checker.IntervalMinutes = 60
	cfg.Checker.MaxIterations = 24
	cfg.Stealth.Headless = false
	cfg.Stealth.ViewportWidthMin = 1280
	cfg.Stealth.ViewportWidthMax = 1680
	cfg.Stealth.ViewportHeightMin = 720
	cfg.Stealth.ViewportHeightMax = 1050
	cfg.Stealth.ActiveStart = "09:00"
	cfg.Stealth.ActiveEnd = "18:00"
	cfg.Database.Path = "linkedreach.db"
	cfg.Session.CookiePath = ".cache/cookies.json"
	cfg.Logging.Level = "info"
	return cfg
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return err
	}
	if ov.DBPath != "" {
		cfg.Database.Path = ov.DBPath
	}
	if ov.LogLevel != "" {
		cfg.Logging.Level = ov.LogLevel
	}
	if ov.Headless != nil {
		cfg.Stealth.Headless = *ov.Headless
	}
	if ov.DailyLimit > 0 {
		cfg.Limits.DailyConnectionLimit = ov.DailyLimit
	}
	if ov.DelayMinMs > 0 {
		cfg.Delays.ConnectionMinMs = ov.DelayMinMs
	}
	if ov.DelayMaxMs > 0 {
		cfg.Delays.ConnectionMaxMs = ov.DelayMaxMs
	}
	return env.Parse(&cfg.Credentials)
}

// Validate checks structural constraints on a loaded config.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HasCredentials reports whether a credentialed login is possible.
func (c *Config) HasCredentials() bool {
	return c.Credentials.Email != "" && c.Credentials.Password != ""
}
