package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DataMode selects the backend serving farm data.
type DataMode string

const (
	// ModeRemote reads and writes through the upstream farm REST API.
	ModeRemote DataMode = "remote"
	// ModeTrial keeps everything in a local SQLite file.
	ModeTrial DataMode = "trial"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Data      DataConfig      `yaml:"data"`
	RemoteAPI RemoteAPIConfig `yaml:"remote_api"`
	Trial     TrialConfig     `yaml:"trial"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Reporting ReportingConfig `yaml:"reporting"`
	MongoDB   MongoDBConfig   `yaml:"mongodb"`
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig holds logger options.
type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// DataConfig selects the data backend.
type DataConfig struct {
	Mode DataMode `yaml:"mode"`
}

// RemoteAPIConfig contains the upstream farm API connection settings.
type RemoteAPIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// TrialConfig contains the local trial store settings.
type TrialConfig struct {
	DBPath string `yaml:"db_path"`
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string `yaml:"access_token"`
	PhoneNumberID string `yaml:"phone_number_id"`
	BaseURL       string `yaml:"base_url"`
	APIVersion    string `yaml:"api_version"`
	ManagerID     string `yaml:"manager_id"`
}

// Enabled reports whether notifications should go through WhatsApp.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
}

// Enabled reports whether snapshot rows should be exported to Google Sheets.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string `yaml:"cron_schedule"`
	Timezone     string `yaml:"timezone"`
	ProjectID    string `yaml:"project_id"`
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

// Enabled reports whether the snapshot archive is configured.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// Default returns the configuration used when nothing is provided.
func Default() Config {
	return Config{
		Server:    ServerConfig{Port: "8080"},
		Log:       LogConfig{Level: "info", Format: "json"},
		Data:      DataConfig{Mode: ModeTrial},
		RemoteAPI: RemoteAPIConfig{Timeout: 15 * time.Second},
		Trial:     TrialConfig{DBPath: "nogal-trial.db"},
		WhatsApp: WhatsAppConfig{
			BaseURL:    "https://graph.facebook.com",
			APIVersion: "v20.0",
		},
		Reporting: ReportingConfig{
			CronSchedule: "0 20 * * 5",
			Timezone:     "America/Argentina/Buenos_Aires",
		},
		MongoDB: MongoDBConfig{DBName: "nogal"},
	}
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance. When NOGAL_CONFIG_PATH points to a YAML file
// its values replace the defaults before the environment is applied.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := Default()

	if path := os.Getenv("NOGAL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.Log.Format)
	}

	switch c.Data.Mode {
	case ModeRemote:
		if c.RemoteAPI.BaseURL == "" {
			return errors.New("FARM_API_URL must be provided in remote mode")
		}
		if c.RemoteAPI.Timeout <= 0 {
			return errors.New("FARM_API_TIMEOUT must be positive")
		}
	case ModeTrial:
		if c.Trial.DBPath == "" {
			return errors.New("TRIAL_DB_PATH must be provided in trial mode")
		}
	default:
		return fmt.Errorf("unsupported DATA_MODE %q", c.Data.Mode)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.ManagerID == "":
			return errors.New("WHATSAPP_MANAGER_ID must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	overrideString(&cfg.Server.Port, "APP_PORT")
	overrideString(&cfg.Log.Level, "LOG_LEVEL")
	overrideString(&cfg.Log.Format, "LOG_FORMAT")

	if mode := os.Getenv("DATA_MODE"); mode != "" {
		cfg.Data.Mode = DataMode(mode)
	}

	overrideString(&cfg.RemoteAPI.BaseURL, "FARM_API_URL")
	overrideString(&cfg.RemoteAPI.Token, "FARM_API_TOKEN")
	if raw := os.Getenv("FARM_API_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid FARM_API_TIMEOUT: %w", err)
		}
		cfg.RemoteAPI.Timeout = timeout
	}

	overrideString(&cfg.Trial.DBPath, "TRIAL_DB_PATH")

	overrideString(&cfg.WhatsApp.AccessToken, "WHATSAPP_TOKEN")
	overrideString(&cfg.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	overrideString(&cfg.WhatsApp.BaseURL, "WHATSAPP_BASE_URL")
	overrideString(&cfg.WhatsApp.APIVersion, "WHATSAPP_API_VERSION")
	overrideString(&cfg.WhatsApp.ManagerID, "WHATSAPP_MANAGER_ID")

	overrideString(&cfg.Sheets.CredentialsPath, "GOOGLE_SHEETS_CREDENTIALS_PATH")
	overrideString(&cfg.Sheets.SpreadsheetID, "GOOGLE_SHEET_DATABASE_ID")

	overrideString(&cfg.Reporting.CronSchedule, "REPORT_CRON_SCHEDULE")
	overrideString(&cfg.Reporting.Timezone, "TIMEZONE")
	overrideString(&cfg.Reporting.ProjectID, "REPORT_PROJECT_ID")

	overrideString(&cfg.MongoDB.URI, "MONGODB_URI")
	overrideString(&cfg.MongoDB.DBName, "MONGODB_DB_NAME")

	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func overrideString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
