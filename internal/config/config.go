package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const secretPath = "/run/secrets/telegram_bot_token"

type Config struct {
	Env           string `yaml:"env" env:"ENV" env-default:"local"`
	TelegramToken string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	DBPath        string `yaml:"db_path" env:"DB_PATH" env-default:"/root/data/bot.db"`
	Timezone      string `yaml:"timezone" env:"TIMEZONE" env-default:"Europe/Moscow"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`

	Sheet     Sheet     `yaml:"sheet"`
	Calendar  Calendar  `yaml:"calendar"`
	Scheduler Scheduler `yaml:"scheduler"`
	Lessons   Lessons   `yaml:"lessons"`
}

type Sheet struct {
	SpreadsheetID string        `yaml:"spreadsheet_id" env:"SPREADSHEET_ID"`
	GID           int64         `yaml:"gid" env:"SHEET_GID" env-default:"0"`
	Credentials   string        `yaml:"credentials" env:"GOOGLE_CREDENTIALS" env-default:"credentials.json"`
	Source        string        `yaml:"source" env:"SHEET_SOURCE" env-default:"api"` // api | xlsx
	ExportURL     string        `yaml:"export_url" env:"SHEET_EXPORT_URL"`
	CacheTTL      time.Duration `yaml:"cache_ttl" env:"SHEET_CACHE_TTL" env-default:"20s"`
}

type Calendar struct {
	ClientID     string `yaml:"client_id" env:"GCAL_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GCAL_CLIENT_SECRET"`
	TokenURL     string `yaml:"token_url" env:"GCAL_TOKEN_URL" env-default:"https://oauth2.googleapis.com/token"`
	RevokeURL    string `yaml:"revoke_url" env:"GCAL_REVOKE_URL" env-default:"https://oauth2.googleapis.com/revoke"`
	// Endpoint overrides the Calendar API base URL.
	Endpoint     string   `yaml:"endpoint" env:"GCAL_ENDPOINT"`
	SkipSubjects []string `yaml:"skip_subjects" env:"CALENDAR_SKIP_SUBJECTS" env-separator:"," env-default:"истор"`
}

type Scheduler struct {
	Tick    time.Duration `yaml:"tick" env:"TICK_INTERVAL" env-default:"30s"`
	Backoff time.Duration `yaml:"backoff" env:"TICK_ERROR_BACKOFF" env-default:"5s"`
	LockTTL time.Duration `yaml:"lock_ttl" env:"LOCK_TTL" env-default:"25s"`
}

type Lessons struct {
	SpecialSubjects  []string `yaml:"special_subjects" env:"SPECIAL_SUBJECTS" env-separator:"," env-default:"истор,англ"`
	RemoteKeywords   []string `yaml:"remote_keywords" env:"REMOTE_KEYWORDS" env-separator:"," env-default:"zoom,зуум"`
	SpecialRoomLabel string   `yaml:"special_room_label" env:"SPECIAL_ROOM_LABEL" env-default:"⚠️ см. прилож."`
}

// Load reads .env, then CONFIG_PATH (yaml) if set, then the environment.
func Load() (*Config, error) {
	const op = "config.Load"

	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if token := secretToken(); token != "" {
		cfg.TelegramToken = token
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad stops the process on a missing or broken setting.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("telegram token not found: neither docker secret nor TELEGRAM_BOT_TOKEN"))
	}
	switch c.Sheet.Source {
	case "api":
		if c.Sheet.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required"))
		}
	case "xlsx":
		if c.Sheet.ExportURL == "" && c.Sheet.SpreadsheetID == "" {
			errs = append(errs, errors.New("SHEET_EXPORT_URL or SPREADSHEET_ID is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SHEET_SOURCE %q", c.Sheet.Source))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.Scheduler.Tick <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// XLSXURL is the xlsx download link of the configured sheet.
func (s Sheet) XLSXURL() string {
	if s.ExportURL != "" {
		return s.ExportURL
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=xlsx&gid=%d", s.SpreadsheetID, s.GID)
}

func secretToken() string {
	data, err := os.ReadFile(secretPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
