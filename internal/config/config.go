package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultSearchURL   = "https://steamcommunity.com/market/search/render"
	DefaultListingsURL = "https://steamcommunity.com/market/listings"
	DefaultHistoryURL  = "https://steamcommunity.com/market/pricehistory"
)

type Config struct {
	GameID            int
	StartIndex        int
	PageSize          int
	HistoryPageSize   int
	RetentionWindow   time.Duration
	SessionCredential string // steamLoginSecure cookie value, passed through untouched
	Currency          int

	Database DatabaseConfig
	Steam    SteamConfig
	Pauses   PauseConfig
	Log      LogConfig

	// StatusAddr enables the status server when non-empty (e.g. ":8080").
	StatusAddr string
}

type DatabaseConfig struct {
	URL             string
	Driver          string // mysql | postgres; inferred from URL when empty
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SteamConfig struct {
	SearchURL   string
	ListingsURL string
	HistoryURL  string
	Timeout     time.Duration
	UserAgent   string
	ProxyURL    string
}

type PauseConfig struct {
	ItemFailure   time.Duration
	BatchFailure  time.Duration
	ReadFailure   time.Duration
	DetailPacing  time.Duration
	HistoryPacing time.Duration
}

type LogConfig struct {
	Level  string
	Format string // text | json
	File   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game_id", 730)
	v.SetDefault("start_index", 0)
	v.SetDefault("page_size", 100)
	v.SetDefault("history_page_size", 100)
	v.SetDefault("retention_window", 30*24*time.Hour)
	v.SetDefault("session_credential", "")
	v.SetDefault("currency", 1)

	v.SetDefault("database_url", "root:root@tcp(127.0.0.1:3306)/steam_market?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database_driver", "")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 2)
	v.SetDefault("db_conn_max_lifetime", time.Hour)

	v.SetDefault("search_url", DefaultSearchURL)
	v.SetDefault("listings_url", DefaultListingsURL)
	v.SetDefault("history_url", DefaultHistoryURL)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("proxy_url", "")

	v.SetDefault("item_failure_pause", 60*time.Second)
	v.SetDefault("batch_failure_pause", 60*time.Second)
	v.SetDefault("read_failure_pause", 5*time.Second)
	v.SetDefault("detail_pacing", 10*time.Second)
	v.SetDefault("history_pacing", 3*time.Second)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")

	v.SetDefault("status_addr", "")
}

// Load reads .env (if present), an optional config.yaml and the process
// environment. Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		GameID:            v.GetInt("game_id"),
		StartIndex:        v.GetInt("start_index"),
		PageSize:          v.GetInt("page_size"),
		HistoryPageSize:   v.GetInt("history_page_size"),
		RetentionWindow:   v.GetDuration("retention_window"),
		SessionCredential: strings.TrimSpace(v.GetString("session_credential")),
		Currency:          v.GetInt("currency"),

		Database: DatabaseConfig{
			URL:             v.GetString("database_url"),
			Driver:          strings.ToLower(v.GetString("database_driver")),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		},
		Steam: SteamConfig{
			SearchURL:   v.GetString("search_url"),
			ListingsURL: v.GetString("listings_url"),
			HistoryURL:  v.GetString("history_url"),
			Timeout:     v.GetDuration("http_timeout"),
			UserAgent:   v.GetString("user_agent"),
			ProxyURL:    v.GetString("proxy_url"),
		},
		Pauses: PauseConfig{
			ItemFailure:   v.GetDuration("item_failure_pause"),
			BatchFailure:  v.GetDuration("batch_failure_pause"),
			ReadFailure:   v.GetDuration("read_failure_pause"),
			DetailPacing:  v.GetDuration("detail_pacing"),
			HistoryPacing: v.GetDuration("history_pacing"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
			File:   v.GetString("log_file"),
		},
		StatusAddr: v.GetString("status_addr"),
	}
}

// Validate checks the values the pipelines rely on. needCredential is set
// when the price history pipeline is going to run.
func (c *Config) Validate(needCredential bool) error {
	var errs []error
	if c.GameID < 0 {
		errs = append(errs, fmt.Errorf("GAME_ID must be non-negative, got %d", c.GameID))
	}
	if c.StartIndex < 0 {
		errs = append(errs, fmt.Errorf("START_INDEX must be non-negative, got %d", c.StartIndex))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize))
	}
	if c.HistoryPageSize <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_PAGE_SIZE must be positive, got %d", c.HistoryPageSize))
	}
	if c.RetentionWindow <= 0 {
		errs = append(errs, fmt.Errorf("RETENTION_WINDOW must be positive, got %s", c.RetentionWindow))
	}
	if needCredential && c.SessionCredential == "" {
		errs = append(errs, errors.New("SESSION_CREDENTIAL is required for price history"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	for name, d := range map[string]time.Duration{
		"ITEM_FAILURE_PAUSE":  c.Pauses.ItemFailure,
		"BATCH_FAILURE_PAUSE": c.Pauses.BatchFailure,
		"READ_FAILURE_PAUSE":  c.Pauses.ReadFailure,
		"DETAIL_PACING":       c.Pauses.DetailPacing,
		"HISTORY_PACING":      c.Pauses.HistoryPacing,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}
