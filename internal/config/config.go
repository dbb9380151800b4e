package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/contact-sync/pkg/sevdesk"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	SevDesk SevDeskConfig `yaml:"sevdesk" mapstructure:"sevdesk"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Push    PushConfig    `yaml:"push" mapstructure:"push"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// SevDeskConfig holds sevDesk API credentials and request tuning.
type SevDeskConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	AuthMode          string  `yaml:"auth_mode" mapstructure:"auth_mode"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit         float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	ContactCategoryID string  `yaml:"contact_category_id" mapstructure:"contact_category_id"`
	EmailKeyID        string  `yaml:"email_key_id" mapstructure:"email_key_id"`
}

// ClientConfig converts the settings into a sevdesk.Config.
func (c SevDeskConfig) ClientConfig() sevdesk.Config {
	return sevdesk.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		AuthMode:          sevdesk.AuthMode(strings.ToLower(c.AuthMode)),
		Timeout:           time.Duration(c.TimeoutSecs) * time.Second,
		ContactCategoryID: c.ContactCategoryID,
		EmailKeyID:        c.EmailKeyID,
	}
}

// SyncConfig configures the remote to local pull.
type SyncConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
}

// PushConfig configures the local to remote push.
type PushConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Scope names the parts of the configuration a command depends on.
type Scope int

const (
	ScopeStore Scope = 1 << iota
	ScopeSevDesk
)

// DefaultSQLitePath is where the SQLite database lives when no
// database_url is configured.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, "contact-sync", "contacts.db")
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTACTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("sevdesk.api_key", "")
	v.SetDefault("sevdesk.base_url", "https://my.sevdesk.de/api/v1")
	v.SetDefault("sevdesk.auth_mode", "header")
	v.SetDefault("sevdesk.timeout_secs", 20)
	v.SetDefault("sevdesk.rate_limit", 10)
	v.SetDefault("sevdesk.max_retries", 3)
	v.SetDefault("sevdesk.contact_category_id", "3")
	v.SetDefault("sevdesk.email_key_id", "2")
	v.SetDefault("sync.page_size", 100)
	v.SetDefault("sync.max_pages", 50)
	v.SetDefault("push.limit", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding ones already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return eris.Wrapf(godotenv.Load(path), "config: load %s", path)
}

// Validate checks the settings the given scope needs and fills derived
// defaults such as the SQLite path.
func (c *Config) Validate(scope Scope) error {
	if scope&ScopeStore != 0 {
		c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.DatabaseURL == "" {
				c.Store.DatabaseURL = DefaultSQLitePath()
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				return eris.New("config: store.database_url is required for the postgres driver (CONTACTSYNC_STORE_DATABASE_URL)")
			}
		default:
			return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
		}
	}

	if scope&ScopeSevDesk != 0 {
		if strings.TrimSpace(c.SevDesk.APIKey) == "" {
			return eris.New("config: sevdesk.api_key is required (CONTACTSYNC_SEVDESK_API_KEY)")
		}
		switch sevdesk.AuthMode(strings.ToLower(c.SevDesk.AuthMode)) {
		case "", sevdesk.AuthHeader, sevdesk.AuthQuery:
		default:
			return eris.Errorf("config: sevdesk.auth_mode must be header or query, got %q", c.SevDesk.AuthMode)
		}
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
