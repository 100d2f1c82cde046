package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Cache      CacheConfig      `yaml:"cache"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Backup     BackupConfig     `yaml:"backup"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Broker     BrokerConfig     `yaml:"broker"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type DatabaseConfig struct {
	Driver string      `yaml:"driver"`
	Path   string      `yaml:"path"`
	Mongo  MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

// APIAuthConfig guards the partner gRPC channel with static API keys.
type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// WritesPerMinute caps booking and review mutations per authenticated user.
	WritesPerMinute int `yaml:"writes_per_minute"`
}

// AuthConfig configures end-user authentication.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type PricingConfig struct {
	Seasons []SeasonConfig `yaml:"seasons"`
}

// SeasonConfig scales the nightly rate between two month-day bounds
// (inclusive, "MM-DD"). Ranges may wrap the new year.
type SeasonConfig struct {
	Name       string  `yaml:"name"`
	Start      string  `yaml:"start"`
	End        string  `yaml:"end"`
	Multiplier float64 `yaml:"multiplier"`
}

type CacheConfig struct {
	PropertyTTL     time.Duration `yaml:"property_ttl"`
	PropertyMaxSize int64         `yaml:"property_max_size"`
}

type SchedulerConfig struct {
	Enabled                 bool          `yaml:"enabled"`
	CompletionSweepInterval time.Duration `yaml:"completion_sweep_interval"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
}

type BrokerConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type ExportConfig struct {
	MaxRangeDays int `yaml:"max_range_days"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverMongo:
		if c.Database.Mongo.URI == "" {
			return errors.New("database.mongo.uri is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("auth jwt_secret is required")
	}

	return ValidateSeasons(c.Pricing.Seasons)
}

func ValidateSeasons(seasons []SeasonConfig) error {
	for _, s := range seasons {
		if _, err := time.Parse("01-02", s.Start); err != nil {
			return fmt.Errorf("season %q: invalid start %q", s.Name, s.Start)
		}
		if _, err := time.Parse("01-02", s.End); err != nil {
			return fmt.Errorf("season %q: invalid end %q", s.Name, s.End)
		}
		if s.Multiplier <= 0 {
			return fmt.Errorf("season %q: multiplier must be positive", s.Name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Mongo.Database == "" {
		c.Database.Mongo.Database = "holidayrent"
	}
	if c.Database.Mongo.ConnectTimeout == 0 {
		c.Database.Mongo.ConnectTimeout = 10 * time.Second
	}

	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}

	if c.Cache.PropertyTTL == 0 {
		c.Cache.PropertyTTL = 5 * time.Minute
	}
	if c.Cache.PropertyMaxSize == 0 {
		c.Cache.PropertyMaxSize = 1000
	}
	if c.Scheduler.CompletionSweepInterval == 0 {
		c.Scheduler.CompletionSweepInterval = time.Hour
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "holidayrent.events"
	}
	if c.Exports.MaxRangeDays == 0 {
		c.Exports.MaxRangeDays = 366
	}
}
