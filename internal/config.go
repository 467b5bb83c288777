package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Receipt       ReceiptConfig       `mapstructure:"receipt"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	Storage       StorageConfig       `mapstructure:"storage"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReceiptConfig configures the multimodal model used to read receipt images.
type ReceiptConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// LedgerConfig configures the spreadsheet mirror. An empty CredentialsFile
// leaves the mirror disabled.
type LedgerConfig struct {
	CredentialsFile string        `mapstructure:"credentials_file"`
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	Worksheet       string        `mapstructure:"worksheet"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	MediaDir string `mapstructure:"media_dir"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 90*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", DriverPostgres),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Receipt: ReceiptConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:      getEnvAsDuration("GEMINI_TIMEOUT", 60*time.Second),
			MaxUploadMB:  int64(getEnvAsInt("RECEIPT_MAX_UPLOAD_MB", 10)),
		},
		Ledger: LedgerConfig{
			CredentialsFile: getEnv("GOOGLE_SHEETS_CREDENTIALS_FILE", ""),
			SpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
			Worksheet:       getEnv("GOOGLE_SHEET_NAME", "Expenses"),
			Timeout:         getEnvAsDuration("GOOGLE_SHEETS_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			MediaDir: getEnv("MEDIA_DIR", "media"),
		},
	}
	return cfg
}

// ApplyDefaults fills zero values left by a partial config.yml.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
	if c.Receipt.Model == "" {
		c.Receipt.Model = "gemini-2.5-flash"
	}
	if c.Receipt.Timeout <= 0 {
		c.Receipt.Timeout = 60 * time.Second
	}
	if c.Receipt.MaxUploadMB <= 0 {
		c.Receipt.MaxUploadMB = 10
	}
	if c.Ledger.Worksheet == "" {
		c.Ledger.Worksheet = "Expenses"
	}
	if c.Ledger.Timeout <= 0 {
		c.Ledger.Timeout = 15 * time.Second
	}
	if c.Storage.MediaDir == "" {
		c.Storage.MediaDir = "media"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Receipt.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("receipt config: %v", err))
	}

	if err := c.Ledger.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("ledger config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Driver != DriverPostgres && c.Driver != DriverSQLite {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q", c.Level)
	}
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format %q", c.Format)
	}
	return nil
}

func (c *ReceiptConfig) Validate() error {
	if c.MaxUploadMB > 50 {
		return errors.New("max_upload_mb cannot exceed 50")
	}
	return nil
}

func (c *LedgerConfig) Validate() error {
	if c.CredentialsFile != "" && c.SpreadsheetID == "" {
		return errors.New("spreadsheet_id is required when credentials_file is set")
	}
	return nil
}

// Enabled reports whether the spreadsheet mirror has enough configuration to start.
func (c *LedgerConfig) Enabled() bool {
	return c.CredentialsFile != "" && c.SpreadsheetID != ""
}
