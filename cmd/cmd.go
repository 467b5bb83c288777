package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	clearData bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "receipt-ledger",
	Short: "Receipt Ledger",
	Long:  `Personal expense tracking with receipt scanning, analytics, budgets and an optional spreadsheet ledger.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	if fromEnvironment() {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		initLogger(cfg)
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("RECEIPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// secrets are usually kept out of config.yml
	if cfg.Receipt.GeminiAPIKey == "" {
		cfg.Receipt.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	initLogger(&cfg)
	return &cfg, nil
}

// fromEnvironment reports whether config comes from environment variables
// only, as in container deployments.
func fromEnvironment() bool {
	return os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true"
}

func initLogger(cfg *internal.Config) {
	logging := cfg.Observability.Logging
	logger.Init(cfg.Env, logging.Level, logging.Format)
	slog.Debug("configuration loaded",
		"env", cfg.Env,
		"db_driver", cfg.Database.Driver,
		"ledger_enabled", cfg.Ledger.Enabled(),
		"receipt_model", cfg.Receipt.Model)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory containing config.yml")
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ledgerCmd)
}
