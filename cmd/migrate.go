package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configDir)
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.LoggerWrapper()

	// the sql files are written for postgres
	if cfg.Database.Driver == internal.DriverSQLite {
		cfg.Database.AutoMigrate = true
		db, err := initDB(cfg.Database, lg)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		closeDB(db)
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}

	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	lg.Info("migration finished", "command", command, "dir", migrateDir)
	return nil
}
