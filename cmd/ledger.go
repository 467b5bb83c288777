package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/receipt-ledger/internal/expense"
	expensePostgres "github.com/frahmantamala/receipt-ledger/internal/expense/postgres"
	"github.com/frahmantamala/receipt-ledger/internal/ledger"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
	"github.com/spf13/cobra"
)

const ledgerSyncPageSize = 100

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Spreadsheet ledger commands",
	Long:  `Push expenses to the configured Google Sheets ledger outside the request path.`,
}

var ledgerPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Write one expense to the ledger",
	Long:  `Update the ledger row for an expense, appending it when the ledger has no row for it yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(ctx context.Context, repo *expensePostgres.ExpenseRepository, mirror ledger.Mirror) error {
			e, err := repo.GetByID(ctx, ledgerExpenseID)
			if err != nil {
				return fmt.Errorf("load expense %d: %w", ledgerExpenseID, err)
			}
			if !ledger.Push(ctx, mirror, e.ID, ledger.Row(e.LedgerRow())) {
				return fmt.Errorf("expense %d was not written to the ledger", e.ID)
			}
			fmt.Printf("Pushed expense #%d to the ledger\n", e.ID)
			return nil
		})
	},
}

var ledgerSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Write every expense to the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(ctx context.Context, repo *expensePostgres.ExpenseRepository, mirror ledger.Mirror) error {
			var pushed, failed int
			for offset := 0; ; offset += ledgerSyncPageSize {
				page, err := repo.List(ctx, expense.Filter{Username: ledgerUsername}, ledgerSyncPageSize, offset)
				if err != nil {
					return fmt.Errorf("list expenses: %w", err)
				}
				for _, e := range page {
					if ledger.Push(ctx, mirror, e.ID, ledger.Row(e.LedgerRow())) {
						pushed++
					} else {
						failed++
					}
				}
				if len(page) < ledgerSyncPageSize {
					break
				}
			}
			fmt.Printf("Ledger sync finished: %d pushed, %d failed\n", pushed, failed)
			return nil
		})
	},
}

var (
	ledgerExpenseID int64
	ledgerUsername  string
)

var errLedgerDisabled = errors.New("ledger is not configured: set ledger.credentials_file and ledger.spreadsheet_id")

func withLedger(ctx context.Context, fn func(context.Context, *expensePostgres.ExpenseRepository, ledger.Mirror) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lg := logger.LoggerWrapper()

	mirror := ledger.New(ctx, cfg.Ledger, lg)
	if _, disabled := mirror.(ledger.Disabled); disabled {
		return errLedgerDisabled
	}

	db, err := initDB(cfg.Database, lg)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer closeDB(db)

	return fn(ctx, expensePostgres.NewExpenseRepository(db), mirror)
}

func init() {
	ledgerPushCmd.Flags().Int64Var(&ledgerExpenseID, "id", 0, "expense id to push")
	_ = ledgerPushCmd.MarkFlagRequired("id")
	ledgerSyncCmd.Flags().StringVar(&ledgerUsername, "username", "", "only sync expenses owned by this username")

	ledgerCmd.AddCommand(ledgerPushCmd)
	ledgerCmd.AddCommand(ledgerSyncCmd)
}
