package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/budget"
	budgetPostgres "github.com/frahmantamala/receipt-ledger/internal/budget/postgres"
	budgetDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/budget"
	expenseDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/receipt-ledger/internal/core/events"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	expensePostgres "github.com/frahmantamala/receipt-ledger/internal/expense/postgres"
	"github.com/frahmantamala/receipt-ledger/internal/media"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedUsername = "demo"

type seedExpense struct {
	daysAgo  int
	merchant string
	amount   string
	category string
	payment  string
}

var seedExpenses = []seedExpense{
	{0, "Blue Bottle Coffee", "6.50", "food", "credit_card"},
	{1, "Uber", "18.20", "transport", "upi"},
	{2, "Whole Foods", "84.13", "food", "debit_card"},
	{4, "City Power", "120.00", "utilities", "debit_card"},
	{6, "AMC Theatres", "32.00", "entertainment", "credit_card"},
	{9, "CVS Pharmacy", "23.47", "healthcare", "cash"},
	{13, "Amazon", "59.99", "shopping", "credit_card"},
	{21, "Coursera", "49.00", "education", "credit_card"},
	{35, "Shell", "45.60", "transport", "cash"},
	{48, "Trader Joe's", "62.35", "food", "debit_card"},
	{75, "Target", "110.42", "shopping", "credit_card"},
	{140, "Delta Air Lines", "389.00", "other", "credit_card"},
}

var seedBudgets = []struct {
	category string
	amount   string
	period   string
}{
	{"food", "300.00", "monthly"},
	{"transport", "40.00", "weekly"},
	{"shopping", "1500.00", "yearly"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample expenses and budgets for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configDir)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database, lg)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer closeDB(db)

		if clearData {
			if err := clearSeedData(db); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing expenses and budgets")
		}

		store, err := media.NewOsStore(cfg.Storage.MediaDir)
		if err != nil {
			log.Fatalf("failed to init media store: %v", err)
		}

		// no ledger subscriber here; run "ledger sync" afterwards to mirror seeded rows
		expenseRepo := expensePostgres.NewExpenseRepository(db)
		expenses := expense.NewService(expenseRepo, receipt.NewExtractor(receipt.Unavailable{}, lg), store, events.NewEventBus(lg), lg)
		budgets := budget.NewService(budgetPostgres.NewBudgetRepository(db), expenseRepo, lg)

		ctx := internal.ContextWithUsername(context.Background(), seedUsername)
		now := time.Now()

		for _, s := range seedExpenses {
			merchant := s.merchant
			amount := decimal.RequireFromString(s.amount)
			date := now.AddDate(0, 0, -s.daysAgo)

			created, err := expenses.CreateExpense(ctx, expense.CreateExpenseDTO{
				MerchantName:  &merchant,
				Amount:        &amount,
				Category:      s.category,
				PaymentMethod: s.payment,
				Date:          &expense.DateInput{Time: date},
			})
			if err != nil {
				log.Fatalf("failed to seed expense %s: %v", s.merchant, err)
			}
			fmt.Printf("Seeded expense #%d: %s %s\n", created.ID, s.merchant, s.amount)
		}

		for _, b := range seedBudgets {
			amount := decimal.RequireFromString(b.amount)
			_, err := budgets.CreateBudget(ctx, budget.CreateBudgetDTO{
				Category: b.category,
				Amount:   &amount,
				Period:   b.period,
			})
			if errors.Is(err, internal.ErrBudgetExists) {
				fmt.Printf("Budget for %s already exists; skipping\n", b.category)
				continue
			}
			if err != nil {
				log.Fatalf("failed to seed budget %s: %v", b.category, err)
			}
			fmt.Printf("Seeded %s budget: %s %s\n", b.period, b.category, b.amount)
		}

		fmt.Println("Sample data seeded for user:", seedUsername)
	},
}

func clearSeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&expenseDatamodel.Expense{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&budgetDatamodel.Budget{}).Error
	})
}
