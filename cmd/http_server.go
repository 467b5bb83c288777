package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/analytics"
	"github.com/frahmantamala/receipt-ledger/internal/budget"
	budgetPostgres "github.com/frahmantamala/receipt-ledger/internal/budget/postgres"
	"github.com/frahmantamala/receipt-ledger/internal/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/events"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	expensePostgres "github.com/frahmantamala/receipt-ledger/internal/expense/postgres"
	"github.com/frahmantamala/receipt-ledger/internal/ledger"
	"github.com/frahmantamala/receipt-ledger/internal/media"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
	"github.com/frahmantamala/receipt-ledger/internal/receipt/gemini"
	"github.com/frahmantamala/receipt-ledger/internal/transport"
	"github.com/frahmantamala/receipt-ledger/internal/transport/rest"
	"github.com/frahmantamala/receipt-ledger/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Events   *events.EventBus
	Handlers rest.Handlers
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// flush pending ledger writes
		if err := deps.Events.Close(ctx); err != nil {
			deps.Logger.Warn("Event handlers did not finish", "error", err)
		}
		closeDB(deps.DB)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	sqlDB, err := deps.DB.DB()
	if err != nil {
		return err
	}
	rest.RegisterAllRoutes(deps.Router, sqlDB, deps.Handlers, deps.Config.Server.AllowedOrigins, deps.Logger)
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := media.NewOsStore(config.Storage.MediaDir)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	eventBus := events.NewEventBus(lg)
	mirror := ledger.New(ctx, config.Ledger, lg)
	ledger.NewSubscriber(mirror, lg).Register(eventBus)
	_, ledgerOff := mirror.(ledger.Disabled)

	extractor, scanning := newReceiptExtractor(ctx, config.Receipt, lg)

	expenseRepo := expensePostgres.NewExpenseRepository(db)
	expenseService := expense.NewService(expenseRepo, extractor, store, eventBus, lg)

	return &Dependencies{
		Config: config,
		DB:     db,
		Router: chi.NewRouter(),
		Logger: lg,
		Events: eventBus,
		Handlers: rest.Handlers{
			Expense:   expense.NewHandler(expenseService, store, config.Receipt.MaxUploadMB<<20),
			Analytics: analytics.NewHandler(analytics.NewService(expenseRepo, lg)),
			Budget:    budget.NewHandler(budget.NewService(budgetPostgres.NewBudgetRepository(db), expenseRepo, lg)),
			Category:  category.NewHandler(transport.NewBaseHandler(lg), category.NewService(lg)),
			Features: map[string]bool{
				"receipt_scanning": scanning,
				"ledger_sync":      !ledgerOff,
			},
		},
	}, nil
}

// newReceiptExtractor uses receipt.Unavailable when no Gemini client can be
// built. Scans then fail with a 502 and the second result is false.
func newReceiptExtractor(ctx context.Context, cfg internal.ReceiptConfig, lg *slog.Logger) (*receipt.Extractor, bool) {
	var generator receipt.Generator = receipt.Unavailable{}
	enabled := false

	client, err := gemini.New(ctx, cfg, lg)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		lg.Warn("receipt scanning disabled: gemini api key is not set")
	case err != nil:
		lg.Error("receipt scanning disabled: failed to create gemini client", "error", err)
	default:
		generator = client
		enabled = true
	}

	return receipt.NewExtractor(generator, lg), enabled
}
