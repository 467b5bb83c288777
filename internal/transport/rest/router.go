package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/receipt-ledger/api"
	"github.com/frahmantamala/receipt-ledger/internal/analytics"
	"github.com/frahmantamala/receipt-ledger/internal/budget"
	"github.com/frahmantamala/receipt-ledger/internal/category"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	"github.com/frahmantamala/receipt-ledger/internal/transport/middleware"
	"github.com/frahmantamala/receipt-ledger/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the feature handlers mounted under /api/v1. Nil handlers
// are skipped.
type Handlers struct {
	Expense   *expense.Handler
	Analytics *analytics.Handler
	Budget    *budget.Handler
	Category  *category.Handler

	// Features is reported by /health, keyed by integration name.
	Features map[string]bool
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, handlers.Features)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get(swagger.SpecURL, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI servers
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if handlers.Category != nil {
			r.Get("/categories", handlers.Category.GetCategories)
		}

		r.Group(func(ur chi.Router) {
			ur.Use(middleware.Username)

			ur.Route("/expenses", func(er chi.Router) {
				if handlers.Analytics != nil {
					er.Get("/analytics", handlers.Analytics.Analytics) // GET /expenses/analytics
					er.Get("/summary", handlers.Analytics.Summary)     // GET /expenses/summary
				}

				if handlers.Expense != nil {
					er.Get("/", handlers.Expense.ListExpenses)             // GET /expenses
					er.Post("/", handlers.Expense.CreateExpense)           // POST /expenses
					er.Get("/export", handlers.Expense.ExportExpenses)     // GET /expenses/export
					er.Post("/scan_receipt", handlers.Expense.ScanReceipt) // POST /expenses/scan_receipt
					er.Get("/{id}", handlers.Expense.GetExpense)           // GET /expenses/:id
					er.Put("/{id}", handlers.Expense.UpdateExpense)        // PUT /expenses/:id
					er.Patch("/{id}", handlers.Expense.UpdateExpense)      // PATCH /expenses/:id
					er.Delete("/{id}", handlers.Expense.DeleteExpense)     // DELETE /expenses/:id
				}
			})

			if handlers.Budget != nil {
				ur.Route("/budgets", func(br chi.Router) {
					br.Get("/", handlers.Budget.ListBudgets)
					br.Post("/", handlers.Budget.CreateBudget)
					br.Get("/status", handlers.Budget.Status)
					br.Get("/{id}", handlers.Budget.GetBudget)
					br.Put("/{id}", handlers.Budget.UpdateBudget)
					br.Patch("/{id}", handlers.Budget.UpdateBudget)
					br.Delete("/{id}", handlers.Budget.DeleteBudget)
				})
			}
		})
	})
}
