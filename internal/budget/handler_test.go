package budget_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/budget"
	budgetPostgres "github.com/frahmantamala/receipt-ledger/internal/budget/postgres"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	expensePostgres "github.com/frahmantamala/receipt-ledger/internal/expense/postgres"
)

var _ = Describe("Budget Handler", func() {
	var (
		db       *gorm.DB
		expenses *expensePostgres.ExpenseRepository
		router   *chi.Mux
	)

	serve := func(method, target, body, username string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
		}
		if username != "" {
			req.Header.Set("X-Username", username)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) map[string]interface{} {
		var body struct {
			Error map[string]interface{} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body.Error
	}

	create := func(body, username string) budget.Budget {
		w := serve(http.MethodPost, "/budgets", body, username)
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created budget.Budget
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		return created
	}

	BeforeEach(func() {
		db = openTestDB()
		expenses = expensePostgres.NewExpenseRepository(db)
		service := budget.NewService(budgetPostgres.NewBudgetRepository(db), expenses, testLogger)
		handler := budget.NewHandler(service)
		handler.Logger = testLogger

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := errs.ContextWithUsername(r.Context(), r.Header.Get("X-Username"))
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Get("/budgets", handler.ListBudgets)
		router.Post("/budgets", handler.CreateBudget)
		router.Get("/budgets/status", handler.Status)
		router.Get("/budgets/{id}", handler.GetBudget)
		router.Put("/budgets/{id}", handler.UpdateBudget)
		router.Patch("/budgets/{id}", handler.UpdateBudget)
		router.Delete("/budgets/{id}", handler.DeleteBudget)
	})

	AfterEach(func() {
		closeTestDB(db)
	})

	Describe("POST /budgets", func() {
		It("should create a budget", func() {
			created := create(`{"category":"food","amount":"120.00","period":"weekly"}`, "dana")
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(*created.Username).To(Equal("dana"))
			Expect(created.Period).To(Equal(budget.Weekly))
		})

		It("should return 409 for a duplicate category", func() {
			create(`{"category":"food","amount":"120.00"}`, "dana")

			w := serve(http.MethodPost, "/budgets", `{"category":"food","amount":"80.00"}`, "dana")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(decodeError(w)["code"]).To(Equal("BUDGET_EXISTS"))
		})

		It("should return 400 for an amount with an extreme exponent", func(ctx SpecContext) {
			w := serve(http.MethodPost, "/budgets", `{"category":"food","amount":1e2000000000}`, "dana")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w)["details"]).To(HaveKeyWithValue("errors", ContainElement(HaveKeyWithValue("code", "INVALID_AMOUNT"))))
		}, SpecTimeout(5*time.Second))

		It("should return 400 for an invalid period", func() {
			w := serve(http.MethodPost, "/budgets", `{"category":"food","amount":"1","period":"hourly"}`, "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(w)["type"]).To(Equal("VALIDATION_ERROR"))
		})
	})

	Describe("GET /budgets", func() {
		It("should filter by the username query parameter", func() {
			create(`{"category":"food","amount":"1"}`, "dana")
			create(`{"category":"food","amount":"2"}`, "erin")

			w := serve(http.MethodGet, "/budgets?username=erin", "", "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var budgets []budget.Budget
			Expect(json.NewDecoder(w.Body).Decode(&budgets)).To(Succeed())
			Expect(budgets).To(HaveLen(1))
			Expect(*budgets[0].Username).To(Equal("erin"))
		})
	})

	Describe("GET /budgets/{id}", func() {
		It("should return 404 for a missing budget", func() {
			w := serve(http.MethodGet, "/budgets/9", "", "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(w)["code"]).To(Equal("BUDGET_NOT_FOUND"))
		})
	})

	Describe("PUT and PATCH /budgets/{id}", func() {
		It("should update the amount", func() {
			created := create(`{"category":"food","amount":"10"}`, "dana")
			id := strconv.FormatInt(created.ID, 10)

			w := serve(http.MethodPatch, "/budgets/"+id, `{"amount":"25.50"}`, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var updated budget.Budget
			Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
			Expect(updated.Amount.StringFixed(2)).To(Equal("25.50"))
			Expect(updated.Category).To(Equal("food"))

			w = serve(http.MethodPut, "/budgets/"+id, `{"period":"yearly"}`, "")
			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("DELETE /budgets/{id}", func() {
		It("should delete and then report not found", func() {
			created := create(`{"category":"food","amount":"10"}`, "dana")
			id := strconv.FormatInt(created.ID, 10)

			Expect(serve(http.MethodDelete, "/budgets/"+id, "", "").Code).To(Equal(http.StatusNoContent))
			Expect(serve(http.MethodDelete, "/budgets/"+id, "", "").Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /budgets/status", func() {
		It("should report spending against each budget", func() {
			create(`{"category":"food","amount":"50.00","period":"monthly"}`, "dana")
			Expect(expenses.Create(context.Background(), &expense.Expense{
				Amount:        decimal.RequireFromString("75.00"),
				Currency:      "USD",
				Category:      category.Food,
				PaymentMethod: payment.Cash,
				Date:          time.Now().Add(-time.Hour),
			})).To(Succeed())

			w := serve(http.MethodGet, "/budgets/status", "", "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var statuses []map[string]interface{}
			Expect(json.NewDecoder(w.Body).Decode(&statuses)).To(Succeed())
			Expect(statuses).To(HaveLen(1))
			Expect(statuses[0]["spent"]).To(Equal(75.0))
			Expect(statuses[0]["remaining"]).To(Equal(-25.0))
			Expect(statuses[0]["percentage"]).To(Equal(150.0))
			Expect(statuses[0]["is_exceeded"]).To(BeTrue())
			Expect(statuses[0]["period"]).To(Equal("monthly"))
		})
	})
})
