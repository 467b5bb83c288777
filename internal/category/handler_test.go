package category_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/receipt-ledger/internal/category"
	"github.com/frahmantamala/receipt-ledger/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Category Handler", func() {
	var (
		handler *category.Handler
		slogger *slog.Logger
	)

	BeforeEach(func() {
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := category.NewService(slogger)
		baseHandler := &transport.BaseHandler{Logger: slogger}
		handler = category.NewHandler(baseHandler, service)
	})

	Describe("GetCategories", func() {
		It("should list every category and payment method with labels", func() {
			req := httptest.NewRequest(http.MethodGet, "/categories", nil)
			w := httptest.NewRecorder()

			handler.GetCategories(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var response category.CatalogResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &response)).To(Succeed())

			Expect(response.Categories).To(HaveLen(8))
			Expect(response.Categories[0]).To(Equal(category.Option{Value: "food", Label: "Food & Dining"}))
			Expect(response.Categories[7]).To(Equal(category.Option{Value: "other", Label: "Other"}))

			Expect(response.PaymentMethods).To(HaveLen(5))
			Expect(response.PaymentMethods).To(ContainElement(category.Option{Value: "credit_card", Label: "Credit Card"}))
			Expect(response.PaymentMethods).To(ContainElement(category.Option{Value: "upi", Label: "UPI"}))
		})

		It("should use the JSON field names clients expect", func() {
			req := httptest.NewRequest(http.MethodGet, "/categories", nil)
			w := httptest.NewRecorder()

			handler.GetCategories(w, req)

			var raw map[string][]map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &raw)).To(Succeed())
			Expect(raw).To(HaveKey("categories"))
			Expect(raw).To(HaveKey("payment_methods"))
			Expect(raw["categories"][1]).To(Equal(map[string]string{"value": "transport", "label": "Transportation"}))
		})
	})
})
