package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	"github.com/frahmantamala/receipt-ledger/internal/media"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
)

func multipartBody(field, filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Expense Handler", func() {
	var (
		mockRepo  *mockExpenseRepository
		extractor *fakeExtractor
		fs        afero.Fs
		store     *media.Store
		handler   *expense.Handler
		router    *chi.Mux
	)

	tmpFiles := func() []string {
		entries, err := afero.ReadDir(fs, "/media/tmp")
		Expect(err).NotTo(HaveOccurred())
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return names
	}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
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

	BeforeEach(func() {
		var err error
		mockRepo = newMockExpenseRepository()
		extractor = &fakeExtractor{}
		fs = afero.NewMemMapFs()
		store, err = media.NewStore(fs, "/media")
		Expect(err).NotTo(HaveOccurred())

		service := expense.NewService(mockRepo, extractor, store, &recordingPublisher{}, testLogger)
		handler = expense.NewHandler(service, store, 1<<20)
		handler.Logger = testLogger

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := errs.ContextWithUsername(r.Context(), r.Header.Get("X-Username"))
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Get("/expenses", handler.ListExpenses)
		router.Post("/expenses", handler.CreateExpense)
		router.Get("/expenses/export", handler.ExportExpenses)
		router.Post("/expenses/scan_receipt", handler.ScanReceipt)
		router.Get("/expenses/{id}", handler.GetExpense)
		router.Patch("/expenses/{id}", handler.UpdateExpense)
		router.Delete("/expenses/{id}", handler.DeleteExpense)
	})

	Describe("POST /expenses", func() {
		It("should create an expense", func() {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":"19.99","category":"food","date":"2024-05-01"}`))
			req.Header.Set("X-Username", "carol")

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			var created expense.Expense
			Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
			Expect(created.Amount.StringFixed(2)).To(Equal("19.99"))
			Expect(*created.Username).To(Equal("carol"))
			Expect(created.Date.Format("2006-01-02")).To(Equal("2024-05-01"))
		})

		It("should reject malformed JSON", func() {
			w := serve(httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":`)))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject amounts with extreme exponents", func(ctx SpecContext) {
			for _, amount := range []string{"1e2000000000", "1e-2000000000"} {
				w := serve(httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":`+amount+`}`)))
				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(decodeError(w)["type"]).To(Equal("VALIDATION_ERROR"))
			}
		}, SpecTimeout(5*time.Second))

		It("should report validation errors with details", func() {
			w := serve(httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"currency":"usd"}`)))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			body := decodeError(w)
			Expect(body["type"]).To(Equal("VALIDATION_ERROR"))
			Expect(body["details"]).NotTo(BeNil())
		})
	})

	Describe("GET /expenses/{id}", func() {
		It("should return 404 for missing expenses", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/expenses/77", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(decodeError(w)["code"]).To(Equal("EXPENSE_NOT_FOUND"))
		})

		It("should return 400 for a non-numeric id", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/expenses/abc", nil))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PATCH and DELETE /expenses/{id}", func() {
		var id string

		BeforeEach(func() {
			w := serve(httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":"10.00","merchant_name":"Shop"}`)))
			Expect(w.Code).To(Equal(http.StatusCreated))
			var created expense.Expense
			Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
			id = strconv.FormatInt(created.ID, 10)
		})

		It("should partially update", func() {
			w := serve(httptest.NewRequest(http.MethodPatch, "/expenses/"+id, strings.NewReader(`{"tip":"2.00"}`)))

			Expect(w.Code).To(Equal(http.StatusOK))
			var updated expense.Expense
			Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
			Expect(updated.Tip.StringFixed(2)).To(Equal("2.00"))
			Expect(*updated.MerchantName).To(Equal("Shop"))
		})

		It("should delete with 204", func() {
			w := serve(httptest.NewRequest(http.MethodDelete, "/expenses/"+id, nil))
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(mockRepo.expenses).To(BeEmpty())
		})
	})

	Describe("GET /expenses", func() {
		It("should paginate and report totals", func() {
			for i := 0; i < 3; i++ {
				w := serve(httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":"1.00"}`)))
				Expect(w.Code).To(Equal(http.StatusCreated))
			}

			w := serve(httptest.NewRequest(http.MethodGet, "/expenses?limit=2&offset=0", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			var result expense.ListExpensesResult
			Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
			Expect(result.Expenses).To(HaveLen(2))
			Expect(result.Total).To(Equal(int64(3)))
			Expect(result.Limit).To(Equal(2))
		})

		It("should reject malformed dates", func() {
			w := serve(httptest.NewRequest(http.MethodGet, "/expenses?from=yesterday", nil))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /expenses/scan_receipt", func() {
		It("should reject a non-image upload before extraction", func() {
			body, contentType := multipartBody("receipt_image", "notes.txt", []byte("just some text"))
			req := httptest.NewRequest(http.MethodPost, "/expenses/scan_receipt", body)
			req.Header.Set("Content-Type", contentType)

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(extractor.calls).To(BeZero())
			Expect(mockRepo.expenses).To(BeEmpty())
			Expect(tmpFiles()).To(BeEmpty())
		})

		It("should reject a request without the image field", func() {
			body, contentType := multipartBody("other", "r.png", pngHeader)
			req := httptest.NewRequest(http.MethodPost, "/expenses/scan_receipt", body)
			req.Header.Set("Content-Type", contentType)

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(extractor.calls).To(BeZero())
		})

		It("should return 502 when extraction fails and release the upload", func() {
			extractor.result = receipt.Result{Error: "quota exceeded"}
			body, contentType := multipartBody("receipt_image", "r.png", pngHeader)
			req := httptest.NewRequest(http.MethodPost, "/expenses/scan_receipt", body)
			req.Header.Set("Content-Type", contentType)

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusBadGateway))
			Expect(decodeError(w)["code"]).To(Equal("EXTRACTION_FAILED"))
			Expect(mockRepo.expenses).To(BeEmpty())
			Expect(tmpFiles()).To(BeEmpty())
		})

		It("should create an expense from the receipt", func() {
			fields := receipt.Normalize(map[string]any{"merchant_name": "Deli", "amount": "9.50"})
			extractor.result = receipt.Result{Success: true, Data: &fields}
			body, contentType := multipartBody("receipt_image", "r.png", pngHeader)
			req := httptest.NewRequest(http.MethodPost, "/expenses/scan_receipt", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("X-Username", "dave")

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			var result map[string]interface{}
			Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
			Expect(result["message"]).To(Equal("Receipt scanned successfully"))
			Expect(result).To(HaveKey("extracted_data"))
			Expect(result).To(HaveKey("raw_text"))
			exp := result["expense"].(map[string]interface{})
			Expect(exp["username"]).To(Equal("dave"))
			Expect(exp["merchant_name"]).To(Equal("Deli"))
			Expect(mockRepo.expenses).To(HaveLen(1))
			Expect(tmpFiles()).To(BeEmpty())
		})
	})

	Describe("GET /expenses/export", func() {
		It("should stream an xlsx workbook with a header and one row per expense", func() {
			for _, amount := range []string{"1.00", "2.50"} {
				_, err := expense.NewService(mockRepo, extractor, store, nil, testLogger).
					CreateExpense(context.Background(), expense.CreateExpenseDTO{Amount: decimalPtr(amount)})
				Expect(err).NotTo(HaveOccurred())
			}

			w := serve(httptest.NewRequest(http.MethodGet, "/expenses/export", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))

			f, err := excelize.OpenReader(w.Body)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows(expense.ExportSheetName)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0]).To(Equal(expense.LedgerHeaders))
			Expect(rows[1][3]).To(Equal("2.50"))
			Expect(rows[2][3]).To(Equal("1.00"))
		})
	})
})

var _ = Describe("ResolveReceiptDate", func() {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	It("parses YYYY-MM-DD as local midnight", func() {
		d := "2023-12-25"
		Expect(expense.ResolveReceiptDate(&d, now)).To(BeTemporally("==", time.Date(2023, 12, 25, 0, 0, 0, 0, time.Local)))
	})

	DescribeTable("falls back to now",
		func(value *string) {
			Expect(expense.ResolveReceiptDate(value, now)).To(BeTemporally("==", now))
		},
		Entry("nil", nil),
		Entry("wrong layout", strPtr("25/12/2023")),
		Entry("impossible date", strPtr("2023-13-45")),
		Entry("trailing text", strPtr("2023-12-25 10:00")),
	)
})

var _ = Describe("LedgerRow", func() {
	It("flattens an expense into the ledger columns", func() {
		e := &expense.Expense{
			ID:            9,
			MerchantName:  strPtr("Deli"),
			Amount:        *decimalPtr("9.5"),
			Currency:      "USD",
			Category:      "food",
			PaymentMethod: "cash",
			Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local),
			Tax:           *decimalPtr("0"),
			Tip:           *decimalPtr("1"),
			CreatedAt:     time.Date(2024, 3, 5, 12, 30, 0, 0, time.Local),
		}

		Expect(e.LedgerRow()).To(Equal([]any{
			"9", "2024-03-05 00:00:00", "Deli", "9.50", "USD", "food", "cash", "0.00", "1.00", "", "2024-03-05 12:30:00",
		}))
		Expect(expense.LedgerHeaders).To(HaveLen(len(e.LedgerRow())))
	})
})
