package analytics_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	errs "github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/analytics"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/receipt-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/receipt-ledger/internal/core/datamodel/payment"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	"github.com/frahmantamala/receipt-ledger/internal/expense/postgres"
)

// fakeReader answers aggregation queries from an in-memory slice.
type fakeReader struct {
	records []*expense.Expense
	filters []expense.Filter
	err     error
}

func (f *fakeReader) add(merchant, amount string, cat category.Category, method payment.Method, date time.Time) {
	e := &expense.Expense{
		Amount:        decimal.RequireFromString(amount),
		Category:      cat,
		PaymentMethod: method,
		Date:          date,
	}
	if merchant != "" {
		e.MerchantName = &merchant
	}
	f.records = append(f.records, e)
}

func (f *fakeReader) matching(filter expense.Filter) []*expense.Expense {
	f.filters = append(f.filters, filter)
	var out []*expense.Expense
	for _, e := range f.records {
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.Date.Before(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeReader) Totals(_ context.Context, filter expense.Filter) (expense.Totals, error) {
	if f.err != nil {
		return expense.Totals{}, f.err
	}
	var t expense.Totals
	for _, e := range f.matching(filter) {
		t.Amount = t.Amount.Add(e.Amount)
		t.Count++
	}
	return t, nil
}

func (f *fakeReader) TotalsBy(_ context.Context, key expense.GroupKey, filter expense.Filter) ([]expense.GroupTotal, error) {
	if f.err != nil {
		return nil, f.err
	}
	byKey := map[string]*expense.GroupTotal{}
	for _, e := range f.matching(filter) {
		k := string(e.Category)
		if key == expense.GroupByPaymentMethod {
			k = string(e.PaymentMethod)
		}
		g, ok := byKey[k]
		if !ok {
			g = &expense.GroupTotal{Key: k}
			byKey[k] = g
		}
		g.Amount = g.Amount.Add(e.Amount)
		g.Count++
	}
	out := make([]expense.GroupTotal, 0, len(byKey))
	for _, g := range byKey {
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeReader) TopMerchants(_ context.Context, filter expense.Filter, limit int) ([]expense.GroupTotal, error) {
	if f.err != nil {
		return nil, f.err
	}
	byName := map[string]*expense.GroupTotal{}
	for _, e := range f.matching(filter) {
		if e.MerchantName == nil || *e.MerchantName == "" {
			continue
		}
		g, ok := byName[*e.MerchantName]
		if !ok {
			g = &expense.GroupTotal{Key: *e.MerchantName}
			byName[*e.MerchantName] = g
		}
		g.Amount = g.Amount.Add(e.Amount)
		g.Count++
	}
	out := make([]expense.GroupTotal, 0, len(byName))
	for _, g := range byName {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var _ = Describe("AnalyticsService", func() {
	var (
		reader  *fakeReader
		service *analytics.Service
		ctx     context.Context
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		// Saturday afternoon.
		now = time.Date(2024, 6, 15, 14, 30, 0, 0, time.Local)
		reader = &fakeReader{}
		service = analytics.NewService(reader, testLogger).WithClock(func() time.Time { return now })
	})

	Describe("Analyze", func() {
		It("should default the period to month", func() {
			reader.add("Cafe", "10.00", category.Food, payment.Cash, now.Add(-2*24*time.Hour))
			reader.add("Cafe", "99.00", category.Food, payment.Cash, now.Add(-31*24*time.Hour))

			report, err := service.Analyze(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Period).To(Equal("month"))
			Expect(report.TotalSpent).To(Equal(10.0))
			Expect(report.ExpenseCount).To(Equal(int64(1)))
		})

		It("should apply the rolling window for each known period", func() {
			reader.add("A", "1.00", category.Food, payment.Cash, now.Add(-12*time.Hour))
			reader.add("B", "2.00", category.Food, payment.Cash, now.Add(-3*24*time.Hour))
			reader.add("C", "4.00", category.Food, payment.Cash, now.Add(-20*24*time.Hour))
			reader.add("D", "8.00", category.Food, payment.Cash, now.Add(-200*24*time.Hour))
			reader.add("E", "16.00", category.Food, payment.Cash, now.Add(-400*24*time.Hour))

			expected := map[string]float64{
				"day":   1,
				"week":  3,
				"month": 7,
				"year":  15,
				"all":   31,
			}
			for period, total := range expected {
				report, err := service.Analyze(ctx, period)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.TotalSpent).To(Equal(total), "period %s", period)
			}
		})

		It("should echo an unknown period and apply no lower bound", func() {
			reader.add("A", "5.00", category.Food, payment.Cash, now.Add(-1000*24*time.Hour))

			report, err := service.Analyze(ctx, "forever")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Period).To(Equal("forever"))
			Expect(report.TotalSpent).To(Equal(5.0))
		})

		It("should report every category and payment method including empty ones", func() {
			reader.add("Cafe", "12.50", category.Food, payment.Cash, now.Add(-time.Hour))
			reader.add("Bus", "2.25", category.Transport, payment.UPI, now.Add(-time.Hour))

			report, err := service.Analyze(ctx, "week")
			Expect(err).NotTo(HaveOccurred())

			Expect(report.CategoryBreakdown).To(HaveLen(8))
			Expect(report.CategoryBreakdown["food"]).To(Equal(analytics.Breakdown{Label: "Food & Dining", Amount: 12.5, Count: 1}))
			Expect(report.CategoryBreakdown["education"]).To(Equal(analytics.Breakdown{Label: "Education", Amount: 0, Count: 0}))

			Expect(report.PaymentBreakdown).To(HaveLen(5))
			Expect(report.PaymentBreakdown["upi"]).To(Equal(analytics.Breakdown{Label: "UPI", Amount: 2.25, Count: 1}))
			Expect(report.PaymentBreakdown["credit_card"].Count).To(BeZero())
		})

		It("should fold stray stored categories into other", func() {
			reader.add("", "3.00", category.Category("bogus"), payment.Cash, now.Add(-time.Hour))
			reader.add("", "4.00", category.Other, payment.Method("cheque"), now.Add(-time.Hour))

			report, err := service.Analyze(ctx, "day")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.CategoryBreakdown["other"]).To(Equal(analytics.Breakdown{Label: "Other", Amount: 7, Count: 2}))
			Expect(report.PaymentBreakdown["other"].Count).To(Equal(int64(1)))
			Expect(report.PaymentBreakdown["cash"].Count).To(Equal(int64(1)))
		})

		It("should build twelve 30-day trend buckets oldest first", func() {
			reader.add("", "5.00", category.Food, payment.Cash, now.Add(-10*24*time.Hour))
			reader.add("", "7.00", category.Food, payment.Cash, now.Add(-45*24*time.Hour))
			reader.add("", "9.00", category.Food, payment.Cash, now.Add(-355*24*time.Hour))
			reader.add("", "11.00", category.Food, payment.Cash, now.Add(-365*24*time.Hour))

			report, err := service.Analyze(ctx, "day")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.MonthlyTrend).To(HaveLen(12))

			Expect(report.MonthlyTrend[11].Month).To(Equal(now.Add(-30 * 24 * time.Hour).Format("Jan 2006")))
			Expect(report.MonthlyTrend[11].Amount).To(Equal(5.0))
			Expect(report.MonthlyTrend[10].Amount).To(Equal(7.0))
			Expect(report.MonthlyTrend[0].Month).To(Equal(now.Add(-360 * 24 * time.Hour).Format("Jan 2006")))
			Expect(report.MonthlyTrend[0].Amount).To(Equal(9.0))
			Expect(report.MonthlyTrend[0].Count).To(Equal(int64(1)))

			var total float64
			for _, p := range report.MonthlyTrend {
				total += p.Amount
			}
			Expect(total).To(Equal(21.0))
		})

		It("should list top merchants by amount then name", func() {
			reader.add("Zed", "10.00", category.Food, payment.Cash, now.Add(-time.Hour))
			reader.add("Abe", "10.00", category.Food, payment.Cash, now.Add(-time.Hour))
			reader.add("Big", "30.00", category.Food, payment.Cash, now.Add(-time.Hour))
			reader.add("", "50.00", category.Food, payment.Cash, now.Add(-time.Hour))

			report, err := service.Analyze(ctx, "day")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TopMerchants).To(Equal([]analytics.MerchantTotal{
				{Name: "Big", Amount: 30, Count: 1},
				{Name: "Abe", Amount: 10, Count: 1},
				{Name: "Zed", Amount: 10, Count: 1},
			}))
		})

		It("should return an internal error when the store fails", func() {
			reader.err = errors.New("connection refused")

			_, err := service.Analyze(ctx, "month")
			Expect(err).To(HaveOccurred())

			var appErr *errs.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Summary", func() {
		It("should align windows to the local calendar", func() {
			reader.add("", "10.00", category.Food, payment.Cash, time.Date(2024, 6, 15, 9, 0, 0, 0, time.Local))
			reader.add("", "20.00", category.Food, payment.Cash, time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local))
			reader.add("", "30.00", category.Food, payment.Cash, time.Date(2024, 6, 1, 8, 0, 0, 0, time.Local))
			reader.add("", "40.00", category.Food, payment.Cash, time.Date(2023, 12, 31, 8, 0, 0, 0, time.Local))
			reader.add("", "50.00", category.Food, payment.Cash, time.Date(2024, 6, 16, 0, 0, 0, 0, time.Local))

			summary, err := service.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Today).To(Equal(analytics.WindowTotal{Total: 10, Count: 1}))
			Expect(summary.Week).To(Equal(analytics.WindowTotal{Total: 80, Count: 3}))
			Expect(summary.Month).To(Equal(analytics.WindowTotal{Total: 110, Count: 4}))
			Expect(summary.AllTime).To(Equal(analytics.WindowTotal{Total: 150, Count: 5}))
		})

		It("should start the week on Monday when today is Sunday", func() {
			now = time.Date(2024, 6, 16, 10, 0, 0, 0, time.Local)
			reader.add("", "1.00", category.Food, payment.Cash, time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local))
			reader.add("", "2.00", category.Food, payment.Cash, time.Date(2024, 6, 9, 23, 0, 0, 0, time.Local))

			summary, err := service.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Week).To(Equal(analytics.WindowTotal{Total: 1, Count: 1}))
		})
	})

	Describe("against the expense store", func() {
		var db *gorm.DB

		BeforeEach(func() {
			var err error
			db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(db.AutoMigrate(&expenseDatamodel.Expense{})).To(Succeed())

			now = time.Now()
			service = analytics.NewService(postgres.NewExpenseRepository(db), testLogger).WithClock(func() time.Time { return now })
		})

		AfterEach(func() {
			sqlDB, err := db.DB()
			Expect(err).NotTo(HaveOccurred())
			Expect(sqlDB.Close()).To(Succeed())
		})

		It("should total today's food expenses", func() {
			repo := postgres.NewExpenseRepository(db)
			for _, amount := range []string{"10.00", "20.00", "30.00"} {
				Expect(repo.Create(ctx, &expense.Expense{
					Amount:        decimal.RequireFromString(amount),
					Currency:      "USD",
					Category:      category.Food,
					PaymentMethod: payment.Cash,
					Date:          now.Add(-time.Minute),
				})).To(Succeed())
			}

			report, err := service.Analyze(ctx, "day")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalSpent).To(Equal(60.0))
			Expect(report.ExpenseCount).To(Equal(int64(3)))
			Expect(report.CategoryBreakdown["food"].Count).To(Equal(int64(3)))
			Expect(report.CategoryBreakdown["food"].Amount).To(Equal(60.0))
			Expect(report.PaymentBreakdown["cash"].Amount).To(Equal(60.0))
			Expect(report.MonthlyTrend[11].Count).To(Equal(int64(3)))

			summary, err := service.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.AllTime).To(Equal(analytics.WindowTotal{Total: 60, Count: 3}))
		})
	})
})
