package events_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/receipt-ledger/internal/core/events"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	It("delivers published events to subscribers asynchronously", func() {
		received := make(chan int64, 1)
		bus.Subscribe(events.EventTypeExpenseCreated, func(ctx context.Context, e events.Event) error {
			received <- e.(*events.ExpenseChangedEvent).ExpenseID
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewExpenseCreatedEvent(7, []any{"7"}))).To(Succeed())
		Eventually(received).Should(Receive(Equal(int64(7))))
	})

	It("keeps handler contexts alive after the publisher's context is cancelled", func() {
		ctxErr := make(chan error, 1)
		release := make(chan struct{})
		bus.Subscribe(events.EventTypeExpenseDeleted, func(ctx context.Context, e events.Event) error {
			<-release
			ctxErr <- ctx.Err()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewExpenseDeletedEvent(1))).To(Succeed())
		cancel()
		close(release)

		Eventually(ctxErr).Should(Receive(BeNil()))
	})

	It("never reports handler failures to the publisher", func() {
		done := make(chan struct{})
		bus.Subscribe(events.EventTypeExpenseUpdated, func(ctx context.Context, e events.Event) error {
			defer close(done)
			return errors.New("sheet offline")
		})

		Expect(bus.Publish(context.Background(), events.NewExpenseUpdatedEvent(2, nil))).To(Succeed())
		Eventually(done).Should(BeClosed())
	})

	It("returns handler errors from PublishSync", func() {
		bus.Subscribe(events.EventTypeExpenseUpdated, func(ctx context.Context, e events.Event) error {
			return errors.New("sheet offline")
		})

		err := bus.PublishSync(context.Background(), events.NewExpenseUpdatedEvent(2, nil))
		Expect(err).To(MatchError(ContainSubstring("sheet offline")))
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.Publish(context.Background(), events.NewExpenseCreatedEvent(1, nil))).To(Succeed())
	})

	It("keeps delivering after a handler panics", func() {
		done := make(chan struct{})
		bus.Subscribe(events.EventTypeExpenseCreated, func(ctx context.Context, e events.Event) error {
			panic("boom")
		})
		bus.Subscribe(events.EventTypeExpenseCreated, func(ctx context.Context, e events.Event) error {
			close(done)
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewExpenseCreatedEvent(3, nil))).To(Succeed())
		Eventually(done).Should(BeClosed())
		Expect(bus.Close(context.Background())).To(Succeed())
	})

	It("waits for in-flight handlers on Close", func() {
		release := make(chan struct{})
		finished := make(chan struct{})
		bus.Subscribe(events.EventTypeExpenseDeleted, func(ctx context.Context, e events.Event) error {
			<-release
			close(finished)
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewExpenseDeletedEvent(4))).To(Succeed())

		closed := make(chan error, 1)
		go func() { closed <- bus.Close(context.Background()) }()
		Consistently(closed, 50*time.Millisecond).ShouldNot(Receive())

		close(release)
		Eventually(closed).Should(Receive(BeNil()))
		Expect(finished).To(BeClosed())
	})

	It("gives up waiting when the context expires", func() {
		release := make(chan struct{})
		defer close(release)
		bus.Subscribe(events.EventTypeExpenseDeleted, func(ctx context.Context, e events.Event) error {
			<-release
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewExpenseDeletedEvent(5))).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(bus.Close(ctx)).To(MatchError(context.DeadlineExceeded))
	})

	It("rejects events after Close", func() {
		Expect(bus.Close(context.Background())).To(Succeed())
		Expect(bus.Publish(context.Background(), events.NewExpenseDeletedEvent(6))).To(MatchError(events.ErrBusClosed))
		Expect(bus.PublishSync(context.Background(), events.NewExpenseDeletedEvent(6))).To(MatchError(events.ErrBusClosed))
	})
})
