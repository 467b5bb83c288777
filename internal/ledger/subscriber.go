package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/receipt-ledger/internal/core/events"
)

// Subscriber mirrors expense events into a Mirror. Mirror failures are
// logged and dropped.
type Subscriber struct {
	mirror Mirror
	logger *slog.Logger
}

func NewSubscriber(mirror Mirror, logger *slog.Logger) *Subscriber {
	return &Subscriber{mirror: mirror, logger: logger}
}

// Register subscribes to expense events on bus. A Disabled mirror is not
// registered at all.
func (s *Subscriber) Register(bus *events.EventBus) {
	if _, disabled := s.mirror.(Disabled); disabled {
		s.logger.Info("ledger subscriber not registered: sync disabled")
		return
	}
	bus.Subscribe(events.EventTypeExpenseCreated, s.HandleExpenseCreated)
	bus.Subscribe(events.EventTypeExpenseUpdated, s.HandleExpenseUpdated)
	bus.Subscribe(events.EventTypeExpenseDeleted, s.HandleExpenseDeleted)
}

func (s *Subscriber) HandleExpenseCreated(ctx context.Context, event events.Event) error {
	ev, err := expenseEvent(event)
	if err != nil {
		return err
	}
	if !s.mirror.Append(ctx, Row(ev.Row)) {
		s.logger.WarnContext(ctx, "ledger append skipped", "expense_id", ev.ExpenseID, "event_id", ev.EventID())
	}
	return nil
}

func (s *Subscriber) HandleExpenseUpdated(ctx context.Context, event events.Event) error {
	ev, err := expenseEvent(event)
	if err != nil {
		return err
	}
	if !s.mirror.Update(ctx, ev.ExpenseID, Row(ev.Row)) {
		s.logger.WarnContext(ctx, "ledger update skipped", "expense_id", ev.ExpenseID, "event_id", ev.EventID())
	}
	return nil
}

func (s *Subscriber) HandleExpenseDeleted(ctx context.Context, event events.Event) error {
	ev, err := expenseEvent(event)
	if err != nil {
		return err
	}
	if !s.mirror.Delete(ctx, ev.ExpenseID) {
		s.logger.WarnContext(ctx, "ledger delete skipped", "expense_id", ev.ExpenseID, "event_id", ev.EventID())
	}
	return nil
}

func expenseEvent(event events.Event) (*events.ExpenseChangedEvent, error) {
	ev, ok := event.(*events.ExpenseChangedEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}
	return ev, nil
}

// Push writes one expense row synchronously, updating it in place when the
// ledger already holds it.
func Push(ctx context.Context, mirror Mirror, id int64, row Row) bool {
	if mirror.Update(ctx, id, row) {
		return true
	}
	return mirror.Append(ctx, row)
}
