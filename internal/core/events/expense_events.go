package events

const (
	EventTypeExpenseCreated = "expense.created"
	EventTypeExpenseUpdated = "expense.updated"
	EventTypeExpenseDeleted = "expense.deleted"
)

// ExpenseChangedEvent carries an expense mutation. Row holds the expense
// already flattened into ledger columns; it is empty for deletions.
type ExpenseChangedEvent struct {
	BaseEvent
	ExpenseID int64 `json:"expense_id"`
	Row       []any `json:"row,omitempty"`
}

func newExpenseEvent(eventType string, expenseID int64, row []any) *ExpenseChangedEvent {
	return &ExpenseChangedEvent{
		BaseEvent: NewBaseEvent(eventType),
		ExpenseID: expenseID,
		Row:       row,
	}
}

func NewExpenseCreatedEvent(expenseID int64, row []any) *ExpenseChangedEvent {
	return newExpenseEvent(EventTypeExpenseCreated, expenseID, row)
}

func NewExpenseUpdatedEvent(expenseID int64, row []any) *ExpenseChangedEvent {
	return newExpenseEvent(EventTypeExpenseUpdated, expenseID, row)
}

func NewExpenseDeletedEvent(expenseID int64) *ExpenseChangedEvent {
	return newExpenseEvent(EventTypeExpenseDeleted, expenseID, nil)
}
