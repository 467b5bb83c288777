package ledger

import (
	"context"
	"log/slog"
	"os"

	"github.com/frahmantamala/receipt-ledger/internal"
	gsheet "google.golang.org/api/sheets/v4"
	goption "google.golang.org/api/option"
)

// Row is one expense flattened into ledger columns.
type Row []any

// Mirror copies expense mutations to an external ledger. Every method
// reports whether the ledger was changed; failures are never returned.
type Mirror interface {
	Append(ctx context.Context, row Row) bool
	Update(ctx context.Context, id int64, row Row) bool
	Delete(ctx context.Context, id int64) bool
}

// Disabled is the mirror used when no spreadsheet is configured.
type Disabled struct {
	Logger *slog.Logger
}

var (
	_ Mirror = Disabled{}
	_ Mirror = (*SheetsMirror)(nil)
)

func (d Disabled) Append(ctx context.Context, _ Row) bool {
	d.log(ctx, "append")
	return false
}

func (d Disabled) Update(ctx context.Context, id int64, _ Row) bool {
	d.log(ctx, "update", "expense_id", id)
	return false
}

func (d Disabled) Delete(ctx context.Context, id int64) bool {
	d.log(ctx, "delete", "expense_id", id)
	return false
}

func (d Disabled) log(ctx context.Context, op string, args ...any) {
	if d.Logger == nil {
		return
	}
	d.Logger.DebugContext(ctx, "ledger sync disabled, skipping", append([]any{"op", op}, args...)...)
}

// New connects to the configured spreadsheet. It falls back to Disabled when
// credentials are missing or unreadable, or when the worksheet cannot be
// prepared.
func New(ctx context.Context, cfg internal.LedgerConfig, logger *slog.Logger) Mirror {
	disabled := Disabled{Logger: logger}
	if !cfg.Enabled() {
		logger.Info("ledger sync disabled: credentials not configured")
		return disabled
	}

	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		logger.Warn("ledger sync disabled: cannot read credentials", "path", cfg.CredentialsFile, "error", err)
		return disabled
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		logger.Warn("ledger sync disabled: cannot create sheets service", "error", err)
		return disabled
	}

	mirror, err := NewSheetsMirror(ctx, svc, cfg.SpreadsheetID, cfg.Worksheet, cfg.Timeout, logger)
	if err != nil {
		logger.Warn("ledger sync disabled: cannot prepare worksheet", "worksheet", cfg.Worksheet, "error", err)
		return disabled
	}

	logger.Info("ledger sync enabled", "spreadsheet_id", cfg.SpreadsheetID, "worksheet", cfg.Worksheet)
	return mirror
}
