package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/expense"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	valueInputRaw = "RAW"

	newSheetRows    = 1000
	newSheetColumns = 15
)

// SheetsMirror keeps one worksheet of a Google spreadsheet in step with the
// expense table, one row per expense keyed by its ID.
type SheetsMirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	worksheet     string
	sheetID       int64
	timeout       time.Duration
	logger        *slog.Logger
}

// NewSheetsMirror looks up worksheet, creating it with a header row when the
// spreadsheet does not have one yet.
func NewSheetsMirror(ctx context.Context, svc *gsheet.Service, spreadsheetID, worksheet string, timeout time.Duration, logger *slog.Logger) (*SheetsMirror, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	m := &SheetsMirror{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		timeout:       timeout,
		logger:        logger,
	}
	if err := m.ensureWorksheet(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SheetsMirror) ensureWorksheet(ctx context.Context) error {
	ctx, cancel := internal.WithTimeout(ctx, m.timeout)
	defer cancel()

	spreadsheet, err := m.svc.Spreadsheets.Get(m.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == m.worksheet {
			m.sheetID = sheet.Properties.SheetId
			return nil
		}
	}

	resp, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{
					Title: m.worksheet,
					GridProperties: &gsheet.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add worksheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return errors.New("add worksheet: empty reply")
	}
	m.sheetID = resp.Replies[0].AddSheet.Properties.SheetId

	header := make([]any, len(expense.LedgerHeaders))
	for i, h := range expense.LedgerHeaders {
		header[i] = h
	}
	if err := m.append(ctx, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	m.logger.Info("ledger worksheet created", "worksheet", m.worksheet, "sheet_id", m.sheetID)
	return nil
}

func (m *SheetsMirror) Append(ctx context.Context, row Row) bool {
	ctx, cancel := internal.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.append(ctx, row); err != nil {
		m.logger.WarnContext(ctx, "failed to append expense to ledger", "error", err)
		return false
	}
	return true
}

// Update rewrites the row holding id. It reports false when no cell matches.
func (m *SheetsMirror) Update(ctx context.Context, id int64, row Row) bool {
	ctx, cancel := internal.WithTimeout(ctx, m.timeout)
	defer cancel()

	rowNumber, err := m.locate(ctx, id)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to read ledger", "expense_id", id, "error", err)
		return false
	}
	if rowNumber == 0 {
		m.logger.DebugContext(ctx, "expense not present in ledger", "expense_id", id)
		return false
	}

	_, err = m.svc.Spreadsheets.Values.Update(m.spreadsheetID, m.a1(fmt.Sprintf("A%d", rowNumber)), &gsheet.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		m.logger.WarnContext(ctx, "failed to update expense in ledger", "expense_id", id, "row", rowNumber, "error", err)
		return false
	}
	return true
}

// Delete removes the row holding id. It reports false when no cell matches.
func (m *SheetsMirror) Delete(ctx context.Context, id int64) bool {
	ctx, cancel := internal.WithTimeout(ctx, m.timeout)
	defer cancel()

	rowNumber, err := m.locate(ctx, id)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to read ledger", "expense_id", id, "error", err)
		return false
	}
	if rowNumber == 0 {
		m.logger.DebugContext(ctx, "expense not present in ledger", "expense_id", id)
		return false
	}

	_, err = m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         m.sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(rowNumber - 1),
					EndIndex:        int64(rowNumber),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		m.logger.WarnContext(ctx, "failed to delete expense from ledger", "expense_id", id, "row", rowNumber, "error", err)
		return false
	}
	return true
}

func (m *SheetsMirror) append(ctx context.Context, row []any) error {
	_, err := m.svc.Spreadsheets.Values.Append(m.spreadsheetID, m.a1("A1"), &gsheet.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption(valueInputRaw).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

// locate returns the 1-based row of the first cell equal to id, or 0.
func (m *SheetsMirror) locate(ctx context.Context, id int64) (int, error) {
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, quoteSheet(m.worksheet)).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return findRow(resp.Values, id), nil
}

func (m *SheetsMirror) a1(cell string) string {
	return quoteSheet(m.worksheet) + "!" + cell
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// findRow scans values row-major and returns the 1-based row number of the
// first cell whose text equals id, or 0 when there is none.
func findRow(values [][]interface{}, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		for _, cell := range row {
			if fmt.Sprint(cell) == want {
				return i + 1
			}
		}
	}
	return 0
}
