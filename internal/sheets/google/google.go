package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"pagos/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors daily summaries and closings into a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
	closingsSheet string
}

// Ensure interface conformance
var (
	_ sheets.SummaryWriter   = (*Client)(nil)
	_ sheets.ClosingArchiver = (*Client)(nil)
)

// Options names the target spreadsheet and its tabs.
type Options struct {
	SpreadsheetID string
	SummarySheet  string // default "Resumen"
	ClosingsSheet string // default "Cierres"
}

// New creates a Sheets client authenticated with service account
// credentials taken from the environment.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = "Resumen"
	}
	closings := strings.TrimSpace(opts.ClosingsSheet)
	if closings == "" {
		closings = "Cierres"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: id,
		summarySheet:  summary,
		closingsSheet: closings,
	}, nil
}

// NewFromEnv creates a client from GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME
// and GOOGLE_CLOSINGS_SHEET_NAME.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID: os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SummarySheet:  os.Getenv("GOOGLE_SHEET_NAME"),
		ClosingsSheet: os.Getenv("GOOGLE_CLOSINGS_SHEET_NAME"),
	})
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertDailySummary rewrites the row holding s.Date, or writes a new row
// below the last one. An empty sheet gets a header first.
func (c *Client) UpsertDailySummary(ctx context.Context, s sheets.DailySummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.summarySheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	values := resp.Values
	if len(values) == 0 {
		if err := c.writeRow(ctx, c.summarySheet, 1, summaryHeader()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		values = [][]interface{}{summaryHeader()}
	}

	row, found := rowForDate(values, s.Date)
	if err := c.writeRow(ctx, c.summarySheet, row, summaryRow(s)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Daily summary mirrored",
		"business_date", s.Date,
		"row", row,
		"replaced", found,
		"total", s.Total.String(),
		"count", s.Count)
	return nil
}

// ArchiveClosing appends one row per closing to the closings tab.
func (c *Client) ArchiveClosing(ctx context.Context, cl sheets.Closing) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:G", c.closingsSheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{closingRow(cl)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append closing to %s: %w", c.closingsSheet, err)
	}

	slog.InfoContext(ctx, "Closing archived", "business_date", cl.Date, "sheet", c.closingsSheet)
	return nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, row int, cells []interface{}) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn(len(cells)), row)
	vr := &gsheet.ValueRange{Values: [][]interface{}{cells}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func closingRow(cl sheets.Closing) []interface{} {
	date := cl.Date
	if date == "" {
		date = "todo"
	}
	closedAt := cl.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now()
	}
	return []interface{}{
		date,
		cl.Summary.Total.StringFixed(2),
		cl.Summary.Fee.StringFixed(2),
		cl.Summary.Net.StringFixed(2),
		cl.Summary.Count,
		closedAt.UTC().Format(time.RFC3339),
		cl.Report,
	}
}
