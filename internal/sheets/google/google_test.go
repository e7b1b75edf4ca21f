package google

import (
	"context"
	"strings"
	"testing"

	"pagos/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "  "})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("New() error = %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/creds.json")

	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("New() error = %v", err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", summarySheet: "Resumen", closingsSheet: "Cierres"}
	ctx := context.Background()

	if err := c.UpsertDailySummary(ctx, sheets.DailySummary{Date: "2025-03-10"}); err == nil {
		t.Error("UpsertDailySummary should fail without a service")
	}
	if err := c.ArchiveClosing(ctx, sheets.Closing{Date: "2025-03-10"}); err == nil {
		t.Error("ArchiveClosing should fail without a service")
	}
}
