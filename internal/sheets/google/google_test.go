package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbot/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sheet-1", SheetName: "Ledger"}, nil)
}

func TestAppendExpense(t *testing.T) {
	var (
		gotPath string
		gotBody gsheet.ValueRange
		gotOpt  string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOpt = r.URL.Query().Get("valueInputOption")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"updates":{"updatedRange":"Ledger!A7:H7"}}`))
	})

	e := core.NewExpense("42", core.Money{Cents: 5050}, core.WalletBank, "food", "lunch 50.50", time.Date(2025, 4, 1, 13, 0, 0, 0, time.UTC))
	e.ID = 9
	ref, err := c.AppendExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if ref != "Ledger!A7:H7" {
		t.Fatalf("ref = %q", ref)
	}
	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-1/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotOpt != "USER_ENTERED" {
		t.Fatalf("valueInputOption = %q", gotOpt)
	}
	if len(gotBody.Values) != 1 {
		t.Fatalf("values = %+v", gotBody.Values)
	}
	row := gotBody.Values[0]
	want := []string{"2025-04-01 13:00:00", "42", "expense", "50.50", "bank", "food", "lunch 50.50", "9"}
	if len(row) != len(want) {
		t.Fatalf("row = %+v", row)
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("col %d = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestAppendExpenseRejectsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.AppendExpense(context.Background(), core.Expense{UserID: "1"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAppendResetServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
	})
	if _, err := c.AppendReset(context.Background(), "42", time.Now()); err == nil {
		t.Fatal("expected error from 403")
	}
}
