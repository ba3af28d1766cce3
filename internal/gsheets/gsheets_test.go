package gsheets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/v4/spreadsheets/sheet-1/values/Summary%21A:E:append" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			t.Errorf("expected USER_ENTERED input option, got %q", r.URL.Query().Get("valueInputOption"))
		}

		var req appendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Values) != 1 || len(req.Values[0]) != 3 {
			t.Fatalf("unexpected values: %+v", req.Values)
		}
		if req.Values[0][2] != `=IMAGE("link")` {
			t.Errorf("formula cell must pass through untouched, got %v", req.Values[0][2])
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), discardLogger(), WithBaseURL(srv.URL))
	err := client.Append(context.Background(), "sheet-1", "Summary!A:E", [][]any{
		{"2026-03-14T09:26:53Z", "note", `=IMAGE("link")`},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAppend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"no access"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), discardLogger(), WithBaseURL(srv.URL))
	if err := client.Append(context.Background(), "s", "Summary!A:E", [][]any{{"x"}}); err == nil {
		t.Fatal("expected an error for non-200 status")
	}
}
