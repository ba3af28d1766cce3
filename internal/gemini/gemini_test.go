package gemini

import (
	"context"
	"encoding/base64"
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

func TestAnalyze_RequestShape(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4e, 0x47}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected x-goog-api-key test-key, got %q", r.Header.Get("x-goog-api-key"))
		}
		if r.URL.Path != "/v1beta/models/gemini-1.5-pro:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("expected one content with prompt and image parts, got %+v", req.Contents)
		}
		if req.Contents[0].Parts[0].Text != "compare this" {
			t.Errorf("expected prompt text, got %q", req.Contents[0].Parts[0].Text)
		}
		inline := req.Contents[0].Parts[1].InlineData
		if inline == nil {
			t.Fatal("expected inline image data")
		}
		if inline.MimeType != "image/png" {
			t.Errorf("expected image/png, got %q", inline.MimeType)
		}
		if inline.Data != base64.StdEncoding.EncodeToString(image) {
			t.Error("image bytes must be base64-encoded")
		}

		resp := apiResponse{
			Candidates: []apiCandidate{{
				Content: apiContent{Role: "model", Parts: []apiPart{{Text: `{"summary":`}, {Text: `"ok"}`}}},
			}},
			UsageMetadata: &apiUsage{PromptTokenCount: 12, CandidatesTokenCount: 8},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient("test-key", "", discardLogger(), WithBaseURL(srv.URL))
	text, err := client.Analyze(context.Background(), "compare this", image, "image/png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if text != `{"summary":"ok"}` {
		t.Errorf("candidate parts must be concatenated, got %q", text)
	}
}

func TestAnalyze_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", "gemini-1.5-pro", discardLogger(), WithBaseURL(srv.URL))
	if _, err := client.Analyze(context.Background(), "p", []byte("img"), "image/png"); err == nil {
		t.Fatal("expected an error for non-200 status")
	}
}

func TestAnalyze_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", "gemini-1.5-pro", discardLogger(), WithBaseURL(srv.URL))
	if _, err := client.Analyze(context.Background(), "p", []byte("img"), "image/png"); err == nil {
		t.Fatal("expected an error for an empty candidate list")
	}
}
