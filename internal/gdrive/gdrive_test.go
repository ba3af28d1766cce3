package gdrive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/drive/v3/files" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("uploadType") != "multipart" {
			t.Errorf("expected uploadType=multipart, got %q", r.URL.Query().Get("uploadType"))
		}

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/related" {
			t.Fatalf("expected multipart/related content type, got %q (%v)", mediaType, err)
		}

		mr := multipart.NewReader(r.Body, params["boundary"])

		// First part: JSON metadata.
		metaPart, err := mr.NextPart()
		if err != nil {
			t.Fatalf("reading metadata part: %v", err)
		}
		var meta fileMetadata
		if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
			t.Fatalf("decoding metadata: %v", err)
		}
		if meta.Name != "meeting-img-0.png" {
			t.Errorf("unexpected filename: %q", meta.Name)
		}
		if meta.MimeType != "image/png" {
			t.Errorf("unexpected mime type: %q", meta.MimeType)
		}
		if len(meta.Parents) != 1 || meta.Parents[0] != "folder-1" {
			t.Errorf("expected parent folder folder-1, got %v", meta.Parents)
		}

		// Second part: raw media bytes.
		mediaPart, err := mr.NextPart()
		if err != nil {
			t.Fatalf("reading media part: %v", err)
		}
		data, _ := io.ReadAll(mediaPart)
		if string(data) != "image-bytes" {
			t.Errorf("unexpected media payload: %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-1","webViewLink":"https://drive.example/file-1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "folder-1", discardLogger(), WithBaseURL(srv.URL))
	obj, err := client.Upload(context.Background(), []byte("image-bytes"), "meeting-img-0.png", "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if obj.ID != "file-1" {
		t.Errorf("expected file id file-1, got %q", obj.ID)
	}
	if obj.ViewLink != "https://drive.example/file-1" {
		t.Errorf("expected web view link, got %q", obj.ViewLink)
	}
}

func TestUpload_NoFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		mr := multipart.NewReader(r.Body, params["boundary"])
		metaPart, _ := mr.NextPart()
		var meta fileMetadata
		_ = json.NewDecoder(metaPart).Decode(&meta)
		if len(meta.Parents) != 0 {
			t.Errorf("expected no parents without a folder, got %v", meta.Parents)
		}
		_, _ = w.Write([]byte(`{"id":"f","webViewLink":"l"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "", discardLogger(), WithBaseURL(srv.URL))
	if _, err := client.Upload(context.Background(), []byte("x"), "f.png", "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestUpload_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "", discardLogger(), WithBaseURL(srv.URL))
	if _, err := client.Upload(context.Background(), []byte("x"), "f.png", "image/png"); err == nil {
		t.Fatal("expected an error for non-200 status")
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drive/v3/files" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("pageSize") != "1" {
			t.Errorf("probe should request a single file, got pageSize=%q", r.URL.Query().Get("pageSize"))
		}
		_, _ = w.Write([]byte(`{"files":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "", discardLogger(), WithBaseURL(srv.URL))
	if err := client.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestList_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), "", discardLogger(), WithBaseURL(srv.URL))
	if err := client.List(context.Background()); err == nil {
		t.Fatal("expected an error for an unauthorized probe")
	}
}
