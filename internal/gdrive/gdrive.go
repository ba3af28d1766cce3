// Package gdrive implements the blob store on the Google Drive v3 API.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/jkaninda/notelens/internal/pipeline"
)

const defaultBaseURL = "https://www.googleapis.com"

// Client uploads files to Google Drive and can probe API access.
// The HTTP client is expected to carry service-account authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	folderID   string // Optional destination folder.
	logger     *slog.Logger
}

// Option configures the Drive client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// NewClient creates a Drive client on an authenticated HTTP client.
// folderID may be empty, in which case files land in the account's root.
func NewClient(httpClient *http.Client, folderID string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		folderID:   folderID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload stores the bytes as a Drive file via a multipart/related upload and
// returns the file id and web view link.
func (c *Client) Upload(ctx context.Context, data []byte, filename, mimeType string) (*pipeline.StoredObject, error) {
	meta := fileMetadata{Name: filename, MimeType: mimeType}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling file metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, fmt.Errorf("creating metadata part: %w", err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, fmt.Errorf("writing metadata part: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return nil, fmt.Errorf("creating media part: %w", err)
	}
	if _, err := mediaPart.Write(data); err != nil {
		return nil, fmt.Errorf("writing media part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/upload/drive/v3/files?uploadType=multipart&fields=id,webViewLink,thumbnailLink", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", fmt.Sprintf("multipart/related; boundary=%s", mw.Boundary()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var file fileResource
	if err := json.Unmarshal(respBody, &file); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	c.logger.DebugContext(ctx, "file uploaded",
		slog.String("file_id", file.ID),
		slog.String("filename", filename),
	)
	return &pipeline.StoredObject{ID: file.ID, ViewLink: file.WebViewLink}, nil
}

// List performs the cheapest possible authenticated call: listing a single
// file. Used to verify that a credential actually authenticates.
func (c *Client) List(ctx context.Context) error {
	url := fmt.Sprintf("%s/drive/v3/files?pageSize=1", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// --- Drive API wire types (unexported) ---

type fileMetadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
}

type fileResource struct {
	ID            string `json:"id"`
	WebViewLink   string `json:"webViewLink"`
	ThumbnailLink string `json:"thumbnailLink"`
}

// compile-time interface check
var _ pipeline.BlobStore = (*Client)(nil)
