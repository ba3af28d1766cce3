// Package gsheets implements the row appender on the Google Sheets v4 API.
package gsheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jkaninda/notelens/internal/pipeline"
)

const defaultBaseURL = "https://sheets.googleapis.com"

// Client appends rows to Google Sheets.
// The HTTP client is expected to carry service-account authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// Option configures the Sheets client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a Sheets client on an authenticated HTTP client.
func NewClient(httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append appends rows to the given range with USER_ENTERED input semantics,
// so formula cells (e.g. =IMAGE) are interpreted by the spreadsheet.
func (c *Client) Append(ctx context.Context, spreadsheetID, rangeLabel string, rows [][]any) error {
	body, err := json.Marshal(appendRequest{Values: rows})
	if err != nil {
		return fmt.Errorf("marshaling append request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rangeLabel))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.logger.DebugContext(ctx, "rows appended",
		slog.String("range", rangeLabel),
		slog.Int("rows", len(rows)),
	)
	return nil
}

type appendRequest struct {
	Values [][]any `json:"values"`
}

// compile-time interface check
var _ pipeline.RowAppender = (*Client)(nil)
