package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/notelens/internal/pipeline"
	"github.com/jkaninda/okapi"
)

// AnalyzeResponse is the JSON response for POST /v1/analyze.
type AnalyzeResponse struct {
	Summary          string   `json:"summary"`
	ComparisonStatus string   `json:"comparison_status"`
	ComparisonNote   string   `json:"comparison_note"`
	ExtractedData    string   `json:"extracted_data"`
	FileLinks        []string `json:"file_links"`
	CorrelationID    string   `json:"correlation_id"`
	CredentialSource string   `json:"credential_source"`
}

// handleAnalyze accepts a multipart form with a "note" field and one or more
// "images" file parts, runs the analysis pipeline, and returns the aggregated
// result.
func (g *Gateway) handleAnalyze(c *okapi.Context) error {
	userID := callerID(c)
	spreadsheetID := c.GetString("spreadsheetID")

	if g.limiter != nil {
		if err := g.limiter.Allow(c.GetString("userID")); err != nil {
			return c.AbortTooManyRequests("rate limit exceeded")
		}
	}

	r := c.Request()
	maxMem := g.config.MaxRequestSize
	if maxMem <= 0 {
		maxMem = defaultMaxRequestSize
	}
	if err := r.ParseMultipartForm(maxMem); err != nil {
		return c.AbortBadRequest("expected multipart form with note and images")
	}

	note := strings.TrimSpace(r.FormValue("note"))
	if note == "" {
		return c.AbortBadRequest("note is required")
	}
	if spreadsheetID == "" {
		return c.AbortBadRequest("account has no spreadsheet configured")
	}

	fileHeaders := r.MultipartForm.File["images"]
	if len(fileHeaders) == 0 {
		return c.AbortBadRequest("at least one image is required")
	}

	images, err := readImages(fileHeaders)
	if err != nil {
		return c.AbortBadRequest(err.Error())
	}

	correlationID := newCorrelationID()

	g.logger.InfoContext(c.Context(), "analyze request",
		slog.Int64("user_id", userID),
		slog.String("correlation_id", correlationID),
		slog.Int("images", len(images)),
	)

	identity, err := g.resolver.Resolve(c.Context(), &userID)
	if err != nil {
		if errors.Is(err, credential.ErrNoCredential) {
			return c.AbortServiceUnavailable("no usable credential configured")
		}
		g.logger.ErrorContext(c.Context(), "credential resolution failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("credential resolution failed")
	}

	ctx := c.Context()
	if g.config.Tracer != nil {
		var span trace.Span
		ctx, span = g.config.Tracer.Start(ctx, "analyze",
			trace.WithAttributes(attribute.String("correlation_id", correlationID)))
		defer span.End()
	}

	result, err := g.orchestrator.Run(ctx, identity.Blobs, identity.Sheets, spreadsheetID, note, images)
	if err != nil {
		return g.pipelineError(c, correlationID, err)
	}

	if g.noteLogs != nil {
		if logErr := g.noteLogs.Append(c.Context(), userID, note); logErr != nil {
			g.logger.WarnContext(c.Context(), "note journal append failed",
				slog.String("correlation_id", correlationID),
				slog.String("error", logErr.Error()),
			)
		}
	}

	return c.OK(AnalyzeResponse{
		Summary:          result.Analysis.Summary,
		ComparisonStatus: result.Analysis.ComparisonStatus,
		ComparisonNote:   result.Analysis.ComparisonNote,
		ExtractedData:    result.Analysis.ExtractedData,
		FileLinks:        result.FileLinks,
		CorrelationID:    correlationID,
		CredentialSource: string(identity.Source),
	})
}

// pipelineError maps pipeline failures to HTTP responses. Upstream failures
// are 502; a model contract violation is also 502 but names the stage.
func (g *Gateway) pipelineError(c *okapi.Context, correlationID string, err error) error {
	g.logger.ErrorContext(c.Context(), "pipeline failed",
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()),
	)

	var svcErr *pipeline.ExternalServiceError
	if errors.As(err, &svcErr) {
		return c.JSON(http.StatusBadGateway, ErrorBody{Error: svcErr.Error()})
	}

	var parseErr *pipeline.ParseError
	if errors.As(err, &parseErr) {
		return c.JSON(http.StatusBadGateway, ErrorBody{Error: "analysis output did not match the expected format"})
	}

	return c.AbortInternalServerError("analysis failed")
}

// readImages loads every uploaded file part into memory and rejects
// non-image content types.
func readImages(headers []*multipart.FileHeader) ([]pipeline.Image, error) {
	images := make([]pipeline.Image, 0, len(headers))
	for _, fh := range headers {
		mimeType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, errors.New("only image uploads are accepted")
		}

		f, err := fh.Open()
		if err != nil {
			return nil, errors.New("unreadable image upload")
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.New("unreadable image upload")
		}
		if len(data) == 0 {
			return nil, errors.New("empty image upload")
		}

		images = append(images, pipeline.Image{Data: data, MimeType: mimeType})
	}
	return images, nil
}
