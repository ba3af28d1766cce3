// Package pipeline implements the analysis pipeline that turns a meeting note
// plus one or more images into structured spreadsheet rows.
//
// For each submission the orchestrator runs: upload each image to the blob
// store, analyze each image against the note with the multimodal model, then
// append the aggregated results to the user's spreadsheet. A failure at any
// stage aborts the remaining stages; side effects already produced (uploaded
// assets, appended rows) are not rolled back.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Stage identifies a pipeline stage for error reporting and metrics.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageUpload  Stage = "upload"
	StageAnalyze Stage = "analyze"
	StagePersist Stage = "persist"
)

// Spreadsheet tabs the persist stage appends to.
const (
	targetSummary   = "Summary!A:E"
	targetExtracted = "Extracted!A:C"
	targetDoc       = "Doc!A:C"
)

// summaryExcerptLen bounds each per-image summary excerpt in the combined summary.
const summaryExcerptLen = 100

// BlobStore uploads raw bytes to a remote object store and returns a
// dereferenceable link to the stored asset.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, filename, mimeType string) (*StoredObject, error)
}

// Analyzer runs a multimodal prompt against a single image and returns the
// model's raw text output.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// RowAppender appends rows to a tabular target. Each call is an independent
// remote operation; no cross-call transaction is available.
type RowAppender interface {
	Append(ctx context.Context, spreadsheetID, rangeLabel string, rows [][]any) error
}

// StoredObject is the durable reference returned by a blob upload.
type StoredObject struct {
	ID       string
	ViewLink string
}

// Image is one submitted image.
type Image struct {
	Data     []byte
	MimeType string
}

// Analysis is the structured result the model must produce for one image.
type Analysis struct {
	Summary          string `json:"summary"`
	ComparisonStatus string `json:"comparison_status"`
	ComparisonNote   string `json:"comparison_note"`
	ExtractedData    string `json:"extracted_data"`
}

// Comparison status values the model contract allows.
const (
	StatusMatch    = "MATCH"
	StatusMismatch = "MISMATCH"
	StatusPartial  = "PARTIAL"
)

// Result is the aggregated outcome of one submission.
type Result struct {
	Analysis  Analysis
	FileLinks []string
}

// Orchestrator drives the upload → analyze → persist sequence for one
// submission. Safe for concurrent use; each Run is independent.
type Orchestrator struct {
	analyzer Analyzer
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer attaches an OTel tracer for per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator bound to an analyzer.
// Blob store and row appender are supplied per Run because they are built
// from the credential resolved for each request.
func New(analyzer Analyzer, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the full pipeline for one submission.
// Returns *ExternalServiceError when a remote call fails and *ParseError when
// the model output violates the JSON contract. No internal retries.
func (o *Orchestrator) Run(ctx context.Context, blobs BlobStore, sheets RowAppender, spreadsheetID, note string, images []Image) (*Result, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("at least one image is required")
	}

	start := o.now()
	submittedAt := start.UTC()

	ctx, span := o.startSpan(ctx, "pipeline.run", attribute.Int("images", len(images)))
	defer span.End()

	analyses := make([]Analysis, 0, len(images))
	links := make([]string, 0, len(images))

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return o.fail(span, &ExternalServiceError{Stage: StageUpload, Image: i, Err: err})
		}

		obj, err := o.upload(ctx, blobs, submittedAt, i, img)
		if err != nil {
			return o.fail(span, err)
		}
		links = append(links, obj.ViewLink)

		if err := ctx.Err(); err != nil {
			return o.fail(span, &ExternalServiceError{Stage: StageAnalyze, Image: i, Err: err})
		}

		analysis, err := o.analyze(ctx, note, i, img)
		if err != nil {
			return o.fail(span, err)
		}
		analyses = append(analyses, *analysis)
	}

	combined := aggregate(analyses)

	if err := o.persist(ctx, sheets, spreadsheetID, submittedAt, note, combined, analyses, links); err != nil {
		return o.fail(span, err)
	}

	if o.metrics != nil {
		o.metrics.observeRun("success", o.now().Sub(start))
	}
	o.logger.InfoContext(ctx, "pipeline completed",
		slog.Int("images", len(images)),
		slog.String("status", combined.ComparisonStatus),
	)

	return &Result{Analysis: combined, FileLinks: links}, nil
}

func (o *Orchestrator) upload(ctx context.Context, blobs BlobStore, submittedAt time.Time, idx int, img Image) (*StoredObject, error) {
	ctx, span := o.startSpan(ctx, "pipeline.upload", attribute.Int("image", idx))
	defer span.End()

	start := o.now()
	filename := uploadFilename(submittedAt, idx, img.MimeType)

	obj, err := blobs.Upload(ctx, img.Data, filename, img.MimeType)
	if o.metrics != nil {
		o.metrics.observeStage(StageUpload, o.now().Sub(start))
	}
	if err != nil {
		return nil, &ExternalServiceError{Stage: StageUpload, Image: idx, Err: err}
	}

	o.logger.DebugContext(ctx, "image uploaded",
		slog.Int("image", idx),
		slog.String("filename", filename),
	)
	return obj, nil
}

func (o *Orchestrator) analyze(ctx context.Context, note string, idx int, img Image) (*Analysis, error) {
	ctx, span := o.startSpan(ctx, "pipeline.analyze", attribute.Int("image", idx))
	defer span.End()

	start := o.now()
	raw, err := o.analyzer.Analyze(ctx, analysisPrompt(note), img.Data, img.MimeType)
	if o.metrics != nil {
		o.metrics.observeStage(StageAnalyze, o.now().Sub(start))
	}
	if err != nil {
		return nil, &ExternalServiceError{Stage: StageAnalyze, Image: idx, Err: err}
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// persist appends the summary row, then one Extracted and one Doc row per
// image. Appends are independent remote calls: a failure part-way leaves the
// spreadsheet partially updated, and the returned error names the target.
func (o *Orchestrator) persist(ctx context.Context, sheets RowAppender, spreadsheetID string, submittedAt time.Time, note string, combined Analysis, analyses []Analysis, links []string) error {
	ctx, span := o.startSpan(ctx, "pipeline.persist")
	defer span.End()

	start := o.now()
	defer func() {
		if o.metrics != nil {
			o.metrics.observeStage(StagePersist, o.now().Sub(start))
		}
	}()

	ts := submittedAt.Format(time.RFC3339)

	summaryRow := [][]any{{ts, note, combined.Summary, combined.ComparisonStatus, combined.ComparisonNote}}
	if err := sheets.Append(ctx, spreadsheetID, targetSummary, summaryRow); err != nil {
		return &ExternalServiceError{Stage: StagePersist, Image: -1, Target: targetSummary, Err: err}
	}

	for i, a := range analyses {
		rowTS := fmt.Sprintf("%s #%d", ts, i+1)

		extracted := [][]any{{rowTS, a.ExtractedData, links[i]}}
		if err := sheets.Append(ctx, spreadsheetID, targetExtracted, extracted); err != nil {
			return &ExternalServiceError{Stage: StagePersist, Image: i, Target: targetExtracted, Err: err}
		}

		doc := [][]any{{rowTS, links[i], fmt.Sprintf("=IMAGE(%q)", links[i])}}
		if err := sheets.Append(ctx, spreadsheetID, targetDoc, doc); err != nil {
			return &ExternalServiceError{Stage: StagePersist, Image: i, Target: targetDoc, Err: err}
		}
	}
	return nil
}

func (o *Orchestrator) fail(span trace.Span, err error) (*Result, error) {
	if o.metrics != nil {
		o.metrics.observeRun("failure", 0)
	}
	span.RecordError(err)
	o.logger.Error("pipeline failed", slog.String("error", err.Error()))
	return nil, err
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// uploadFilename derives a per-submission unique name from the submission
// time and image index.
func uploadFilename(submittedAt time.Time, idx int, mimeType string) string {
	ext := ".jpg"
	switch mimeType {
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	}
	return fmt.Sprintf("meeting-img-%s-%d%s", submittedAt.Format("20060102T150405"), idx, ext)
}

// aggregate combines per-image analyses into a single result.
// One image: used directly. Multiple: summaries are concatenated as bounded
// excerpts, the status is MATCH only if every image matched, MISMATCH if any
// image mismatched, PARTIAL otherwise, and the note lists each image's status.
func aggregate(analyses []Analysis) Analysis {
	if len(analyses) == 1 {
		return analyses[0]
	}

	var summaries, notes []string
	allMatch := true
	anyMismatch := false

	for i, a := range analyses {
		summaries = append(summaries, fmt.Sprintf("[Image %d] %s", i+1, excerpt(a.Summary, summaryExcerptLen)))
		notes = append(notes, fmt.Sprintf("Image %d: %s", i+1, a.ComparisonStatus))
		if a.ComparisonStatus != StatusMatch {
			allMatch = false
		}
		if a.ComparisonStatus == StatusMismatch {
			anyMismatch = true
		}
	}

	status := StatusPartial
	switch {
	case allMatch:
		status = StatusMatch
	case anyMismatch:
		status = StatusMismatch
	}

	var extracted []string
	for i, a := range analyses {
		extracted = append(extracted, fmt.Sprintf("[Image %d] %s", i+1, a.ExtractedData))
	}

	return Analysis{
		Summary:          strings.Join(summaries, " "),
		ComparisonStatus: status,
		ComparisonNote:   strings.Join(notes, "; "),
		ExtractedData:    strings.Join(extracted, "\n"),
	}
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// parseAnalysis strips code-fence markup and decodes the model output against
// the four-field contract. Any contract violation yields *ParseError.
func parseAnalysis(raw string) (*Analysis, error) {
	cleaned := stripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	for _, key := range []string{"summary", "comparison_status", "comparison_note", "extracted_data"} {
		if _, ok := fields[key]; !ok {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing required field %q", key)}
		}
	}

	var a Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	switch a.ComparisonStatus {
	case StatusMatch, StatusMismatch, StatusPartial:
	default:
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("unexpected comparison_status %q", a.ComparisonStatus)}
	}
	return &a, nil
}

// stripFences removes surrounding markdown code-fence markers the model
// sometimes wraps its JSON in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
