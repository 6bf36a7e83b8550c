// Package ingest uploads bank exports to the backend for batch processing.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/caseworker/internal/jobs"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/ofx"
)

// Pre-flight errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingColumns    = errors.New("missing required columns")
	ErrEmptyFile         = errors.New("file is empty")
)

// Backend is the subset of the API client used for ingestion.
type Backend interface {
	ClearAllData(ctx context.Context) error
	UploadCSV(ctx context.Context, filename string, content io.Reader) (string, error)
}

// Request describes one upload.
type Request struct {
	Path string
	// ClearFirst wipes all backend data before uploading. A failed clear
	// aborts the upload.
	ClearFirst bool
	// Wait tracks the processing job until it finishes.
	Wait bool
}

// Result describes an accepted upload.
type Result struct {
	Outcome  *jobs.Outcome
	JobID    string
	Filename string
	Bytes    int64
	// Converted is set when the file was converted from OFX/QFX.
	Converted bool
	Cleared   bool
}

// ProgressFunc returns a writer that receives every uploaded byte.
type ProgressFunc func(size int64) io.Writer

// Uploader validates, converts and uploads files.
type Uploader struct {
	backend  Backend
	parser   *ofx.Parser
	poller   *jobs.Poller
	progress ProgressFunc
	status   func(string)
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithPoller enables Request.Wait.
func WithPoller(p *jobs.Poller) Option {
	return func(u *Uploader) {
		u.poller = p
	}
}

// WithProgress reports upload progress.
func WithProgress(fn ProgressFunc) Option {
	return func(u *Uploader) {
		u.progress = fn
	}
}

// WithStatus receives human readable status lines as the upload proceeds.
func WithStatus(fn func(string)) Option {
	return func(u *Uploader) {
		u.status = fn
	}
}

// NewUploader creates an uploader.
func NewUploader(backend Backend, opts ...Option) *Uploader {
	u := &Uploader{
		backend: backend,
		parser:  ofx.NewParser(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Uploader) report(msg string) {
	slog.Info(msg)
	if u.status != nil {
		u.status(msg)
	}
}

// Upload validates the file, optionally clears the backend, and uploads.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	payload, filename, converted, err := u.prepare(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	res := &Result{Filename: filename, Bytes: int64(len(payload)), Converted: converted}

	if req.ClearFirst {
		u.report("Clearing all existing data...")
		if err := u.backend.ClearAllData(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
		res.Cleared = true
		u.report("Data cleared. Now uploading file...")
	} else {
		u.report("Uploading and appending data...")
	}

	var body io.Reader = bytes.NewReader(payload)
	if u.progress != nil {
		if w := u.progress(res.Bytes); w != nil {
			body = io.TeeReader(body, w)
		}
	}

	jobID, err := u.backend.UploadCSV(ctx, filename, body)
	if err != nil {
		return res, fmt.Errorf("upload failed: %w", err)
	}
	res.JobID = jobID
	slog.Info("Upload accepted", "file", filename, "bytes", res.Bytes, "job_id", jobID)

	if req.Wait && u.poller != nil && jobID != "" {
		out := u.poller.Track(ctx, jobID, model.ResultGeneric, jobs.Hooks{})
		res.Outcome = &out
		if !out.OK() {
			return res, out.Err
		}
	}
	return res, nil
}

// prepare returns the CSV bytes to upload and the name to upload them as.
func (u *Uploader) prepare(ctx context.Context, path string) ([]byte, string, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".ofx", ".qfx":
	default:
		return nil, "", false, fmt.Errorf("%w: %q (expected .csv, .ofx or .qfx)", ErrUnsupportedFormat, filepath.Base(path))
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the analyst
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if ext == ".csv" {
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, "", false, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := ValidateHeader(bytes.NewReader(content)); err != nil {
			return nil, "", false, err
		}
		return content, filepath.Base(path), false, nil
	}

	rows, err := u.parser.ParseFile(ctx, f)
	if err != nil {
		return nil, "", false, err
	}
	if len(rows) == 0 {
		return nil, "", false, fmt.Errorf("%w: no transactions in %s", ErrEmptyFile, filepath.Base(path))
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, "", false, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".csv"
	slog.Info("Converted statement", "file", filepath.Base(path), "rows", len(rows))
	return buf.Bytes(), name, true, nil
}

// ValidateHeader checks that the first CSV record names every required
// column.
func ValidateHeader(r io.Reader) error {
	header, err := csv.NewReader(r).Read()
	if errors.Is(err, io.EOF) {
		return ErrEmptyFile
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		present[strings.TrimSpace(col)] = true
	}

	var missing []string
	for _, col := range model.RequiredLedgerColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// WriteCSV writes rows in the bank export format.
func WriteCSV(w io.Writer, rows []model.LedgerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.LedgerHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
