package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/Veraticus/caseworker/internal/model"
)

// ClearAllData wipes every user, alert and transaction on the backend.
func (c *Client) ClearAllData(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/ingest/clear-all-data", "/ingest/clear-all-data", nil, nil)
}

// UploadCSV streams a CSV file to the ingestion endpoint as the multipart
// field "file" and returns the id of the backend processing job.
func (c *Client) UploadCSV(ctx context.Context, filename string, content io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(filename))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("failed to read upload: %w", err))
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	var ticket model.JobTicket
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/ingest/upload-csv",
		route:       "/ingest/upload-csv",
		body:        pr,
		contentType: form.FormDataContentType(),
		out:         &ticket,
	})
	// Unblock the writer if the request ended before the body was consumed.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", err
	}
	return ticket.JobID, nil
}
