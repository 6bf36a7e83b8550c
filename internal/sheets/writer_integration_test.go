//go:build integration
// +build integration

package sheets

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriter_Integration(t *testing.T) {
	config := DefaultConfig()
	config.LoadFromEnv()
	config.SpreadsheetName = "caseworker integration test"
	config.RetryDelay = time.Second

	if err := config.Validate(); err != nil {
		t.Skipf("Google Sheets credentials not available: %v", err)
	}
	if config.ServiceAccountPath != "" {
		if _, err := os.Stat(config.ServiceAccountPath); os.IsNotExist(err) {
			t.Skipf("Service account file does not exist: %s", config.ServiceAccountPath)
		}
	}

	ctx := context.Background()
	writer, err := NewWriter(ctx, config, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)

	url, err := writer.Write(ctx, sampleDossier())
	require.NoError(t, err)
	t.Logf("dossier written to %s", url)
}
