package ingest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/caseworker/internal/api"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/jobs"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCSV = `Date,Transaction_ID,Debit_Account,Credit_Account,Amount,Currency,Description
2024-03-01T10:00:00,KP_FUND_0,ACC1000,ACC1001,7500000,INR,Investment Capital
`

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>INR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>ACC1300
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-49000.00
<FITID>LOOP1
<NAME>WIRE TO ACC1301
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newUploader(t *testing.T, opts ...Option) (*testutil.Backend, *Uploader) {
	t.Helper()
	b := testutil.SetupBackend(t)
	b.AddUser(model.User{ID: 1, FullName: "ACC1000"}, nil, nil)
	c, err := api.NewClient(b.URL)
	require.NoError(t, err)
	return b, NewUploader(c, opts...)
}

func TestUpload_CSV(t *testing.T) {
	var statuses []string
	b, u := newUploader(t, WithStatus(func(s string) { statuses = append(statuses, s) }))
	path := writeFile(t, "bank.csv", validCSV)

	res, err := u.Upload(context.Background(), Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "upload-job", res.JobID)
	assert.Equal(t, "bank.csv", res.Filename)
	assert.False(t, res.Cleared)
	assert.False(t, res.Converted)
	assert.Equal(t, 0, b.Cleared())
	assert.Equal(t, []string{"Uploading and appending data..."}, statuses)

	uploads := b.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, validCSV, uploads[0].Content)
}

func TestUpload_ClearFirst(t *testing.T) {
	b, u := newUploader(t)
	path := writeFile(t, "bank.csv", validCSV)

	res, err := u.Upload(context.Background(), Request{Path: path, ClearFirst: true})
	require.NoError(t, err)
	assert.True(t, res.Cleared)
	assert.Equal(t, 1, b.Cleared())
	assert.Len(t, b.Uploads(), 1)
}

func TestUpload_FailedClearBlocksUpload(t *testing.T) {
	b, u := newUploader(t)
	b.Fail("POST /ingest/clear-all-data", http.StatusInternalServerError, "cannot truncate tables")
	path := writeFile(t, "bank.csv", validCSV)

	res, err := u.Upload(context.Background(), Request{Path: path, ClearFirst: true})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, common.ErrBackend)
	assert.Contains(t, err.Error(), "cannot truncate tables")
	assert.Equal(t, 0, b.Hits("POST /ingest/upload-csv"))
	assert.Empty(t, b.Uploads())
}

func TestUpload_UploadFailureAfterClear(t *testing.T) {
	b, u := newUploader(t)
	b.Fail("POST /ingest/upload-csv", http.StatusBadRequest, "Invalid file type. Please upload a CSV.")
	path := writeFile(t, "bank.csv", validCSV)

	res, err := u.Upload(context.Background(), Request{Path: path, ClearFirst: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid file type")
	require.NotNil(t, res)
	assert.True(t, res.Cleared)
	assert.Equal(t, 1, b.Cleared())
}

func TestUpload_PreflightRejectsBeforeAnyRequest(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{name: "unsupported extension", file: "bank.xlsx", content: "x", wantErr: ErrUnsupportedFormat},
		{name: "missing columns", file: "bank.csv", content: "Date,Amount\n2024-01-01,10\n", wantErr: ErrMissingColumns},
		{name: "empty csv", file: "bank.csv", content: "", wantErr: ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, u := newUploader(t)
			path := writeFile(t, tt.file, tt.content)

			_, err := u.Upload(context.Background(), Request{Path: path, ClearFirst: true})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, b.Cleared())
			assert.Empty(t, b.Uploads())
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	_, u := newUploader(t)
	_, err := u.Upload(context.Background(), Request{Path: filepath.Join(t.TempDir(), "nope.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpload_ConvertsOFX(t *testing.T) {
	b, u := newUploader(t)
	path := writeFile(t, "statement.qfx", sampleOFX)

	res, err := u.Upload(context.Background(), Request{Path: path})
	require.NoError(t, err)
	assert.True(t, res.Converted)
	assert.Equal(t, "statement.csv", res.Filename)

	uploads := b.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "statement.csv", uploads[0].Filename)
	require.NoError(t, ValidateHeader(strings.NewReader(uploads[0].Content)))
	assert.Contains(t, uploads[0].Content, "LOOP1,ACC1300,ACC1301,49000.00,INR,WIRE TO ACC1301")
}

func TestUpload_Progress(t *testing.T) {
	var progress bytes.Buffer
	var size int64
	_, u := newUploader(t, WithProgress(func(n int64) io.Writer {
		size = n
		return &progress
	}))
	path := writeFile(t, "bank.csv", validCSV)

	_, err := u.Upload(context.Background(), Request{Path: path})
	require.NoError(t, err)
	assert.Equal(t, int64(len(validCSV)), size)
	assert.Equal(t, validCSV, progress.String())
}

func TestUpload_Wait(t *testing.T) {
	b := testutil.SetupBackend(t)
	c, err := api.NewClient(b.URL)
	require.NoError(t, err)
	b.AddJob("upload-job", &testutil.JobScript{
		Statuses:   []model.JobStatus{model.JobPending, model.JobSuccess},
		ResultType: model.ResultGeneric,
		Result:     "Processing complete. 1 transactions ingested.",
	})
	poller := jobs.NewPoller(c, config.PollConfig{InitialDelay: time.Millisecond, Interval: time.Millisecond, MaxAttempts: 5})
	u := NewUploader(c, WithPoller(poller))

	res, err := u.Upload(context.Background(), Request{Path: writeFile(t, "bank.csv", validCSV), Wait: true})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, jobs.Succeeded, res.Outcome.Kind)
	assert.JSONEq(t, `"Processing complete. 1 transactions ingested."`, string(res.Outcome.Result))
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "full header", header: strings.Join(model.LedgerHeader, ",")},
		{name: "required only", header: "Date,Transaction_ID,Debit_Account,Credit_Account,Amount"},
		{name: "byte order mark", header: "\ufeffDate,Transaction_ID,Debit_Account,Credit_Account,Amount"},
		{name: "padded names", header: "Date, Transaction_ID, Debit_Account, Credit_Account, Amount"},
		{name: "missing amount", header: "Date,Transaction_ID,Debit_Account,Credit_Account", wantErr: ErrMissingColumns},
		{name: "empty", header: "", wantErr: ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(strings.NewReader(tt.header))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []model.LedgerRow{{
		Date:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		TransactionID: "T1",
		DebitAccount:  "ACC1",
		CreditAccount: "Shop, Inc",
		Amount:        12.5,
		Currency:      "INR",
		Description:   "Groceries",
	}})
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Transaction_ID,Debit_Account,Credit_Account,Amount,Currency,Description\n"+
			"2024-01-02T03:04:05,T1,ACC1,\"Shop, Inc\",12.50,INR,Groceries\n",
		buf.String())
}
