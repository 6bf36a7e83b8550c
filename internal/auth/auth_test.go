package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "analyst@bank.com",
		"iss": "compliance-backend",
		"exp": exp.Unix(),
	})
	raw, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return raw
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, ok := InspectToken(signedToken(t, exp))
	require.True(t, ok)
	assert.Equal(t, "analyst@bank.com", claims.Subject)
	assert.Equal(t, "compliance-backend", claims.Issuer)
	assert.True(t, exp.Equal(claims.Expiry))

	_, ok = InspectToken("opaque-token")
	assert.False(t, ok)
}

func TestNewSessionToken_Expiry(t *testing.T) {
	fresh := NewSessionToken(signedToken(t, time.Now().Add(time.Hour)))
	assert.False(t, Expired(fresh))

	stale := NewSessionToken(signedToken(t, time.Now().Add(-time.Minute)))
	assert.True(t, Expired(stale))

	opaque := NewSessionToken("  opaque  ")
	assert.Equal(t, "opaque", opaque.AccessToken)
	assert.False(t, Expired(opaque))
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	_, err := LoadToken(path)
	require.ErrorIs(t, err, common.ErrNoSession)

	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)

	require.NoError(t, DeleteToken(path))
	require.NoError(t, DeleteToken(path))
}

func TestNewTokenSource_SavedSession(t *testing.T) {
	dir := t.TempDir()
	cfg := config.AuthConfig{TokenFile: filepath.Join(dir, "token.json")}

	_, err := NewTokenSource(context.Background(), cfg)
	require.ErrorIs(t, err, common.ErrNoSession)

	require.NoError(t, SaveToken(cfg.TokenFile, NewSessionToken(signedToken(t, time.Now().Add(-time.Hour)))))
	ts, err := NewTokenSource(context.Background(), cfg)
	require.NoError(t, err)

	_, err = ts.Token()
	require.ErrorIs(t, err, common.ErrSessionExpired)
}

func TestNewTokenSource_ClientCredentials(t *testing.T) {
	issued := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		issued++
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"issued-%d","token_type":"bearer","expires_in":3600}`, issued)
	}))
	defer server.Close()

	cfg := config.AuthConfig{
		TokenURL:     server.URL,
		ClientID:     "desk",
		ClientSecret: "secret",
		TokenFile:    filepath.Join(t.TempDir(), "token.json"),
	}

	ts, err := NewTokenSource(context.Background(), cfg)
	require.NoError(t, err)

	first, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "issued-1", first.AccessToken)

	second, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "issued-1", second.AccessToken, "valid token should be reused")
	assert.Equal(t, 1, issued)

	saved, err := LoadToken(cfg.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "issued-1", saved.AccessToken)

	token, err := Login(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "issued-2", token.AccessToken)
}

func TestLogin_MissingConfig(t *testing.T) {
	_, err := Login(context.Background(), config.AuthConfig{})
	require.ErrorIs(t, err, common.ErrMissingConfig)
}
