package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// expiryLeeway treats tokens about to expire as already expired.
const expiryLeeway = 10 * time.Second

// Claims is the subset of session token claims shown to the analyst.
type Claims struct {
	Expiry  time.Time
	Subject string
	Issuer  string
}

// InspectToken reads the claims of a JWT session token without verifying
// its signature; the backend is the authority on validity. Opaque tokens
// yield ok == false.
func InspectToken(raw string) (Claims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Claims{}, false
	}

	var c Claims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.Expiry = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		c.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		c.Issuer = iss
	}
	return c, true
}

// NewSessionToken wraps a pasted session token, taking its expiry from the
// JWT claims when present.
func NewSessionToken(raw string) *oauth2.Token {
	raw = strings.TrimSpace(raw)
	token := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, ok := InspectToken(raw); ok {
		token.Expiry = claims.Expiry
	}
	return token
}

// Expired reports whether the token can no longer be sent.
func Expired(token *oauth2.Token) bool {
	if token == nil || token.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(expiryLeeway).After(token.Expiry)
}

// Login exchanges client credentials for a session token.
func Login(ctx context.Context, cfg config.AuthConfig) (*oauth2.Token, error) {
	if cfg.ClientID == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("%w: auth.client_id, auth.client_secret and auth.token_url are required", common.ErrMissingConfig)
	}

	token, err := clientCredentials(cfg).Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain session token: %w", err)
	}
	return token, nil
}

// NewTokenSource returns the source of credentials for backend requests.
// Client credentials, when configured, are refreshed automatically and the
// latest token is persisted. Otherwise the saved session token is used until
// it expires. ErrNoSession means no credential is available at all.
func NewTokenSource(ctx context.Context, cfg config.AuthConfig) (oauth2.TokenSource, error) {
	saved, err := LoadToken(cfg.TokenFile)
	if err != nil && !errors.Is(err, common.ErrNoSession) {
		slog.Warn("Ignoring unreadable session token", "file", cfg.TokenFile, "error", err)
		saved = nil
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "" {
		base := clientCredentials(cfg).TokenSource(ctx)
		return &persistingSource{
			base:  oauth2.ReuseTokenSource(saved, base),
			path:  cfg.TokenFile,
			saved: saved,
		}, nil
	}

	if saved == nil {
		return nil, common.ErrNoSession
	}
	return &sessionSource{token: saved}, nil
}

func clientCredentials(cfg config.AuthConfig) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
}

// sessionSource serves a saved token that cannot be refreshed locally.
type sessionSource struct {
	token *oauth2.Token
}

func (s *sessionSource) Token() (*oauth2.Token, error) {
	if Expired(s.token) {
		return nil, common.NewUserError("Session expired, run 'caseworker auth login'", common.ErrSessionExpired)
	}
	return s.token, nil
}

// persistingSource saves every newly issued token to disk.
type persistingSource struct {
	base  oauth2.TokenSource
	saved *oauth2.Token
	path  string
	mu    sync.Mutex
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil || p.saved.AccessToken != token.AccessToken {
		if err := SaveToken(p.path, token); err != nil {
			slog.Warn("Failed to persist session token", "file", p.path, "error", err)
		}
		p.saved = token
	}
	return token, nil
}
