package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"github.com/okian/remindr/pkg/logger"
)

// CalendarReadonlyScope is the only scope the reminder needs.
const CalendarReadonlyScope = "https://www.googleapis.com/auth/calendar.readonly"

type clientSecrets struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	RedirectURIs []string `json:"redirect_uris"`
}

// LoadOAuthConfig reads a Google client secrets file ("installed" or "web").
func LoadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials: %w", ErrConfig, err)
	}
	var wrapper struct {
		Installed *clientSecrets `json:"installed"`
		Web       *clientSecrets `json:"web"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: parse credentials: %w", ErrConfig, err)
	}
	cs := wrapper.Installed
	if cs == nil {
		cs = wrapper.Web
	}
	if cs == nil || cs.ClientID == "" || cs.TokenURI == "" {
		return nil, fmt.Errorf("%w: credentials missing client_id or token_uri", ErrConfig)
	}
	cfg := &oauth2.Config{
		ClientID:     cs.ClientID,
		ClientSecret: cs.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cs.AuthURI,
			TokenURL: cs.TokenURI,
		},
		Scopes: []string{CalendarReadonlyScope},
	}
	if len(cs.RedirectURIs) > 0 {
		cfg.RedirectURL = cs.RedirectURIs[0]
	}
	return cfg, nil
}

// LoadToken reads a previously provisioned token file.
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read token: %w", ErrAuth, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: parse token: %w", ErrAuth, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token file has neither access nor refresh token", ErrAuth)
	}
	return &tok, nil
}

// SaveToken writes tok to tokenPath with owner-only permissions.
func SaveToken(tokenPath string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(tokenPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(tokenPath, data, 0o600)
}

// NewOAuthClient builds an authorized HTTP client from the credentials and
// token files. Refreshed tokens are written back to tokenPath.
func NewOAuthClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	cfg, err := LoadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	src := &persistingTokenSource{
		base:   cfg.TokenSource(ctx, tok),
		path:   tokenPath,
		last:   tok.AccessToken,
		logger: logger.Get().Named("calendar"),
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	client.Timeout = defaultHTTPTimeout
	return client, nil
}

type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	path   string
	last   string
	logger logger.Logger
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := SaveToken(p.path, tok); err != nil {
			p.logger.Warn(context.Background(), "failed to persist refreshed token", logger.Error(err))
		}
	}
	return tok, nil
}

func isAuthError(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}
