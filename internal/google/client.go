package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/models"
	"github.com/haikuplus/haikuplus-server/internal/oidc"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
	"github.com/haikuplus/haikuplus-server/pkg/metrics"
	"golang.org/x/oauth2"
)

var (
	// ErrRejected means the provider refused the credential or grant (4xx, invalid_grant, ...).
	ErrRejected = errors.New("provider rejected credential")
	// ErrUnavailable means the provider could not be reached or failed (transport, timeout, 5xx).
	ErrUnavailable = errors.New("provider unavailable")
)

var log = logger.Named("google")

// Config points the client at the provider endpoints.
type Config struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	TokenInfoURL   string
	UserInfoURL    string
	RevokeURL      string
	ConnectionsURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Verifier       oidc.TokenVerifier
}

// TokenBundle is the result of a code exchange or token refresh.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	ExpiresIn    int64
}

// Credential converts the bundle into a stored credential created at now.
func (b *TokenBundle) Credential(userID string, now time.Time) *models.Credential {
	return &models.Credential{
		UserID:       userID,
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		IDToken:      b.IDToken,
		TokenType:    b.TokenType,
		ExpiresIn:    b.ExpiresIn,
		Created:      now.UTC(),
	}
}

// TokenInfo is the tokeninfo endpoint's description of an access token.
type TokenInfo struct {
	UserID    string `json:"user_id"`
	Subject   string `json:"sub"`
	Audience  string `json:"audience"`
	IssuedTo  string `json:"issued_to"`
	Scope     string `json:"scope"`
	ExpiresIn int64  `json:"expires_in"`
}

// ExternalID returns the provider user id the token belongs to.
func (t *TokenInfo) ExternalID() string {
	if t.UserID != "" {
		return t.UserID
	}
	return t.Subject
}

// ProfileResult is a fetched profile plus the refreshed token bundle, when a refresh happened.
type ProfileResult struct {
	Profile   models.Profile
	Refreshed *TokenBundle
}

// Client talks to Google's OAuth 2.0 and profile endpoints.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc}
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// callContext bounds a provider call and makes the oauth2 package use our HTTP client.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// VerifyIDToken returns the subject of a valid ID token.
func (c *Client) VerifyIDToken(ctx context.Context, raw string) (string, error) {
	if c.cfg.Verifier == nil {
		return "", fmt.Errorf("verify id token: %w: no verifier configured", ErrRejected)
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	start := time.Now()
	sub, err := c.cfg.Verifier.Verify(ctx, raw)
	if err != nil {
		err = fmt.Errorf("verify id token: %w: %v", ErrRejected, err)
	}
	observe("verify_id_token", start, err)
	return sub, err
}

// ExchangeCode redeems a one-time authorization code.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenBundle, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	start := time.Now()
	tok, err := c.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		err = classify("exchange code", err)
		observe("exchange_code", start, err)
		return nil, err
	}
	observe("exchange_code", start, nil)
	return bundleFromToken(tok), nil
}

// IntrospectAccessToken asks the tokeninfo endpoint about an access token.
func (c *Client) IntrospectAccessToken(ctx context.Context, accessToken string) (*TokenInfo, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	start := time.Now()

	u := c.cfg.TokenInfoURL + "?" + url.Values{"access_token": {accessToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var info TokenInfo
	err = c.doJSON(req, "tokeninfo", &info)
	observe("tokeninfo", start, err)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchProfile reads the user's profile with the stored credential, refreshing an
// expired access token with the refresh token first.
func (c *Client) FetchProfile(ctx context.Context, cred *models.Credential) (*ProfileResult, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	start := time.Now()

	hc, refreshed, err := c.authorizedClient(ctx, cred)
	if err != nil {
		observe("userinfo", start, err)
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	var info struct {
		Subject string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Profile string `json:"profile"`
	}
	err = doJSONWith(hc, req, "userinfo", &info)
	observe("userinfo", start, err)
	if err != nil {
		return nil, err
	}
	return &ProfileResult{
		Profile: models.Profile{
			ExternalID:  info.Subject,
			DisplayName: info.Name,
			PhotoURL:    info.Picture,
			ProfileURL:  info.Profile,
		},
		Refreshed: refreshed,
	}, nil
}

// RevokeToken revokes an access or refresh token at the provider.
func (c *Client) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("revoke: %w: empty token", ErrRejected)
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	start := time.Now()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	err = c.doJSON(req, "revoke", nil)
	observe("revoke", start, err)
	return err
}

// maxConnectionPages bounds the paging loop against a misbehaving endpoint.
const maxConnectionPages = 50

// ConnectionsResult is the user's circle plus the refreshed token bundle, when a refresh happened.
type ConnectionsResult struct {
	IDs       []string
	Refreshed *TokenBundle
}

// FetchConnections lists the provider ids of the people in the user's circles.
func (c *Client) FetchConnections(ctx context.Context, cred *models.Credential) (*ConnectionsResult, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	start := time.Now()

	hc, refreshed, err := c.authorizedClient(ctx, cred)
	if err != nil {
		observe("connections", start, err)
		return nil, err
	}

	var ids []string
	pageToken := ""
	for page := 0; page < maxConnectionPages; page++ {
		q := url.Values{"personFields": {"metadata"}, "pageSize": {"100"}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ConnectionsURL+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var resp struct {
			Connections []struct {
				ResourceName string `json:"resourceName"`
			} `json:"connections"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := doJSONWith(hc, req, "connections", &resp); err != nil {
			observe("connections", start, err)
			return nil, err
		}
		for _, p := range resp.Connections {
			if id := strings.TrimPrefix(p.ResourceName, "people/"); id != "" {
				ids = append(ids, id)
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	observe("connections", start, nil)
	return &ConnectionsResult{IDs: ids, Refreshed: refreshed}, nil
}

// authorizedClient returns an HTTP client that sends the credential's access token,
// refreshing it first when it has expired. The refreshed bundle is returned so it can be stored.
func (c *Client) authorizedClient(ctx context.Context, cred *models.Credential) (*http.Client, *TokenBundle, error) {
	if cred == nil {
		return nil, nil, fmt.Errorf("authorize: %w: no credential", ErrRejected)
	}
	src := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.Expiry(),
	})
	tok, err := src.Token()
	if err != nil {
		if cred.RefreshToken == "" {
			// expired with nothing to refresh it with; no request was made
			return nil, nil, fmt.Errorf("refresh token: %w: %v", ErrRejected, err)
		}
		return nil, nil, classify("refresh token", err)
	}
	var refreshed *TokenBundle
	if tok.AccessToken != cred.AccessToken {
		log.Debugf("access token refreshed for user %s", cred.UserID)
		refreshed = bundleFromToken(tok)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)), refreshed, nil
}

func (c *Client) doJSON(req *http.Request, op string, out interface{}) error {
	return doJSONWith(c.http, req, op, out)
}

func doJSONWith(hc *http.Client, req *http.Request, op string, out interface{}) error {
	resp, err := hc.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(op, resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %v", op, ErrUnavailable, err)
	}
	return nil
}

func statusError(op string, status int, body []byte) error {
	if status >= 500 || status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: status %d", op, ErrUnavailable, status)
	}
	return fmt.Errorf("%s: %w: status %d: %s", op, ErrRejected, status, strings.TrimSpace(string(body)))
}

// classify maps oauth2 and transport errors onto ErrRejected / ErrUnavailable.
func classify(op string, err error) error {
	if errors.Is(err, ErrRejected) || errors.Is(err, ErrUnavailable) {
		return err
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil && (rerr.Response.StatusCode >= 500 || rerr.Response.StatusCode == http.StatusTooManyRequests) {
			return fmt.Errorf("%s: %w: status %d", op, ErrUnavailable, rerr.Response.StatusCode)
		}
		return fmt.Errorf("%s: %w: %s", op, ErrRejected, rerr.ErrorCode)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func bundleFromToken(tok *oauth2.Token) *TokenBundle {
	b := &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if idt, ok := tok.Extra("id_token").(string); ok {
		b.IDToken = idt
	}
	if !tok.Expiry.IsZero() {
		b.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return b
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrRejected):
		result = "rejected"
	case err != nil:
		result = "unavailable"
	}
	metrics.ProviderCalls.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
