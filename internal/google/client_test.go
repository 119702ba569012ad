package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGoogle is a single httptest server standing in for every provider endpoint.
type fakeGoogle struct {
	srv           *httptest.Server
	tokenStatus   int
	userinfoCalls int32
	refreshCalls  int32
	revoked       []string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{tokenStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
			return
		}
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "at-1",
				"refresh_token": "rt-1",
				"id_token":      "idt-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		case "refresh_token":
			atomic.AddInt32(&f.refreshCalls, 1)
			if r.Form.Get("refresh_token") != "rt-1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "at-2",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		}
	})
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "at-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"user_id":    "g-100",
			"audience":   "123-abc.apps.googleusercontent.com",
			"expires_in": 1200,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.userinfoCalls, 1)
		switch r.Header.Get("Authorization") {
		case "Bearer at-1", "Bearer at-2":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sub":     "g-100",
				"name":    "Ann Example",
				"picture": "https://example.com/ann.png",
				"profile": "https://example.com/ann",
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		tok := r.Form.Get("token")
		if tok != "at-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.revoked = append(f.revoked, tok)
	})
	mux.HandleFunc("/connections", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"connections":   []map[string]string{{"resourceName": "people/g-200"}},
				"nextPageToken": "p2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"connections": []map[string]string{{"resourceName": "people/g-300"}},
		})
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) client() *Client {
	return New(Config{
		ClientID:       "123-abc.apps.googleusercontent.com",
		ClientSecret:   "secret",
		TokenURL:       f.srv.URL + "/token",
		TokenInfoURL:   f.srv.URL + "/tokeninfo",
		UserInfoURL:    f.srv.URL + "/userinfo",
		RevokeURL:      f.srv.URL + "/revoke",
		ConnectionsURL: f.srv.URL + "/connections",
		Timeout:        2 * time.Second,
	})
}

func TestExchangeCode(t *testing.T) {
	f := newFakeGoogle(t)
	b, err := f.client().ExchangeCode(context.Background(), "good-code", "urn:ietf:wg:oauth:2.0:oob")
	require.NoError(t, err)
	assert.Equal(t, "at-1", b.AccessToken)
	assert.Equal(t, "rt-1", b.RefreshToken)
	assert.Equal(t, "idt-1", b.IDToken)
	assert.InDelta(t, 3600, b.ExpiresIn, 2)
}

func TestExchangeCode_RejectedCode(t *testing.T) {
	f := newFakeGoogle(t)
	_, err := f.client().ExchangeCode(context.Background(), "bad-code", "postmessage")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected), "got %v", err)
}

func TestExchangeCode_ServerErrorIsUnavailable(t *testing.T) {
	f := newFakeGoogle(t)
	f.tokenStatus = http.StatusInternalServerError
	_, err := f.client().ExchangeCode(context.Background(), "good-code", "postmessage")
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestExchangeCode_TransportFailureIsUnavailable(t *testing.T) {
	f := newFakeGoogle(t)
	c := f.client()
	f.srv.Close()
	_, err := c.ExchangeCode(context.Background(), "good-code", "postmessage")
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestIntrospectAccessToken(t *testing.T) {
	f := newFakeGoogle(t)
	info, err := f.client().IntrospectAccessToken(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "g-100", info.ExternalID())
	assert.Equal(t, "123-abc.apps.googleusercontent.com", info.Audience)
	assert.EqualValues(t, 1200, info.ExpiresIn)

	_, err = f.client().IntrospectAccessToken(context.Background(), "forged")
	assert.True(t, errors.Is(err, ErrRejected), "got %v", err)
}

func TestFetchProfile_ValidAccessToken(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "at-1", RefreshToken: "rt-1", ExpiresIn: 3600, Created: time.Now()}
	res, err := f.client().FetchProfile(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, "Ann Example", res.Profile.DisplayName)
	assert.Equal(t, "g-100", res.Profile.ExternalID)
	assert.Nil(t, res.Refreshed)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.refreshCalls))
}

func TestFetchProfile_RefreshesExpiredToken(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "stale", RefreshToken: "rt-1", ExpiresIn: 60, Created: time.Now().Add(-time.Hour)}
	res, err := f.client().FetchProfile(context.Background(), cred)
	require.NoError(t, err)
	require.NotNil(t, res.Refreshed)
	assert.Equal(t, "at-2", res.Refreshed.AccessToken)
	assert.Equal(t, "rt-1", res.Refreshed.RefreshToken)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.refreshCalls))
}

func TestFetchProfile_RevokedRefreshTokenIsRejected(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "stale", RefreshToken: "rt-revoked", ExpiresIn: 60, Created: time.Now().Add(-time.Hour)}
	_, err := f.client().FetchProfile(context.Background(), cred)
	assert.True(t, errors.Is(err, ErrRejected), "got %v", err)
}

func TestFetchProfile_ExpiredWithoutRefreshTokenIsRejected(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "stale", ExpiresIn: 60, Created: time.Now().Add(-time.Hour)}
	_, err := f.client().FetchProfile(context.Background(), cred)
	assert.True(t, errors.Is(err, ErrRejected), "got %v", err)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.userinfoCalls))
}

func TestFetchProfile_UnauthorizedIsRejected(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "revoked-at"}
	_, err := f.client().FetchProfile(context.Background(), cred)
	assert.True(t, errors.Is(err, ErrRejected), "got %v", err)
}

func TestFetchProfile_TimeoutIsUnavailable(t *testing.T) {
	f := newFakeGoogle(t)
	c := New(Config{UserInfoURL: f.srv.URL + "/slow", TokenURL: f.srv.URL + "/token", Timeout: 50 * time.Millisecond})
	_, err := c.FetchProfile(context.Background(), &models.Credential{AccessToken: "at-1"})
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestFetchProfile_ServerErrorIsUnavailable(t *testing.T) {
	f := newFakeGoogle(t)
	c := New(Config{UserInfoURL: f.srv.URL + "/broken", TokenURL: f.srv.URL + "/token", Timeout: time.Second})
	_, err := c.FetchProfile(context.Background(), &models.Credential{AccessToken: "at-1"})
	assert.True(t, errors.Is(err, ErrUnavailable), "got %v", err)
}

func TestRevokeToken(t *testing.T) {
	f := newFakeGoogle(t)
	require.NoError(t, f.client().RevokeToken(context.Background(), "at-1"))
	assert.Equal(t, []string{"at-1"}, f.revoked)

	assert.True(t, errors.Is(f.client().RevokeToken(context.Background(), "unknown"), ErrRejected))
	assert.True(t, errors.Is(f.client().RevokeToken(context.Background(), ""), ErrRejected))
}

func TestFetchConnections_FollowsPages(t *testing.T) {
	f := newFakeGoogle(t)
	res, err := f.client().FetchConnections(context.Background(), &models.Credential{AccessToken: "at-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g-200", "g-300"}, res.IDs)
	assert.Nil(t, res.Refreshed)
}

func TestFetchConnections_ReturnsRefreshedToken(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "stale", RefreshToken: "rt-1", ExpiresIn: 60, Created: time.Now().Add(-time.Hour)}
	res, err := f.client().FetchConnections(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, []string{"g-200", "g-300"}, res.IDs)
	require.NotNil(t, res.Refreshed)
	assert.Equal(t, "at-2", res.Refreshed.AccessToken)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.refreshCalls))
}

func TestFetchConnections_RevokedRefreshTokenIsRejected(t *testing.T) {
	f := newFakeGoogle(t)
	cred := &models.Credential{UserID: "u1", AccessToken: "stale", RefreshToken: "rt-revoked", ExpiresIn: 60, Created: time.Now().Add(-time.Hour)}
	_, err := f.client().FetchConnections(context.Background(), cred)
	assert.True(t, errors.Is(err, ErrRejected), "got %v", err)
}

type stubVerifier struct{ sub string }

func (s stubVerifier) Verify(ctx context.Context, raw string) (string, error) {
	if raw != "valid-id-token" {
		return "", errors.New("bad token")
	}
	return s.sub, nil
}

func TestVerifyIDToken(t *testing.T) {
	c := New(Config{Verifier: stubVerifier{sub: "g-1"}})
	sub, err := c.VerifyIDToken(context.Background(), "valid-id-token")
	require.NoError(t, err)
	assert.Equal(t, "g-1", sub)

	_, err = c.VerifyIDToken(context.Background(), "ya29.access")
	assert.True(t, errors.Is(err, ErrRejected))

	_, err = New(Config{}).VerifyIDToken(context.Background(), "x")
	assert.Error(t, err)
}

func TestTokenBundleCredential(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := (&TokenBundle{AccessToken: "a", RefreshToken: "r", ExpiresIn: 10}).Credential("u1", now)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, now, c.Created)
	assert.Equal(t, "r", c.RefreshToken)
}
