package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/google"
	"github.com/haikuplus/haikuplus-server/internal/models"
	"github.com/haikuplus/haikuplus-server/internal/sessions"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
	"github.com/haikuplus/haikuplus-server/pkg/metrics"
)

var log = logger.Named("auth")

// CacheMaxAge is how long a cached profile is served without asking the provider.
const CacheMaxAge = 24 * time.Hour

// IdentityProvider is the subset of the Google client the authenticator drives.
// Errors wrap google.ErrRejected or google.ErrUnavailable.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, raw string) (string, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*google.TokenBundle, error)
	IntrospectAccessToken(ctx context.Context, accessToken string) (*google.TokenInfo, error)
	FetchProfile(ctx context.Context, cred *models.Credential) (*google.ProfileResult, error)
	RevokeToken(ctx context.Context, token string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindOrCreateByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
}

type CredentialStore interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	Upsert(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, userID string) error
}

type SessionStore interface {
	SetUser(ctx context.Context, sess *sessions.Session, userID string) error
	Clear(ctx context.Context, sess *sessions.Session) error
	SignOut(ctx context.Context, sess *sessions.Session) error
}

// ContentStore purges a user's haikus.
type ContentStore interface {
	DeleteByAuthor(ctx context.Context, authorID string) error
}

// EdgeStore purges a user's circle edges.
type EdgeStore interface {
	DeleteForUser(ctx context.Context, userID string) error
}

// RevocationList remembers access tokens revoked by disconnect. Optional.
type RevocationList interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// Deps are the collaborators of an Authenticator. Edges and Revoked may be nil.
type Deps struct {
	Provider    IdentityProvider
	Users       UserStore
	Credentials CredentialStore
	Sessions    SessionStore
	Content     ContentStore
	Edges       EdgeStore
	Revoked     RevocationList
}

// Authenticator resolves the user behind a request from its credential headers and
// session, keeping the stored credential and the cached profile up to date.
type Authenticator struct {
	clientID string
	deps     Deps
	now      func() time.Time
}

func New(clientID string, deps Deps) *Authenticator {
	return &Authenticator{clientID: clientID, deps: deps, now: time.Now}
}

// Authenticate runs the code branch, then the bearer branch, then resolves the session
// user and refreshes its cached profile when stale. Errors are always *Error.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header, sess *sessions.Session) (*models.User, error) {
	in := ParseHeaders(h)

	if in.Code != "" {
		if err := a.processCode(ctx, sess, in.Code, in.RedirectURI); err != nil {
			metrics.AuthOutcomes.WithLabelValues("code", "failed").Inc()
			return nil, err
		}
		metrics.AuthOutcomes.WithLabelValues("code", "ok").Inc()
	}

	if in.BearerToken != "" {
		if err := a.processBearer(ctx, sess, in.BearerToken); err != nil {
			metrics.AuthOutcomes.WithLabelValues("bearer", "failed").Inc()
			return nil, err
		}
		metrics.AuthOutcomes.WithLabelValues("bearer", "ok").Inc()
	}

	user, err := a.sessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if user == nil {
		metrics.AuthOutcomes.WithLabelValues("session", "failed").Inc()
		return nil, unauthorizedBearer("unable to identify user")
	}
	metrics.AuthOutcomes.WithLabelValues("session", "ok").Inc()

	cred, err := a.deps.Credentials.Get(ctx, user.ID)
	if err != nil {
		log.Errorf("load credential for user %s: %v", user.ID, err)
		return nil, internal("could not load credential")
	}
	return a.refreshCache(ctx, user, cred)
}

func (a *Authenticator) processCode(ctx context.Context, sess *sessions.Session, code, redirectURI string) error {
	bundle, err := a.deps.Provider.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		if errors.Is(err, google.ErrUnavailable) {
			log.Warnf("code exchange: %v", err)
			return internal("could not communicate with provider")
		}
		log.Infof("code exchange rejected: %v", err)
		return unauthorizedCode("invalid authorization code")
	}
	if bundle.IDToken == "" {
		return unauthorizedCode("invalid authorization code")
	}
	externalID, err := a.deps.Provider.VerifyIDToken(ctx, bundle.IDToken)
	if err != nil {
		log.Infof("id token from code exchange failed verification: %v", err)
		return unauthorizedCode("invalid authorization code")
	}

	user, err := a.setUserInSessionWithExternalID(ctx, sess, externalID)
	if err != nil {
		return err
	}
	return a.storeCredential(ctx, bundle.Credential(user.ID, a.now()))
}

func (a *Authenticator) processBearer(ctx context.Context, sess *sessions.Session, token string) error {
	if externalID, err := a.deps.Provider.VerifyIDToken(ctx, token); err == nil {
		_, err := a.setUserInSessionWithExternalID(ctx, sess, externalID)
		return err
	}

	if a.deps.Revoked != nil {
		revoked, err := a.deps.Revoked.Contains(ctx, token)
		if err != nil {
			log.Warnf("revocation list lookup: %v", err)
		} else if revoked {
			log.Infof("refused revoked access token %s", logger.Token(token))
			return unauthorizedBearer("invalid bearer token")
		}
	}

	info, err := a.deps.Provider.IntrospectAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, google.ErrUnavailable) {
			log.Warnf("tokeninfo: %v", err)
			return internal("could not communicate with provider")
		}
		log.Debugf("bearer %s rejected by tokeninfo: %v", logger.Token(token), err)
		return unauthorizedBearer("invalid bearer token")
	}
	if !sameProject(info.Audience, a.clientID) || info.ExternalID() == "" {
		log.Warnf("access token issued to foreign client %q", info.Audience)
		return unauthorizedBearer("invalid bearer token")
	}

	user, err := a.setUserInSessionWithExternalID(ctx, sess, info.ExternalID())
	if err != nil {
		return err
	}
	return a.storeCredential(ctx, &models.Credential{
		UserID:      user.ID,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   info.ExpiresIn,
		Created:     a.now().UTC(),
	})
}

// setUserInSessionWithExternalID binds the local user for externalID to the session.
// A session bound to a different user (or to nobody) is cleared first.
func (a *Authenticator) setUserInSessionWithExternalID(ctx context.Context, sess *sessions.Session, externalID string) (*models.User, error) {
	current, err := a.sessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if current != nil && current.ExternalID == externalID {
		return current, nil
	}

	if err := a.deps.Sessions.Clear(ctx, sess); err != nil {
		log.Errorf("clear session: %v", err)
		return nil, internal("could not update session")
	}
	user, err := a.deps.Users.FindOrCreateByExternalID(ctx, externalID)
	if err != nil {
		log.Errorf("resolve user: %v", err)
		return nil, internal("could not resolve user")
	}
	if err := a.deps.Sessions.SetUser(ctx, sess, user.ID); err != nil {
		log.Errorf("bind session: %v", err)
		return nil, internal("could not update session")
	}
	return user, nil
}

func (a *Authenticator) sessionUser(ctx context.Context, sess *sessions.Session) (*models.User, error) {
	if sess == nil || sess.UserID == "" {
		return nil, nil
	}
	u, err := a.deps.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		log.Errorf("load session user %s: %v", sess.UserID, err)
		return nil, internal("could not load user")
	}
	return u, nil
}

// storeCredential upserts c, keeping the refresh token already on file when c has none.
func (a *Authenticator) storeCredential(ctx context.Context, c *models.Credential) error {
	if c.RefreshToken == "" {
		old, err := a.deps.Credentials.Get(ctx, c.UserID)
		if err != nil {
			log.Errorf("load credential for user %s: %v", c.UserID, err)
			return internal("could not store credential")
		}
		if old != nil {
			c.RefreshToken = old.RefreshToken
		}
	}
	if err := a.deps.Credentials.Upsert(ctx, c); err != nil {
		log.Errorf("store credential for user %s: %v", c.UserID, err)
		return internal("could not store credential")
	}
	return nil
}

// refreshCache returns user unchanged while its profile is fresh, and otherwise
// refetches the profile with cred. A credential the provider no longer accepts is
// deleted; an unreachable provider leaves it alone. A stale profile without a
// credential asks for a new authorization code.
func (a *Authenticator) refreshCache(ctx context.Context, user *models.User, cred *models.Credential) (*models.User, error) {
	now := a.now()
	if user.IsFresh(now, CacheMaxAge) {
		metrics.ProfileRefreshes.WithLabelValues("fresh").Inc()
		return user, nil
	}
	if cred == nil {
		// An ID-token sign-in has nothing to fetch with until a code arrives. A profile
		// that was fetched before but lost its credential must be reauthorized.
		if user.LastUpdated == nil {
			metrics.ProfileRefreshes.WithLabelValues("skipped").Inc()
			return user, nil
		}
		metrics.ProfileRefreshes.WithLabelValues("failed").Inc()
		return nil, unauthorizedCode("no refresh token")
	}

	res, err := a.deps.Provider.FetchProfile(ctx, cred)
	if err != nil {
		metrics.ProfileRefreshes.WithLabelValues("failed").Inc()
		if errors.Is(err, google.ErrRejected) {
			log.Infof("credential for user %s no longer valid: %v", user.ID, err)
			if derr := a.deps.Credentials.Delete(ctx, user.ID); derr != nil {
				log.Errorf("delete credential for user %s: %v", user.ID, derr)
			}
			if cred.RefreshToken == "" {
				return nil, unauthorizedCode("no refresh token")
			}
			return nil, unauthorizedCode("invalid refresh token")
		}
		log.Warnf("profile fetch for user %s: %v", user.ID, err)
		return nil, internal("could not communicate with provider")
	}

	if res.Refreshed != nil {
		if err := a.storeCredential(ctx, res.Refreshed.Credential(user.ID, now)); err != nil {
			return nil, err
		}
	}

	user.ApplyProfile(&res.Profile, now)
	if err := a.deps.Users.Update(ctx, user); err != nil {
		log.Errorf("update user %s: %v", user.ID, err)
		return nil, internal("could not update user")
	}
	metrics.ProfileRefreshes.WithLabelValues("refreshed").Inc()
	return user, nil
}

// SignOut unbinds the session's user. It never fails.
func (a *Authenticator) SignOut(ctx context.Context, sess *sessions.Session) {
	if sess == nil {
		return
	}
	if err := a.deps.Sessions.SignOut(ctx, sess); err != nil {
		log.Warnf("sign out: %v", err)
		sess.UserID = ""
	}
}

// Disconnect revokes the user's access at the provider and then deletes the credential,
// the user's haikus and circle edges, and the user, and signs the session out. Nothing
// is deleted unless the revoke succeeds. With a single identity mechanism the content
// cannot be re-associated with anyone afterwards.
func (a *Authenticator) Disconnect(ctx context.Context, user *models.User, sess *sessions.Session) error {
	cred, err := a.deps.Credentials.Get(ctx, user.ID)
	if err != nil {
		log.Errorf("load credential for user %s: %v", user.ID, err)
		return internal("could not revoke token")
	}
	if cred == nil || cred.AccessToken == "" {
		return internal("could not revoke token")
	}
	if err := a.deps.Provider.RevokeToken(ctx, cred.AccessToken); err != nil {
		log.Warnf("revoke for user %s: %v", user.ID, err)
		return internal("could not revoke token")
	}
	if a.deps.Revoked != nil {
		if err := a.deps.Revoked.Add(ctx, cred.AccessToken, remaining(cred, a.now())); err != nil {
			log.Warnf("remember revoked token: %v", err)
		}
	}

	if err := a.deps.Credentials.Delete(ctx, user.ID); err != nil {
		log.Errorf("delete credential for user %s: %v", user.ID, err)
		return internal("could not delete credential")
	}
	if err := a.deps.Content.DeleteByAuthor(ctx, user.ID); err != nil {
		log.Errorf("delete haikus for user %s: %v", user.ID, err)
		return internal("could not delete content")
	}
	if a.deps.Edges != nil {
		if err := a.deps.Edges.DeleteForUser(ctx, user.ID); err != nil {
			log.Errorf("delete edges for user %s: %v", user.ID, err)
			return internal("could not delete content")
		}
	}
	if err := a.deps.Users.Delete(ctx, user.ID); err != nil {
		log.Errorf("delete user %s: %v", user.ID, err)
		return internal("could not delete user")
	}
	a.SignOut(ctx, sess)
	log.Infof("user %s disconnected", user.ID)
	return nil
}

// remaining is how much longer the credential's access token would have been accepted.
func remaining(c *models.Credential, now time.Time) time.Duration {
	exp := c.Expiry()
	if exp.IsZero() {
		return time.Hour
	}
	return exp.Sub(now)
}
