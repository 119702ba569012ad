package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultTTL applies when the service is built with a non-positive TTL.
const DefaultTTL = 14 * 24 * time.Hour

// Service wraps repository operations with the session lifecycle: implicit creation,
// user binding, full clearing (with handle rotation) and sign-out.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: r, ttl: ttl, now: time.Now}
}

// TTL is how long a session lives after it is created.
func (s *Service) TTL() time.Duration { return s.ttl }

func newHandle() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Load returns the live session for handle, or a new empty session when the handle is
// empty, unknown or expired.
func (s *Service) Load(ctx context.Context, handle string) (*Session, error) {
	if handle != "" {
		sess, err := s.repo.Get(ctx, handle)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if sess != nil {
			return sess, nil
		}
	}
	return s.create(ctx)
}

func (s *Service) create(ctx context.Context) (*Session, error) {
	h, err := newHandle()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{Handle: h, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// SetUser binds the session to a local user.
func (s *Service) SetUser(ctx context.Context, sess *Session, userID string) error {
	sess.UserID = userID
	if err := s.repo.Save(ctx, sess); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}
	return nil
}

// Clear discards everything in the session: the old record is deleted and sess is
// replaced in place by a fresh, unbound session under a new handle.
func (s *Service) Clear(ctx context.Context, sess *Session) error {
	if sess.Handle != "" {
		if err := s.repo.Delete(ctx, sess.Handle); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	fresh, err := s.create(ctx)
	if err != nil {
		return err
	}
	*sess = *fresh
	return nil
}

// SignOut removes the user binding but keeps the session.
func (s *Service) SignOut(ctx context.Context, sess *Session) error {
	if sess.UserID == "" {
		return nil
	}
	return s.SetUser(ctx, sess, "")
}
