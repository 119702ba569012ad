package circles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/google"
	"github.com/haikuplus/haikuplus-server/internal/models"
	"github.com/haikuplus/haikuplus-server/pkg/logger"
)

var log = logger.Named("circles")

// ConnectionsFetcher lists the provider ids of the people in a user's circles.
// Errors wrap google.ErrRejected or google.ErrUnavailable.
type ConnectionsFetcher interface {
	FetchConnections(ctx context.Context, cred *models.Credential) (*google.ConnectionsResult, error)
}

// CredentialStore is the user's stored provider credential. Upsert keeps the stored
// refresh token when the update has none.
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	Upsert(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, userID string) error
}

// UserDirectory maps provider ids onto existing local users.
type UserDirectory interface {
	KnownUsers(ctx context.Context, externalIDs []string) ([]*models.User, error)
}

type Service struct {
	repo        Repository
	provider    ConnectionsFetcher
	credentials CredentialStore
	users       UserDirectory
	now         func() time.Time
}

func NewService(repo Repository, provider ConnectionsFetcher, creds CredentialStore, users UserDirectory) *Service {
	return &Service{repo: repo, provider: provider, credentials: creds, users: users, now: time.Now}
}

// Refresh replaces the user's outgoing edges with the people in their circles who
// also use Haiku+. Without a stored credential nothing changes. A credential the
// provider rejects is deleted so the next authentication asks for a new code.
func (s *Service) Refresh(ctx context.Context, user *models.User) error {
	cred, err := s.credentials.Get(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return nil
	}
	res, err := s.provider.FetchConnections(ctx, cred)
	if err != nil {
		if errors.Is(err, google.ErrRejected) {
			if derr := s.credentials.Delete(ctx, user.ID); derr != nil {
				log.Errorf("delete credential for user %s: %v", user.ID, derr)
			}
		}
		return fmt.Errorf("fetch connections: %w", err)
	}
	if res.Refreshed != nil {
		if err := s.credentials.Upsert(ctx, res.Refreshed.Credential(user.ID, s.now())); err != nil {
			return fmt.Errorf("store refreshed credential: %w", err)
		}
	}

	known, err := s.users.KnownUsers(ctx, res.IDs)
	if err != nil {
		return fmt.Errorf("resolve connections: %w", err)
	}
	targets := make([]string, 0, len(known))
	for _, u := range known {
		if u.ID != user.ID {
			targets = append(targets, u.ID)
		}
	}
	if err := s.repo.ReplaceForSource(ctx, user.ID, targets); err != nil {
		return fmt.Errorf("store edges: %w", err)
	}
	log.Debugf("user %s: %d connections, %d on haiku+", user.ID, len(res.IDs), len(targets))
	return nil
}

// RefreshBestEffort refreshes edges and logs failures; a stale circle is still usable.
func (s *Service) RefreshBestEffort(ctx context.Context, user *models.User) {
	if err := s.Refresh(ctx, user); err != nil {
		log.Warnf("circle refresh for user %s failed: %v", user.ID, err)
	}
}

// Targets returns the ids of the users in userID's circles.
func (s *Service) Targets(ctx context.Context, userID string) ([]string, error) {
	return s.repo.TargetsOf(ctx, userID)
}

// DeleteForUser removes every edge touching userID.
func (s *Service) DeleteForUser(ctx context.Context, userID string) error {
	return s.repo.DeleteForUser(ctx, userID)
}
