package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/haikuplus/haikuplus-server/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo  UserRepository
	newID func() string
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, newID: uuid.NewString}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, nil
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.repo.GetByExternalID(ctx, externalID)
}

// FindOrCreateByExternalID resolves the local user for a provider identity, creating one
// with a fresh random id and an empty profile cache on first sight.
func (s *Service) FindOrCreateByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, errors.New("external id is empty")
	}
	u, err := s.repo.FindOrCreateByExternalID(ctx, externalID, s.newID())
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return u, nil
}

// KnownUsers returns the local users among the given provider ids; unknown ids are skipped.
func (s *Service) KnownUsers(ctx context.Context, externalIDs []string) ([]*models.User, error) {
	return s.repo.ListByExternalIDs(ctx, externalIDs)
}

func (s *Service) Update(ctx context.Context, u *models.User) error {
	return s.repo.Update(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
