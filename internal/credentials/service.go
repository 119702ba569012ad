package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/haikuplus/haikuplus-server/internal/models"
)

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

func (s *Service) Get(ctx context.Context, userID string) (*models.Credential, error) {
	return s.repo.Get(ctx, userID)
}

// Upsert stores c as the user's credential. The provider only returns a refresh token on
// first consent, so an incoming credential without one keeps the stored refresh token.
func (s *Service) Upsert(ctx context.Context, c *models.Credential) error {
	if c.UserID == "" {
		return errors.New("credential has no user id")
	}
	if c.RefreshToken == "" {
		old, err := s.repo.Get(ctx, c.UserID)
		if err != nil {
			return fmt.Errorf("load credential: %w", err)
		}
		if old != nil {
			c.RefreshToken = old.RefreshToken
		}
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}
