package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haikuplus/haikuplus-server/internal/haiku"
	"github.com/haikuplus/haikuplus-server/internal/haiku/repository"
	"github.com/haikuplus/haikuplus-server/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("haiku not found")
	ErrNoAuthor = errors.New("no author found")
)

// AuthorLookup resolves haiku authors. Satisfied by *users.Service.
type AuthorLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Service defines the haiku business operations used by the handler layer.
// Every returned haiku has its author resolved and its sharing links set.
type Service interface {
	List(ctx context.Context) ([]*haiku.Haiku, error)
	ListByAuthors(ctx context.Context, authorIDs []string) ([]*haiku.Haiku, error)
	Get(ctx context.Context, id string) (*haiku.Haiku, error)
	Create(ctx context.Context, author *models.User, d haiku.Draft) (*haiku.Haiku, error)
	Vote(ctx context.Context, id string) (*haiku.Haiku, error)
	DeleteByAuthor(ctx context.Context, authorID string) error
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(authors AuthorLookup, baseURI string) Service {
	return NewService(repository.NewMemoryRepo(), authors, baseURI)
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection, authors AuthorLookup, baseURI string) Service {
	return NewService(repository.NewMongoRepo(col), authors, baseURI)
}

func NewService(repo repository.Repository, authors AuthorLookup, baseURI string) Service {
	return &service{repo: repo, authors: authors, baseURI: strings.TrimRight(baseURI, "/"), now: time.Now}
}

type service struct {
	repo    repository.Repository
	authors AuthorLookup
	baseURI string
	now     func() time.Time
}

func (s *service) List(ctx context.Context) ([]*haiku.Haiku, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list haikus: %w", err)
	}
	return s.decorate(ctx, list)
}

func (s *service) ListByAuthors(ctx context.Context, authorIDs []string) ([]*haiku.Haiku, error) {
	list, err := s.repo.ListByAuthors(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("list haikus by author: %w", err)
	}
	return s.decorate(ctx, list)
}

func (s *service) Get(ctx context.Context, id string) (*haiku.Haiku, error) {
	h, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decorateOne(ctx, h)
}

// Create stores a new haiku by author with zero votes, stamped now.
func (s *service) Create(ctx context.Context, author *models.User, d haiku.Draft) (*haiku.Haiku, error) {
	if author == nil || author.ID == "" {
		return nil, ErrNoAuthor
	}
	h := &haiku.Haiku{
		ID:           uuid.NewString(),
		AuthorID:     author.ID,
		Title:        d.Title,
		LineOne:      d.LineOne,
		LineTwo:      d.LineTwo,
		LineThree:    d.LineThree,
		Votes:        0,
		CreationTime: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("create haiku: %w", err)
	}
	h.Author = author
	h.SetLinks(s.baseURI)
	return h, nil
}

func (s *service) Vote(ctx context.Context, id string) (*haiku.Haiku, error) {
	h, err := s.repo.IncrementVotes(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decorateOne(ctx, h)
}

func (s *service) DeleteByAuthor(ctx context.Context, authorID string) error {
	if _, err := s.repo.DeleteByAuthor(ctx, authorID); err != nil {
		return fmt.Errorf("delete haikus: %w", err)
	}
	return nil
}

func (s *service) decorateOne(ctx context.Context, h *haiku.Haiku) (*haiku.Haiku, error) {
	out, err := s.decorate(ctx, []*haiku.Haiku{h})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// decorate resolves authors (once per distinct author) and sets sharing links.
func (s *service) decorate(ctx context.Context, list []*haiku.Haiku) ([]*haiku.Haiku, error) {
	seen := map[string]*models.User{}
	for _, h := range list {
		if s.authors != nil && h.AuthorID != "" {
			u, ok := seen[h.AuthorID]
			if !ok {
				var err error
				u, err = s.authors.GetByID(ctx, h.AuthorID)
				if err != nil {
					return nil, fmt.Errorf("resolve author: %w", err)
				}
				seen[h.AuthorID] = u
			}
			h.Author = u
		}
		h.SetLinks(s.baseURI)
	}
	return list, nil
}
