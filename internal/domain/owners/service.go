package owners

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Name        string
	PhoneNumber string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Owner, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Owner{}, ErrInvalidInput
	}
	return s.repo.Create(ctx, Owner{
		Name:        name,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	})
}

func (s *Service) GetByID(ctx context.Context, id int64) (Owner, error) {
	if id <= 0 {
		return Owner{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Owner, error) {
	return s.repo.List(ctx)
}

// Exists lo usa pets para resolver ids por dueño sin importar este paquete en handlers.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
