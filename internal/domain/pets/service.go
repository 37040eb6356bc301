package pets

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInjectedFailure = errors.New("injected failure")
)

// OwnerChecker evita el import pets -> owners.
type OwnerChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Chaos configura el endpoint no confiable (GET /pets/delay/{id}).
type Chaos struct {
	// FailureRate en [0,1]: probabilidad de devolver ErrInjectedFailure.
	FailureRate float64
	// MaxDelay: el retardo es uniforme en [0, MaxDelay).
	MaxDelay time.Duration
}

// DefaultChaos: falla la mitad de las veces, con hasta 2s de retardo.
func DefaultChaos() Chaos {
	return Chaos{FailureRate: 0.5, MaxDelay: 2 * time.Second}
}

type Service struct {
	repo   Repository
	owners OwnerChecker
	chaos  Chaos

	rnd   func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(repo Repository, owners OwnerChecker, chaos Chaos) *Service {
	return &Service{
		repo:   repo,
		owners: owners,
		chaos:  chaos,
		rnd:    rand.Float64,
		sleep:  sleepCtx,
	}
}

type CreateInput struct {
	OwnerID   int64
	Name      string
	Species   string
	BirthDate time.Time
	Weight    float64
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Pet, error) {
	if in.OwnerID <= 0 {
		return Pet{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Species) == "" {
		return Pet{}, ErrInvalidInput
	}
	if in.BirthDate.IsZero() {
		return Pet{}, ErrInvalidInput
	}

	return s.repo.Create(ctx, Pet{
		OwnerID:   in.OwnerID,
		Name:      strings.TrimSpace(in.Name),
		Species:   Species(strings.TrimSpace(in.Species)),
		BirthDate: truncateToDate(in.BirthDate),
		Weight:    in.Weight,
	})
}

func (s *Service) GetByID(ctx context.Context, id int64) (Pet, error) {
	if id <= 0 {
		return Pet{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Pet, error) {
	return s.repo.List(ctx)
}

// IDsByOwner devuelve los IDs de mascotas del dueño.
// Dueño inexistente => lista vacía, no error.
func (s *Service) IDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	if s.owners != nil {
		ok, err := s.owners.Exists(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []int64{}, nil
		}
	}
	return s.repo.IDsByOwner(ctx, ownerID)
}

// GetByIDUnreliable es GetByID con retardo aleatorio y fallas inyectadas
// según Chaos. Sirve para ejercitar reintentos en el cliente.
func (s *Service) GetByIDUnreliable(ctx context.Context, id int64) (Pet, error) {
	if s.chaos.MaxDelay > 0 {
		d := time.Duration(s.rnd() * float64(s.chaos.MaxDelay))
		if err := s.sleep(ctx, d); err != nil {
			return Pet{}, err
		}
	}
	if s.chaos.FailureRate > 0 && s.rnd() < s.chaos.FailureRate {
		return Pet{}, ErrInjectedFailure
	}
	return s.GetByID(ctx, id)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
