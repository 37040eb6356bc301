package reports

import (
	"context"
	"sync"

	"pet-owner-reports/internal/domain/owners"
	"pet-owner-reports/internal/domain/pets"
)

// Source es lo que los reportes consumen del servicio remoto.
// petstore.Client la implementa; los tests usan fakes en memoria.
type Source interface {
	StreamOwners(ctx context.Context, fn func(owners.Owner) error) error
	StreamPets(ctx context.Context, fn func(pets.Pet) error) error
	StreamPetIDsByOwner(ctx context.Context, ownerID int64, fn func(int64) error) error
	PetByID(ctx context.Context, id int64) (pets.Pet, error)
	PetByIDUnreliable(ctx context.Context, id int64) (pets.Pet, error)
}

// Feeds captura cada feed a lo sumo una vez por corrida y comparte la copia
// entre todos los reportes. La descarga arranca con el primer pedido y usa el
// ctx de la corrida; quien espera puede abandonar con su propio ctx.
type Feeds struct {
	owners *lazy[[]owners.Owner]
	pets   *lazy[[]pets.Pet]
}

func NewFeeds(ctx context.Context, src Source) *Feeds {
	return &Feeds{
		owners: newLazy(func() ([]owners.Owner, error) { return collect(ctx, src.StreamOwners) }),
		pets:   newLazy(func() ([]pets.Pet, error) { return collect(ctx, src.StreamPets) }),
	}
}

// Owners devuelve el feed de dueños en el orden del servicio. No modificar.
func (f *Feeds) Owners(ctx context.Context) ([]owners.Owner, error) {
	return f.owners.get(ctx)
}

// Pets devuelve el feed de mascotas en el orden del servicio. No modificar.
func (f *Feeds) Pets(ctx context.Context) ([]pets.Pet, error) {
	return f.pets.get(ctx)
}

type lazy[T any] struct {
	once  sync.Once
	done  chan struct{}
	fetch func() (T, error)

	val T
	err error
}

func newLazy[T any](fetch func() (T, error)) *lazy[T] {
	return &lazy[T]{done: make(chan struct{}), fetch: fetch}
}

func (l *lazy[T]) get(ctx context.Context) (T, error) {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			l.val, l.err = l.fetch()
		}()
	})

	select {
	case <-l.done:
		return l.val, l.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func collect[T any](ctx context.Context, stream func(context.Context, func(T) error) error) ([]T, error) {
	var out []T
	err := stream(ctx, func(v T) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
