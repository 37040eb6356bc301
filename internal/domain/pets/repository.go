package pets

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("pet not found")
)

type Repository interface {
	Create(ctx context.Context, p Pet) (Pet, error)
	GetByID(ctx context.Context, id int64) (Pet, error)
	// List devuelve todas las mascotas en orden de ID ascendente.
	List(ctx context.Context) ([]Pet, error)
	// IDsByOwner devuelve los IDs de las mascotas del dueño, ascendente.
	IDsByOwner(ctx context.Context, ownerID int64) ([]int64, error)
}
