package owners

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("owner not found")
)

type Repository interface {
	Create(ctx context.Context, o Owner) (Owner, error)
	GetByID(ctx context.Context, id int64) (Owner, error)
	// List devuelve todos los dueños en orden de ID ascendente.
	List(ctx context.Context) ([]Owner, error)
}
