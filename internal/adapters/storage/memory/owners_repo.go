package memory

import (
	"context"
	"sort"
	"sync"

	"pet-owner-reports/internal/domain/owners"
)

type ownerRepo struct {
	mu     sync.RWMutex
	byID   map[int64]owners.Owner
	nextID int64
}

func NewOwnerRepo() owners.Repository {
	return &ownerRepo{
		byID: make(map[int64]owners.Owner),
	}
}

func (r *ownerRepo) Create(ctx context.Context, o owners.Owner) (owners.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	o.ID = r.nextID
	r.byID[o.ID] = o
	return o, nil
}

func (r *ownerRepo) GetByID(ctx context.Context, id int64) (owners.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return owners.Owner{}, owners.ErrNotFound
	}
	return o, nil
}

func (r *ownerRepo) List(ctx context.Context) ([]owners.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]owners.Owner, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
