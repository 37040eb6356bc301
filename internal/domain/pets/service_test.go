package pets

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID   map[int64]Pet
	nextID int64
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[int64]Pet{}}
}

func (r *testRepo) Create(ctx context.Context, p Pet) (Pet, error) {
	r.nextID++
	p.ID = r.nextID
	r.byID[p.ID] = p
	return p, nil
}

func (r *testRepo) GetByID(ctx context.Context, id int64) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) List(ctx context.Context) ([]Pet, error) {
	out := make([]Pet, 0, len(r.byID))
	for id := int64(1); id <= r.nextID; id++ {
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *testRepo) IDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	out := make([]int64, 0)
	for id := int64(1); id <= r.nextID; id++ {
		if p, ok := r.byID[id]; ok && p.OwnerID == ownerID {
			out = append(out, id)
		}
	}
	return out, nil
}

type knownOwners map[int64]bool

func (k knownOwners) Exists(ctx context.Context, id int64) (bool, error) {
	return k[id], nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_ValidatesAndTruncatesBirthDate(t *testing.T) {
	svc := NewService(newTestRepo(), nil, Chaos{})

	_, err := svc.Create(context.Background(), CreateInput{OwnerID: 1, Name: " ", Species: "dog", BirthDate: time.Now()})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}

	p, err := svc.Create(context.Background(), CreateInput{
		OwnerID:   1,
		Name:      " Rex ",
		Species:   "Dog",
		BirthDate: time.Date(2020, 5, 17, 15, 30, 0, 0, time.UTC),
		Weight:    12.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Rex" {
		t.Fatalf("expected trimmed name, got %q", p.Name)
	}
	if !p.BirthDate.Equal(time.Date(2020, 5, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date-only birth date, got %v", p.BirthDate)
	}
	if !p.Species.Is(SpeciesDog) {
		t.Fatalf("expected species to match dog case-insensitively")
	}
}

func TestService_IDsByOwner_UnknownOwnerIsEmpty(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, knownOwners{1: true}, Chaos{})

	_, _ = repo.Create(context.Background(), Pet{OwnerID: 1, Name: "a"})
	_, _ = repo.Create(context.Background(), Pet{OwnerID: 2, Name: "b"}) // dueño huérfano
	_, _ = repo.Create(context.Background(), Pet{OwnerID: 1, Name: "c"})

	ids, err := svc.IDsByOwner(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("expected [1 3], got %v", ids)
	}

	ids, err = svc.IDsByOwner(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids for unknown owner, got %v", ids)
	}
}

func TestService_GetByIDUnreliable_InjectsFailureAndDelay(t *testing.T) {
	repo := newTestRepo()
	p, _ := repo.Create(context.Background(), Pet{OwnerID: 1, Name: "Milo"})

	svc := NewService(repo, nil, Chaos{FailureRate: 0.5, MaxDelay: 2 * time.Second})

	var slept []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	// 1ra llamada: delay 0.25*2s, rnd 0.1 < 0.5 => falla
	// 2da llamada: delay 0.75*2s, rnd 0.9 >= 0.5 => ok
	seq := []float64{0.25, 0.1, 0.75, 0.9}
	svc.rnd = func() float64 {
		v := seq[0]
		seq = seq[1:]
		return v
	}

	if _, err := svc.GetByIDUnreliable(context.Background(), p.ID); !errors.Is(err, ErrInjectedFailure) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	got, err := svc.GetByIDUnreliable(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("expected success on second call, got %v", err)
	}
	if got.Name != "Milo" {
		t.Fatalf("expected Milo, got %q", got.Name)
	}
	if len(slept) != 2 || slept[0] != 500*time.Millisecond || slept[1] != 1500*time.Millisecond {
		t.Fatalf("unexpected delays: %v", slept)
	}
}

func TestService_GetByIDUnreliable_RespectsContext(t *testing.T) {
	svc := NewService(newTestRepo(), nil, Chaos{MaxDelay: time.Hour})
	svc.rnd = func() float64 { return 0.99 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GetByIDUnreliable(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
