package reports_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pet-owner-reports/internal/domain/owners"
	"pet-owner-reports/internal/domain/pets"
	"pet-owner-reports/internal/fanout"
	"pet-owner-reports/internal/reports"
	"pet-owner-reports/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource sirve datos fijos y registra llamadas y concurrencia.
type fakeSource struct {
	owners []owners.Owner
	pets   []pets.Pet

	lookupDelay time.Duration
	petErr      map[int64]error
	unreliable  func(call int64) error

	ownerFeedCalls  atomic.Int64
	petFeedCalls    atomic.Int64
	unreliableCalls atomic.Int64

	cur, max atomic.Int64
}

func (f *fakeSource) enter() func() {
	n := f.cur.Add(1)
	for {
		m := f.max.Load()
		if n <= m || f.max.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { f.cur.Add(-1) }
}

func (f *fakeSource) StreamOwners(ctx context.Context, fn func(owners.Owner) error) error {
	f.ownerFeedCalls.Add(1)
	for _, o := range f.owners {
		if err := fn(o); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (f *fakeSource) StreamPets(ctx context.Context, fn func(pets.Pet) error) error {
	f.petFeedCalls.Add(1)
	for _, p := range f.pets {
		if err := fn(p); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (f *fakeSource) StreamPetIDsByOwner(ctx context.Context, ownerID int64, fn func(int64) error) error {
	defer f.enter()()
	if err := f.wait(ctx); err != nil {
		return err
	}
	for _, p := range f.pets {
		if p.OwnerID == ownerID {
			if err := fn(p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fakeSource) PetByID(ctx context.Context, id int64) (pets.Pet, error) {
	defer f.enter()()
	if err := f.wait(ctx); err != nil {
		return pets.Pet{}, err
	}
	if err := f.petErr[id]; err != nil {
		return pets.Pet{}, err
	}
	for _, p := range f.pets {
		if p.ID == id {
			return p, nil
		}
	}
	return pets.Pet{}, pets.ErrNotFound
}

func (f *fakeSource) PetByIDUnreliable(ctx context.Context, id int64) (pets.Pet, error) {
	n := f.unreliableCalls.Add(1)
	if f.unreliable != nil {
		if err := f.unreliable(n); err != nil {
			return pets.Pet{}, err
		}
	}
	return f.PetByID(ctx, id)
}

func (f *fakeSource) wait(ctx context.Context) error {
	if f.lookupDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.lookupDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFake() *fakeSource {
	return &fakeSource{
		owners: []owners.Owner{
			{ID: 1, Name: "Ana", PhoneNumber: "111"},
			{ID: 2, Name: "Bruno", PhoneNumber: "222"},
			{ID: 3, Name: "Carla", PhoneNumber: "333"},
			{ID: 4, Name: "Diego", PhoneNumber: "444"},
		},
		pets: []pets.Pet{
			{ID: 1, OwnerID: 1, Name: "Milo", Species: "dog", BirthDate: date(2016, 3, 14), Weight: 24.5},
			{ID: 2, OwnerID: 1, Name: "Luna", Species: "cat", BirthDate: date(2019, 7, 2), Weight: 4.2},
			{ID: 3, OwnerID: 1, Name: "Rocky", Species: "Dog", BirthDate: date(2012, 11, 30), Weight: 31},
			{ID: 4, OwnerID: 2, Name: "Nala", Species: "cat", BirthDate: date(2020, 1, 20), Weight: 3.8},
			{ID: 5, OwnerID: 3, Name: "Toby", Species: "dog", BirthDate: date(2018, 5, 9), Weight: 12.3},
			{ID: 6, OwnerID: 3, Name: "Kiwi", Species: "parrot", BirthDate: date(2021, 9, 15), Weight: 0.4},
			// dueño inexistente: no aparece en los joins
			{ID: 7, OwnerID: 99, Name: "Ghost", Species: "cat", BirthDate: date(2012, 11, 30), Weight: 24.5},
			{ID: 8, OwnerID: 4, Name: "Pip", Species: "hamster", BirthDate: date(2022, 1, 1), Weight: 0.1},
		},
	}
}

func quickPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, Multiplier: 1}
}

func newEnv(t *testing.T, src reports.Source) *reports.Env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env := reports.NewEnv(ctx, src)
	env.Lookup = quickPolicy()
	return env
}

func runAll(t *testing.T, env *reports.Env) map[string]string {
	t.Helper()

	all := reports.All()
	out, err := fanout.Map(context.Background(), 0, all, func(ctx context.Context, r reports.Report) (string, error) {
		return r.Run(ctx, env)
	})
	require.NoError(t, err)

	got := make(map[string]string, len(all))
	for i, r := range all {
		got[r.Name] = out[i]
	}
	return got
}

func TestAll_OutputsOverFixedData(t *testing.T) {
	got := runAll(t, newEnv(t, newFake()))

	assert.Equal(t, "Owner Name: Ana -> phone number: 111\n"+
		"Owner Name: Bruno -> phone number: 222\n"+
		"Owner Name: Carla -> phone number: 333\n"+
		"Owner Name: Diego -> phone number: 444\n", got[reports.OwnersNamesPhones])

	assert.Equal(t, "Total number of pets: 8\n", got[reports.TotalPets])
	assert.Equal(t, "Number of dogs: 3\n", got[reports.TotalDogs])

	assert.Equal(t, "Pet Name: Toby -> weight: 12.3\n"+
		"Pet Name: Milo -> weight: 24.5\n"+
		"Pet Name: Ghost -> weight: 24.5\n"+
		"Pet Name: Rocky -> weight: 31\n", got[reports.SortedWeight])

	assert.Equal(t, "Name of the eldest pet: Rocky\n", got[reports.EldestPet])
	assert.Equal(t, "Average number of pets per owner: 2.5\n", got[reports.AveragePetsOwner])

	assert.Equal(t, "Owner Name: Ana -> Number of Pets: 3\n"+
		"Owner Name: Carla -> Number of Pets: 2\n"+
		"Owner Name: Bruno -> Number of Pets: 1\n"+
		"Owner Name: Diego -> Number of Pets: 1\n", got[reports.OwnerNamesPetCountsSorted])

	assert.Equal(t, "Owner Name: Ana -> Pets: Milo, Luna, Rocky\n"+
		"Owner Name: Carla -> Pets: Toby, Kiwi\n"+
		"Owner Name: Bruno -> Pets: Nala\n"+
		"Owner Name: Diego -> Pets: Pip\n", got[reports.OwnerNamesAndPetNamesSorted])

	assert.Equal(t, "Pet Name: Milo -> species: dog\n", got[reports.UnreliablePetLookup])

	lines := strings.Split(strings.TrimSuffix(got[reports.StdDevWeights], "\n"), "\n")
	require.Len(t, lines, 2)
	mean, err := strconv.ParseFloat(strings.TrimPrefix(lines[0], "Average Weight: "), 64)
	require.NoError(t, err)
	sd, err := strconv.ParseFloat(strings.TrimPrefix(lines[1], "Standard Deviation: "), 64)
	require.NoError(t, err)
	assert.InDelta(t, 12.6, mean, 1e-9)
	assert.Greater(t, sd, 0.0)
}

func TestAll_FeedsFetchedOncePerRun(t *testing.T) {
	src := newFake()
	runAll(t, newEnv(t, src))

	assert.Equal(t, int64(1), src.ownerFeedCalls.Load())
	assert.Equal(t, int64(1), src.petFeedCalls.Load())
}

func TestAll_IdempotentAcrossRuns(t *testing.T) {
	src := newFake()
	first := runAll(t, newEnv(t, src))
	second := runAll(t, newEnv(t, src))

	assert.Equal(t, first, second)
	// una corrida nueva vuelve a traer los feeds
	assert.Equal(t, int64(2), src.petFeedCalls.Load())
}

func TestEmptyFeeds(t *testing.T) {
	src := &fakeSource{}
	env := newEnv(t, src)
	ctx := context.Background()

	for _, r := range reports.All() {
		out, err := r.Run(ctx, env)
		switch r.Name {
		case reports.StdDevWeights, reports.EldestPet, reports.UnreliablePetLookup:
			assert.ErrorIs(t, err, reports.ErrEmptyInput, r.Name)
			assert.Empty(t, out, r.Name)
		case reports.TotalPets:
			require.NoError(t, err)
			assert.Equal(t, "Total number of pets: 0\n", out)
		case reports.AveragePetsOwner:
			require.NoError(t, err)
			assert.Equal(t, "Average number of pets per owner: 0\n", out)
		case reports.TotalDogs:
			require.NoError(t, err)
			assert.Equal(t, "Number of dogs: 0\n", out)
		default:
			require.NoError(t, err, r.Name)
			assert.Empty(t, out, r.Name)
		}
	}
}

func runOne(t *testing.T, env *reports.Env, name string) (string, error) {
	t.Helper()
	rs, err := reports.Select([]string{name})
	require.NoError(t, err)
	require.Len(t, rs, 1)
	return rs[0].Run(context.Background(), env)
}

func TestOwnerPetNames_NeverExceedsLookupCeiling(t *testing.T) {
	src := newFake()
	// muchos dueños con varias mascotas cada uno
	src.owners = nil
	src.pets = nil
	var id int64
	for o := int64(1); o <= 12; o++ {
		src.owners = append(src.owners, owners.Owner{ID: o, Name: "owner" + strconv.FormatInt(o, 10)})
		for k := 0; k < 4; k++ {
			id++
			src.pets = append(src.pets, pets.Pet{ID: id, OwnerID: o, Name: "pet" + strconv.FormatInt(id, 10)})
		}
	}
	src.lookupDelay = 2 * time.Millisecond

	env := newEnv(t, src)
	env.Limits = reports.Limits{OwnerConcurrency: 0, LookupCeiling: 5}

	var inc, dec atomic.Int64
	env.Gauge = func(report string) fanout.Gauge {
		assert.Equal(t, reports.OwnerNamesAndPetNamesSorted, report)
		return gaugeFuncs{inc: &inc, dec: &dec}
	}

	out, err := runOne(t, env, reports.OwnerNamesAndPetNamesSorted)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSuffix(out, "\n"), "\n"), 12)

	assert.LessOrEqual(t, src.max.Load(), int64(5))
	assert.GreaterOrEqual(t, src.max.Load(), int64(2))
	// 12 listados de ids + 48 lookups
	assert.Equal(t, int64(60), inc.Load())
	assert.Equal(t, inc.Load(), dec.Load())
}

type gaugeFuncs struct{ inc, dec *atomic.Int64 }

func (g gaugeFuncs) Inc() { g.inc.Add(1) }
func (g gaugeFuncs) Dec() { g.dec.Add(1) }

func TestOwnerPetNames_FirstLookupErrorFailsReport(t *testing.T) {
	src := newFake()
	boom := errors.New("lookup exploded")
	src.petErr = map[int64]error{5: boom}

	out, err := runOne(t, newEnv(t, src), reports.OwnerNamesAndPetNamesSorted)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, out)
}

func TestOwnerPetCounts_CanceledContext(t *testing.T) {
	src := newFake()
	src.lookupDelay = time.Second
	env := newEnv(t, src)

	rs, err := reports.Select([]string{reports.OwnerNamesPetCountsSorted})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = rs[0].Run(ctx, env)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnreliableLookup_RetriesUntilSuccess(t *testing.T) {
	src := newFake()
	src.unreliable = func(call int64) error {
		if call < 3 {
			return errors.New("503")
		}
		return nil
	}

	out, err := runOne(t, newEnv(t, src), reports.UnreliablePetLookup)
	require.NoError(t, err)
	assert.Equal(t, "Pet Name: Milo -> species: dog\n", out)
	assert.Equal(t, int64(3), src.unreliableCalls.Load())
}

func TestUnreliableLookup_ExhaustedFailsReport(t *testing.T) {
	src := newFake()
	src.unreliable = func(int64) error { return errors.New("503") }

	env := newEnv(t, src)
	var attempts []int
	env.Lookup.OnAttempt = func(attempt int, err error) { attempts = append(attempts, attempt) }

	_, err := runOne(t, env, reports.UnreliablePetLookup)
	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.EqualError(t, ex.Err, "503")
	assert.Equal(t, int64(3), src.unreliableCalls.Load())
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestFeeds_WaiterCanGiveUp(t *testing.T) {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feeds := reports.NewFeeds(runCtx, &blockingSource{})

	ctx, cancelWait := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelWait()
	_, err := feeds.Pets(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// al cancelar la corrida, la descarga pendiente termina con ese error
	cancel()
	_, err = feeds.Pets(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingSource struct{ fakeSource }

func (*blockingSource) StreamPets(ctx context.Context, fn func(pets.Pet) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSelect(t *testing.T) {
	all, err := reports.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	rs, err := reports.Select([]string{reports.UnreliablePetLookup, " " + reports.TotalPets})
	require.NoError(t, err)
	require.Len(t, rs, 2)
	// orden de All, no del pedido
	assert.Equal(t, reports.TotalPets, rs[0].Name)
	assert.Equal(t, reports.UnreliablePetLookup, rs[1].Name)

	_, err = reports.Select([]string{"Task11_nope"})
	assert.ErrorIs(t, err, reports.ErrUnknownReport)
}

func TestAll_NamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range reports.All() {
		assert.False(t, seen[r.Name], r.Name)
		seen[r.Name] = true
		assert.NotNil(t, r.Run)
	}
	assert.Len(t, seen, 10)
}
