// Package reports define los diez reportes derivados de los feeds de dueños
// y mascotas. Cada reporte es independiente: lee los feeds compartidos de la
// corrida (y el Source para joins y lookups) y devuelve un blob de texto.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pet-owner-reports/internal/domain/owners"
	"pet-owner-reports/internal/domain/pets"
	"pet-owner-reports/internal/fanout"
	"pet-owner-reports/internal/retry"
)

var (
	ErrUnknownReport = errors.New("reports: unknown report")
)

const (
	// HeavyWeight es el umbral (exclusivo) del listado por peso.
	HeavyWeight = 10.0

	DefaultOwnerConcurrency = 8
	DefaultLookupCeiling    = 5
)

// Limits acota la concurrencia de los reportes con fan-out.
type Limits struct {
	// OwnerConcurrency: dueños procesados a la vez (<= 0 => sin techo).
	OwnerConcurrency int

	// LookupCeiling: llamadas anidadas en vuelo por reporte. Default: 5
	LookupCeiling int
}

func DefaultLimits() Limits {
	return Limits{
		OwnerConcurrency: DefaultOwnerConcurrency,
		LookupCeiling:    DefaultLookupCeiling,
	}
}

// Env es lo que recibe cada reporte en una corrida.
type Env struct {
	Source Source
	Feeds  *Feeds
	Lookup retry.Policy
	Limits Limits

	// Gauge (opcional) devuelve el gauge de llamadas en vuelo de un reporte.
	Gauge func(report string) fanout.Gauge
}

// NewEnv arma un Env con feeds nuevos sobre src. ctx es el de la corrida.
func NewEnv(ctx context.Context, src Source) *Env {
	return &Env{
		Source: src,
		Feeds:  NewFeeds(ctx, src),
		Lookup: retry.DefaultPolicy(),
		Limits: DefaultLimits(),
	}
}

func (e *Env) limiter(report string) (*fanout.Limiter, error) {
	ceiling := e.Limits.LookupCeiling
	if ceiling <= 0 {
		ceiling = DefaultLookupCeiling
	}
	lim, err := fanout.NewLimiter(ceiling)
	if err != nil {
		return nil, err
	}
	if e.Gauge != nil {
		lim.WithGauge(e.Gauge(report))
	}
	return lim, nil
}

// Report es una definición: nombre estable (clave de salida) y cómputo.
type Report struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) (string, error)
}

// Report names, usados como clave en el sink.
const (
	OwnersNamesPhones           = "Task1_ownersNamesPhones"
	TotalPets                   = "Task2_totalPets"
	TotalDogs                   = "Task3_totalDogs"
	SortedWeight                = "Task4_sortedWeight"
	StdDevWeights               = "Task5_stdDevWeights"
	EldestPet                   = "Task6_eldestPet"
	AveragePetsOwner            = "Task7_averagePetsOwner"
	OwnerNamesPetCountsSorted   = "Task8_ownerNamesPetCountsSorted"
	OwnerNamesAndPetNamesSorted = "Task9_ownerNamesAndPetNamesSorted"
	UnreliablePetLookup         = "Task10_unreliablePetLookup"
)

// All devuelve los diez reportes en orden.
func All() []Report {
	return []Report{
		{OwnersNamesPhones, "owner names and phone numbers", ownersNamesPhones},
		{TotalPets, "total number of pets", totalPets},
		{TotalDogs, "number of dogs", totalDogs},
		{SortedWeight, "pets heavier than 10 sorted by weight", sortedWeight},
		{StdDevWeights, "average and standard deviation of pet weights", stdDevWeights},
		{EldestPet, "eldest pet", eldestPet},
		{AveragePetsOwner, "average pets among owners with more than one", averagePetsOwner},
		{OwnerNamesPetCountsSorted, "owners ranked by pet count", ownerPetCounts},
		{OwnerNamesAndPetNamesSorted, "owners with their pet names ranked", ownerPetNames},
		{UnreliablePetLookup, "first pet looked up through the unreliable endpoint", unreliablePetLookup},
	}
}

// Select devuelve los reportes pedidos en el orden de All. names vacío => todos.
func Select(names []string) ([]Report, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}

	out := make([]Report, 0, len(want))
	for _, r := range all {
		if want[r.Name] {
			out = append(out, r)
			delete(want, r.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, n)
	}
	return out, nil
}

func ownersNamesPhones(ctx context.Context, env *Env) (string, error) {
	list, err := env.Feeds.Owners(ctx)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(list))
	for _, o := range list {
		lines = append(lines, "Owner Name: "+o.Name+" -> phone number: "+o.PhoneNumber)
	}
	return blob(lines), nil
}

func totalPets(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	return blob([]string{"Total number of pets: " + strconv.Itoa(len(ps))}), nil
}

func totalDogs(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	return blob([]string{"Number of dogs: " + strconv.Itoa(CountSpecies(ps, pets.SpeciesDog))}), nil
}

func sortedWeight(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	heavy := HeavierThan(ps, HeavyWeight)
	lines := make([]string, 0, len(heavy))
	for _, p := range heavy {
		lines = append(lines, "Pet Name: "+p.Name+" -> weight: "+num(p.Weight))
	}
	return blob(lines), nil
}

func stdDevWeights(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	s, err := ComputeWeightStats(ps)
	if err != nil {
		return "", fmt.Errorf("weight statistics: %w", err)
	}
	return blob([]string{
		"Average Weight: " + num(s.Mean),
		"Standard Deviation: " + num(s.StdDev),
	}), nil
}

func eldestPet(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	p, err := Eldest(ps)
	if err != nil {
		return "", fmt.Errorf("eldest pet: %w", err)
	}
	return blob([]string{"Name of the eldest pet: " + p.Name}), nil
}

func averagePetsOwner(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	avg, _ := AveragePetsPerMultiOwner(ps)
	return blob([]string{"Average number of pets per owner: " + num(avg)}), nil
}

type ownerCount struct {
	name  string
	count int
}

func ownerPetCounts(ctx context.Context, env *Env) (string, error) {
	list, err := env.Feeds.Owners(ctx)
	if err != nil {
		return "", err
	}
	lim, err := env.limiter(OwnerNamesPetCountsSorted)
	if err != nil {
		return "", err
	}

	counts, err := fanout.Map(ctx, env.Limits.OwnerConcurrency, list, func(ctx context.Context, o owners.Owner) (ownerCount, error) {
		n := 0
		err := lim.Do(ctx, func(ctx context.Context) error {
			return env.Source.StreamPetIDsByOwner(ctx, o.ID, func(int64) error {
				n++
				return nil
			})
		})
		if err != nil {
			return ownerCount{}, fmt.Errorf("pet ids of owner %d: %w", o.ID, err)
		}
		return ownerCount{name: o.Name, count: n}, nil
	})
	if err != nil {
		return "", err
	}

	rankDesc(counts, func(c ownerCount) int { return c.count })

	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		lines = append(lines, "Owner Name: "+c.name+" -> Number of Pets: "+strconv.Itoa(c.count))
	}
	return blob(lines), nil
}

type ownerPets struct {
	name string
	pets []string
}

func ownerPetNames(ctx context.Context, env *Env) (string, error) {
	list, err := env.Feeds.Owners(ctx)
	if err != nil {
		return "", err
	}
	// un solo limiter para los dos niveles: el techo es por reporte
	lim, err := env.limiter(OwnerNamesAndPetNamesSorted)
	if err != nil {
		return "", err
	}

	joined, err := fanout.Map(ctx, env.Limits.OwnerConcurrency, list, func(ctx context.Context, o owners.Owner) (ownerPets, error) {
		var ids []int64
		err := lim.Do(ctx, func(ctx context.Context) error {
			return env.Source.StreamPetIDsByOwner(ctx, o.ID, func(id int64) error {
				ids = append(ids, id)
				return nil
			})
		})
		if err != nil {
			return ownerPets{}, fmt.Errorf("pet ids of owner %d: %w", o.ID, err)
		}

		names, err := fanout.Map(ctx, 0, ids, func(ctx context.Context, id int64) (string, error) {
			p, err := fanout.Call(ctx, lim, func(ctx context.Context) (pets.Pet, error) {
				return env.Source.PetByID(ctx, id)
			})
			if err != nil {
				return "", fmt.Errorf("pet %d: %w", id, err)
			}
			return p.Name, nil
		})
		if err != nil {
			return ownerPets{}, err
		}
		return ownerPets{name: o.Name, pets: names}, nil
	})
	if err != nil {
		return "", err
	}

	withPets := joined[:0]
	for _, j := range joined {
		if len(j.pets) > 0 {
			withPets = append(withPets, j)
		}
	}
	rankDesc(withPets, func(j ownerPets) int { return len(j.pets) })

	lines := make([]string, 0, len(withPets))
	for _, j := range withPets {
		lines = append(lines, "Owner Name: "+j.name+" -> Pets: "+strings.Join(j.pets, ", "))
	}
	return blob(lines), nil
}

func unreliablePetLookup(ctx context.Context, env *Env) (string, error) {
	ps, err := env.Feeds.Pets(ctx)
	if err != nil {
		return "", err
	}
	if len(ps) == 0 {
		return "", fmt.Errorf("unreliable lookup: %w", ErrEmptyInput)
	}

	id := ps[0].ID
	p, err := retry.Value(ctx, env.Lookup, func(ctx context.Context) (pets.Pet, error) {
		return env.Source.PetByIDUnreliable(ctx, id)
	})
	if err != nil {
		return "", fmt.Errorf("unreliable lookup of pet %d: %w", id, err)
	}
	return blob([]string{"Pet Name: " + p.Name + " -> species: " + string(p.Species)}), nil
}

// blob une líneas con \n y agrega el salto final; sin líneas => "".
func blob(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
