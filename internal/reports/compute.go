package reports

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"pet-owner-reports/internal/domain/pets"
)

var (
	// ErrEmptyInput: el cálculo no está definido sin elementos (media, mínimo).
	ErrEmptyInput = errors.New("reports: empty input")
)

// CountSpecies cuenta mascotas de la especie dada, sin distinguir mayúsculas.
func CountSpecies(ps []pets.Pet, species pets.Species) int {
	n := 0
	for _, p := range ps {
		if p.Species.Is(species) {
			n++
		}
	}
	return n
}

// HeavierThan devuelve las mascotas con peso > threshold ordenadas por peso
// ascendente. Empates conservan el orden del feed.
func HeavierThan(ps []pets.Pet, threshold float64) []pets.Pet {
	out := make([]pets.Pet, 0, len(ps))
	for _, p := range ps {
		if p.Weight > threshold {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b pets.Pet) int {
		return cmp.Compare(a.Weight, b.Weight)
	})
	return out
}

type WeightStats struct {
	Count      int
	Sum        float64
	SumSquares float64
	Mean       float64
	StdDev     float64 // poblacional
}

// ComputeWeightStats acumula suma, suma de cuadrados y cantidad en un solo
// recorrido y de ahí saca media y desviación estándar poblacional.
func ComputeWeightStats(ps []pets.Pet) (WeightStats, error) {
	var s WeightStats
	for _, p := range ps {
		s.Count++
		s.Sum += p.Weight
		s.SumSquares += p.Weight * p.Weight
	}
	if s.Count == 0 {
		return WeightStats{}, ErrEmptyInput
	}

	n := float64(s.Count)
	s.Mean = s.Sum / n
	variance := s.SumSquares/n - s.Mean*s.Mean
	if variance < 0 {
		// redondeo con pesos casi iguales
		variance = 0
	}
	s.StdDev = math.Sqrt(variance)
	return s, nil
}

// Eldest es un fold por mínimo de fecha de nacimiento: ante empate gana el
// primero visto.
func Eldest(ps []pets.Pet) (pets.Pet, error) {
	if len(ps) == 0 {
		return pets.Pet{}, ErrEmptyInput
	}
	best := ps[0]
	for _, p := range ps[1:] {
		if p.BirthDate.Before(best.BirthDate) {
			best = p
		}
	}
	return best, nil
}

// AveragePetsPerMultiOwner agrupa por dueño y promedia las cantidades de los
// dueños con más de una mascota. Sin dueños que califiquen devuelve (0, 0).
func AveragePetsPerMultiOwner(ps []pets.Pet) (avg float64, owners int) {
	counts := make(map[int64]int, len(ps))
	for _, p := range ps {
		counts[p.OwnerID]++
	}

	total := 0
	for _, c := range counts {
		if c > 1 {
			total += c
			owners++
		}
	}
	if owners == 0 {
		return 0, 0
	}
	return float64(total) / float64(owners), owners
}

// rankDesc ordena por key descendente; estable ante empates.
func rankDesc[T any](items []T, key func(T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(key(b), key(a))
	})
}
