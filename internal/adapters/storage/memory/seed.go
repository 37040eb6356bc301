package memory

import (
	"context"
	"fmt"
	"time"

	"pet-owner-reports/internal/domain/owners"
	"pet-owner-reports/internal/domain/pets"
)

type seedPet struct {
	name    string
	species pets.Species
	born    string
	weight  float64
}

type seedOwner struct {
	name  string
	phone string
	pets  []seedPet
}

// demoData: dueños con 0, 1 y varias mascotas para que todos los reportes tengan algo que mostrar.
var demoData = []seedOwner{
	{"Ana Torres", "+51 987 654 321", []seedPet{
		{"Milo", pets.SpeciesDog, "2016-03-14", 24.5},
		{"Luna", pets.SpeciesCat, "2019-07-02", 4.2},
		{"Rocky", "Dog", "2012-11-30", 31.0},
	}},
	{"Bruno Díaz", "+51 912 345 678", []seedPet{
		{"Nala", pets.SpeciesCat, "2020-01-20", 3.8},
	}},
	{"Carla Ruiz", "+51 955 111 222", []seedPet{
		{"Toby", pets.SpeciesDog, "2018-05-09", 12.3},
		{"Kiwi", "parrot", "2021-09-15", 0.4},
	}},
	{"Diego Paz", "+51 944 000 111", nil},
	{"Elena Soto", "+51 933 222 444", []seedPet{
		{"Simba", pets.SpeciesCat, "2015-02-11", 6.1},
		{"Coco", pets.SpeciesDog, "2017-08-23", 9.7},
		{"Max", pets.SpeciesDog, "2014-12-01", 28.4},
		{"Pelusa", "rabbit", "2022-04-04", 1.9},
	}},
}

// Seed carga los datos demo. Pensado para el modo in-memory (SEED_DEMO=true)
// y para tests end-to-end.
func Seed(ctx context.Context, or owners.Repository, pr pets.Repository) error {
	for _, so := range demoData {
		o, err := or.Create(ctx, owners.Owner{Name: so.name, PhoneNumber: so.phone})
		if err != nil {
			return fmt.Errorf("seed owner %q: %w", so.name, err)
		}
		for _, sp := range so.pets {
			born, err := time.Parse(pets.DateLayout, sp.born)
			if err != nil {
				return fmt.Errorf("seed pet %q: %w", sp.name, err)
			}
			if _, err := pr.Create(ctx, pets.Pet{
				OwnerID:   o.ID,
				Name:      sp.name,
				Species:   sp.species,
				BirthDate: born,
				Weight:    sp.weight,
			}); err != nil {
				return fmt.Errorf("seed pet %q: %w", sp.name, err)
			}
		}
	}
	return nil
}
