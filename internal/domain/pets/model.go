package pets

import (
	"strings"
	"time"
)

// Species es texto libre ("dog", "cat", ...). Se compara sin mayúsculas.
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

// Is compara especies sin distinguir mayúsculas/minúsculas.
func (s Species) Is(other Species) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(other))
}

// DateLayout es el formato de birth_date en la API.
const DateLayout = "2006-01-02"

// Pet es el registro de una mascota.
// OwnerID referencia a owners.Owner pero no se valida integridad referencial.
type Pet struct {
	ID      int64
	OwnerID int64

	Name    string
	Species Species

	BirthDate time.Time // solo fecha, medianoche UTC
	Weight    float64
}
