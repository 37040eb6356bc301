package owners

// Owner es el dueño de una o más mascotas.
// El ID lo asigna el repositorio al crear.
type Owner struct {
	ID          int64
	Name        string
	PhoneNumber string
}
