package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// UnreliableObserver recibe "ok" / "failed" / "not_found" por cada respuesta
// del endpoint no confiable. Puede ser nil.
type UnreliableObserver func(outcome string)

func RegisterRoutes(r chi.Router, svc *Service, observe UnreliableObserver) {
	if observe == nil {
		observe = func(string) {}
	}

	r.Route("/pets", func(pr chi.Router) {
		pr.Post("/", createPetHandler(svc))
		pr.Get("/", listPetsHandler(svc))
		pr.Get("/{petID}", getPetHandler(svc))

		// IDs de mascotas por dueño
		pr.Get("/owner/{ownerID}", listPetIDsByOwnerHandler(svc))

		// Igual que /{petID} pero con retardo y fallas aleatorias
		pr.Get("/delay/{petID}", getPetUnreliableHandler(svc, observe))
	})
}

type createPetRequest struct {
	OwnerID   int64   `json:"owner_id"`
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	BirthDate string  `json:"birth_date"` // YYYY-MM-DD
	Weight    float64 `json:"weight"`
}

// PetResponse es la representación JSON de una mascota.
// El cliente de reportes decodifica este mismo formato.
type PetResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	BirthDate string  `json:"birth_date"`
	Weight    float64 `json:"weight"`
	OwnerID   int64   `json:"owner_id"`
}

// createPetHandler godoc
// @Summary Crear mascota
// @Tags pets
// @Accept json
// @Produce json
// @Param payload body createPetRequest true "Datos de la mascota; birth_date en formato YYYY-MM-DD"
// @Success 201 {object} PetResponse
// @Failure 400 {string} string "invalid json / birth_date inválido / reglas de negocio"
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		bd, err := time.Parse(DateLayout, req.BirthDate)
		if err != nil {
			http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		p, err := svc.Create(r.Context(), CreateInput{
			OwnerID:   req.OwnerID,
			Name:      req.Name,
			Species:   req.Species,
			BirthDate: bd,
			Weight:    req.Weight,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(p))
	}
}

// listPetsHandler godoc
// @Summary Listar mascotas
// @Description Devuelve todas las mascotas como array JSON, en orden de ID.
// @Tags pets
// @Produce json
// @Success 200 {array} PetResponse
// @Router /pets [get]
func listPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]PetResponse, 0, len(items))
		for _, p := range items {
			out = append(out, ToResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getPetHandler godoc
// @Summary Obtener mascota por ID
// @Tags pets
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Success 200 {object} PetResponse
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		p, err := svc.GetByID(r.Context(), id)
		if err != nil {
			writePetError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(p))
	}
}

// getPetUnreliableHandler godoc
// @Summary Obtener mascota por ID (no confiable)
// @Description Igual que GET /pets/{petID}, pero con retardo aleatorio y una probabilidad configurable de responder 503. Configurable con FLAKY_FAILURE_RATE y FLAKY_MAX_DELAY.
// @Tags pets
// @Produce json
// @Param petID path int true "ID de la mascota"
// @Success 200 {object} PetResponse
// @Failure 404 {string} string "pet not found"
// @Failure 503 {string} string "injected failure"
// @Router /pets/delay/{petID} [get]
func getPetUnreliableHandler(svc *Service, observe UnreliableObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "petID"))
		if !ok {
			observe("not_found")
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		p, err := svc.GetByIDUnreliable(r.Context(), id)
		switch {
		case err == nil:
			observe("ok")
		case errors.Is(err, ErrNotFound):
			observe("not_found")
		default:
			observe("failed")
		}
		if err != nil {
			writePetError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(p))
	}
}

// listPetIDsByOwnerHandler godoc
// @Summary IDs de mascotas de un dueño
// @Description Dueño inexistente devuelve array vacío.
// @Tags pets
// @Produce json
// @Param ownerID path int true "ID del dueño"
// @Success 200 {array} int
// @Router /pets/owner/{ownerID} [get]
func listPetIDsByOwnerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "ownerID"))
		if !ok {
			writeJSON(w, http.StatusOK, []int64{})
			return
		}

		ids, err := svc.IDsByOwner(r.Context(), id)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []int64{}
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

func writePetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "pet not found", http.StatusNotFound)
	case errors.Is(err, ErrInjectedFailure):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func ToResponse(p Pet) PetResponse {
	return PetResponse{
		ID:        p.ID,
		Name:      p.Name,
		Species:   string(p.Species),
		BirthDate: p.BirthDate.Format(DateLayout),
		Weight:    p.Weight,
		OwnerID:   p.OwnerID,
	}
}

// FromResponse es el inverso de ToResponse (lado cliente).
func FromResponse(r PetResponse) (Pet, error) {
	bd, err := time.Parse(DateLayout, r.BirthDate)
	if err != nil {
		return Pet{}, err
	}
	return Pet{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Species:   Species(r.Species),
		BirthDate: bd,
		Weight:    r.Weight,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
