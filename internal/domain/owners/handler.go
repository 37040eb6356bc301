package owners

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/owners", func(or chi.Router) {
		or.Post("/", createOwnerHandler(svc))
		or.Get("/", listOwnersHandler(svc))
		or.Get("/{ownerID}", getOwnerHandler(svc))
	})
}

// createOwnerRequest es el cuerpo para registrar un dueño.
type createOwnerRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// OwnerResponse es la representación JSON de un dueño.
// El cliente de reportes decodifica este mismo formato.
type OwnerResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// createOwnerHandler godoc
// @Summary Crear dueño
// @Tags owners
// @Accept json
// @Produce json
// @Param payload body createOwnerRequest true "Datos del dueño"
// @Success 201 {object} OwnerResponse
// @Failure 400 {string} string "invalid json / name requerido"
// @Router /owners [post]
func createOwnerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOwnerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		o, err := svc.Create(r.Context(), CreateInput{
			Name:        req.Name,
			PhoneNumber: req.PhoneNumber,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(o))
	}
}

// listOwnersHandler godoc
// @Summary Listar dueños
// @Description Devuelve todos los dueños como array JSON, en orden de ID.
// @Tags owners
// @Produce json
// @Success 200 {array} OwnerResponse
// @Router /owners [get]
func listOwnersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]OwnerResponse, 0, len(items))
		for _, o := range items {
			out = append(out, ToResponse(o))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getOwnerHandler godoc
// @Summary Obtener dueño por ID
// @Tags owners
// @Produce json
// @Param ownerID path int true "ID del dueño"
// @Success 200 {object} OwnerResponse
// @Failure 404 {string} string "owner not found"
// @Router /owners/{ownerID} [get]
func getOwnerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
		if err != nil {
			http.Error(w, "owner not found", http.StatusNotFound)
			return
		}

		o, err := svc.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "owner not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(o))
	}
}

func ToResponse(o Owner) OwnerResponse {
	return OwnerResponse{
		ID:          o.ID,
		Name:        o.Name,
		PhoneNumber: o.PhoneNumber,
	}
}

// FromResponse es el inverso de ToResponse (lado cliente).
func FromResponse(r OwnerResponse) Owner {
	return Owner{
		ID:          r.ID,
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
