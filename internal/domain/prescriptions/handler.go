package prescriptions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/middleware"
	"clinic-records/internal/ports/clock"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/prescriptions", func(pr chi.Router) {
		read := middleware.RequireScope(access.ScopePrescriptionsRead)
		write := middleware.RequireScope(access.ScopePrescriptionsWrite)

		pr.With(read).Get("/", listPrescriptionsHandler(svc))
		pr.With(read).Get("/{rxID}", getPrescriptionHandler(svc))
		pr.With(write).Post("/", createPrescriptionHandler(svc))
		pr.With(write).Put("/{rxID}", updatePrescriptionHandler(svc))
		pr.With(write).Delete("/{rxID}", deletePrescriptionHandler(svc))
		pr.With(middleware.RequireScope(access.ScopePrescriptionsDisp)).Post("/{rxID}/dispense", dispenseHandler(svc))
	})
}

type prescriptionRequest struct {
	PetID         string `json:"pet_id"`
	PetName       string `json:"pet_name"`
	Owner         string `json:"owner"`
	Drug          string `json:"drug"`
	Dosage        string `json:"dosage"`
	Directions    string `json:"directions"`
	Prescriber    string `json:"prescriber"`
	Date          string `json:"date"` // YYYY-MM-DD; vacío = hoy
	AppointmentID string `json:"appointment_id"`
	VetID         string `json:"vet_id"`
}

type prescriptionResponse struct {
	ID            string    `json:"id"`
	PetID         string    `json:"pet_id"`
	PetName       string    `json:"pet_name"`
	Owner         string    `json:"owner"`
	Drug          string    `json:"drug"`
	Dosage        string    `json:"dosage"`
	Directions    string    `json:"directions"`
	Prescriber    string    `json:"prescriber"`
	Date          string    `json:"date"`
	Dispensed     bool      `json:"dispensed"`
	DispensedAt   *string   `json:"dispensed_at,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	VetID         string    `json:"vet_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// listPrescriptionsHandler godoc
// @Summary Listar recetas
// @Tags prescriptions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} prescriptionResponse
// @Failure 403 {string} string "forbidden"
// @Router /prescriptions [get]
func listPrescriptionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]prescriptionResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPrescriptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "rxID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(p))
	}
}

// createPrescriptionHandler godoc
// @Summary Emitir receta
// @Description La receta nace sin despachar. Si quien emite es vet, vet_id y prescriber se completan con sus datos.
// @Tags prescriptions
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body prescriptionRequest true "Datos de la receta"
// @Success 201 {object} prescriptionResponse
// @Failure 400 {string} string "invalid input"
// @Router /prescriptions [post]
func createPrescriptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		in, ok := decodeInput(w, r)
		if !ok {
			return
		}
		p, err := svc.Create(r.Context(), actor, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toResponse(p))
	}
}

// updatePrescriptionHandler godoc
// @Summary Actualizar receta
// @Description Reemplaza los datos. El estado de despacho no cambia por esta vía.
// @Tags prescriptions
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param rxID path string true "ID de la receta"
// @Param payload body prescriptionRequest true "Datos de la receta"
// @Success 200 {object} prescriptionResponse
// @Failure 400 {string} string "invalid input"
// @Failure 404 {string} string "prescription not found"
// @Router /prescriptions/{rxID} [put]
func updatePrescriptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		in, ok := decodeInput(w, r)
		if !ok {
			return
		}
		p, err := svc.Update(r.Context(), actor, chi.URLParam(r, "rxID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(p))
	}
}

func deletePrescriptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "rxID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// dispenseHandler godoc
// @Summary Despachar receta
// @Description Marca la receta como despachada hoy. Admin y farmacia.
// @Tags prescriptions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param rxID path string true "ID de la receta"
// @Success 200 {object} prescriptionResponse
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "prescription not found"
// @Router /prescriptions/{rxID}/dispense [post]
func dispenseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Dispense(r.Context(), chi.URLParam(r, "rxID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(p))
	}
}

func decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req prescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return Input{}, false
	}

	in := Input{
		PetID:         req.PetID,
		PetName:       req.PetName,
		Owner:         req.Owner,
		Drug:          req.Drug,
		Dosage:        req.Dosage,
		Directions:    req.Directions,
		Prescriber:    req.Prescriber,
		AppointmentID: req.AppointmentID,
		VetID:         req.VetID,
	}
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := clock.ParseDate(s)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return Input{}, false
		}
		in.Date = d
	}
	return in, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "prescription not found", http.StatusNotFound)
	default:
		middleware.LoggerFrom(r.Context()).Error("prescriptions", map[string]any{"error": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toResponse(p Prescription) prescriptionResponse {
	out := prescriptionResponse{
		ID:            p.ID,
		PetID:         p.PetID,
		PetName:       p.PetName,
		Owner:         p.Owner,
		Drug:          p.Drug,
		Dosage:        p.Dosage,
		Directions:    p.Directions,
		Prescriber:    p.Prescriber,
		Date:          p.Date.Format(clock.DateLayout),
		Dispensed:     p.Dispensed,
		AppointmentID: p.AppointmentID,
		VetID:         p.VetID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.DispensedAt != nil {
		s := p.DispensedAt.Format(clock.DateLayout)
		out.DispensedAt = &s
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
