package appointments

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
	r.Route("/appointments", func(ar chi.Router) {
		ar.Use(middleware.RequireScope(access.ScopeAppointments))

		ar.Get("/", listAppointmentsHandler(svc))
		ar.Post("/", createAppointmentHandler(svc))
		ar.Get("/{appointmentID}", getAppointmentHandler(svc))
		ar.Put("/{appointmentID}", updateAppointmentHandler(svc))
		ar.Delete("/{appointmentID}", deleteAppointmentHandler(svc))
		ar.Post("/{appointmentID}/approve", approveAppointmentHandler(svc))
		ar.Post("/{appointmentID}/done", markDoneHandler(svc))
	})
}

type appointmentRequest struct {
	PetID         string `json:"pet_id"`
	Owner         string `json:"owner"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:mm
	Code          string `json:"code"`
	AssignedVetID string `json:"assigned_vet_id"`
	VetUsername   string `json:"vet_username"`
}

type appointmentResponse struct {
	ID            string    `json:"id"`
	PetID         string    `json:"pet_id"`
	Owner         string    `json:"owner"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Code          string    `json:"code"`
	AssignedVetID string    `json:"assigned_vet_id,omitempty"`
	VetUsername   string    `json:"vet_username,omitempty"`
	VetName       string    `json:"vet_name,omitempty"`
	Status        Status    `json:"status" enums:"Pending,Approved,Done"`
	CompletedAt   *string   `json:"completed_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// errorResponse nombra la regla violada para que el cliente distinga,
// por ejemplo, "vet inexistente" de "no es tu cita".
type errorResponse struct {
	Error string `json:"error"`
	Rule  string `json:"rule,omitempty"`
}

// listAppointmentsHandler godoc
// @Summary Listar citas
// @Description Un vet ve sólo sus citas. Admin y recepción ven todas y pueden filtrar por vet (nombre o username) o por citas sin asignar.
// @Tags appointments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param vet query string false "Nombre o username del vet"
// @Param unassigned query bool false "Sólo citas sin vet"
// @Success 200 {array} appointmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /appointments [get]
func listAppointmentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())
		q := r.URL.Query()

		items, err := svc.List(r.Context(), actor, ListFilter{
			Vet:        q.Get("vet"),
			Unassigned: q.Get("unassigned") == "true" || q.Get("unassigned") == "1",
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]appointmentResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createAppointmentHandler godoc
// @Summary Crear cita
// @Description Valida hora (HH:mm, múltiplo de 30, entre 08:00 y 22:00), resuelve el vet según el rol y rechaza slots ocupados. La cita arranca en Pending.
// @Tags appointments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body appointmentRequest true "Datos de la cita"
// @Success 201 {object} appointmentResponse
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /appointments [post]
func createAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		in, ok := decodeInput(w, r)
		if !ok {
			return
		}
		a, err := svc.Create(r.Context(), actor, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toResponse(a))
	}
}

// getAppointmentHandler godoc
// @Summary Obtener cita
// @Tags appointments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param appointmentID path string true "ID de la cita"
// @Success 200 {object} appointmentResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{appointmentID} [get]
func getAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		a, err := svc.GetByID(r.Context(), chi.URLParam(r, "appointmentID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		// un vet no ve citas ajenas; se responde 404 igual que en la lista
		if actor.Role == access.RoleVet && a.AssignedVetID != actor.ID {
			writeError(w, r, ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(a))
	}
}

// updateAppointmentHandler godoc
// @Summary Actualizar cita
// @Description Reemplaza los datos de la cita. Conserva estado y fecha de cierre; si code viene vacío se conserva el actual.
// @Tags appointments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param appointmentID path string true "ID de la cita"
// @Param payload body appointmentRequest true "Datos de la cita"
// @Success 200 {object} appointmentResponse
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /appointments/{appointmentID} [put]
func updateAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		in, ok := decodeInput(w, r)
		if !ok {
			return
		}
		a, err := svc.Update(r.Context(), actor, chi.URLParam(r, "appointmentID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(a))
	}
}

// deleteAppointmentHandler godoc
// @Summary Borrar cita
// @Tags appointments
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param appointmentID path string true "ID de la cita"
// @Success 204
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{appointmentID} [delete]
func deleteAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		if err := svc.Delete(r.Context(), actor, chi.URLParam(r, "appointmentID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// approveAppointmentHandler godoc
// @Summary Aprobar cita
// @Description Pending o Approved pasan a Approved. Una cita Done no se puede aprobar.
// @Tags appointments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param appointmentID path string true "ID de la cita"
// @Success 200 {object} appointmentResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /appointments/{appointmentID}/approve [post]
func approveAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		a, err := svc.Approve(r.Context(), actor, chi.URLParam(r, "appointmentID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(a))
	}
}

// markDoneHandler godoc
// @Summary Marcar cita como realizada
// @Description Pasa a Done y fija completed_at = hoy (se re-estampa si ya estaba Done).
// @Tags appointments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param appointmentID path string true "ID de la cita"
// @Success 200 {object} appointmentResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{appointmentID}/done [post]
func markDoneHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.GetActor(r.Context())

		a, err := svc.MarkDone(r.Context(), actor, chi.URLParam(r, "appointmentID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(a))
	}
}

func decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return Input{}, false
	}

	in := Input{
		PetID:         req.PetID,
		Owner:         req.Owner,
		Time:          req.Time,
		Code:          req.Code,
		AssignedVetID: req.AssignedVetID,
		VetUsername:   req.VetUsername,
	}
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := clock.ParseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return Input{}, false
		}
		in.Date = d
	}
	return in, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidTime), errors.Is(err, ErrVetRequired):
		status = http.StatusBadRequest
	case errors.Is(err, ErrRoleNotPermitted):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAssignedVetNotFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		middleware.LoggerFrom(r.Context()).Error("appointments", map[string]any{"error": err})
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Rule: ruleOf(err)})
}

func toResponse(a Appointment) appointmentResponse {
	out := appointmentResponse{
		ID:            a.ID,
		PetID:         a.PetID,
		Owner:         a.Owner,
		Date:          a.Date.Format(clock.DateLayout),
		Time:          a.Time,
		Code:          a.Code,
		AssignedVetID: a.AssignedVetID,
		VetUsername:   a.VetUsername,
		VetName:       a.VetName,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format(clock.DateLayout)
		out.CompletedAt = &s
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
