package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/middleware"
	"clinic-records/internal/ports/clock"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.With(middleware.RequireScope(access.ScopeOpsRead)).Get("/reports/summary", summaryHandler(svc))
}

type newPatientResponse struct {
	PetID   string    `json:"pet_id"`
	PetName string    `json:"pet_name"`
	Owner   string    `json:"owner"`
	AddedAt time.Time `json:"added_at"`
}

type finishedAppointmentResponse struct {
	AppointmentID string          `json:"appointment_id"`
	Code          string          `json:"code"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Vet           string          `json:"vet"`
	VetUsername   string          `json:"vet_username"`
	PetID         string          `json:"pet_id"`
	PetName       string          `json:"pet_name"`
	Owner         string          `json:"owner"`
	Procedures    []string        `json:"procedures"`
	TotalCost     decimal.Decimal `json:"total_cost" swaggertype:"string"`
}

type summaryResponse struct {
	Period                 string                        `json:"period"`
	From                   string                        `json:"from"`
	To                     string                        `json:"to"`
	Events                 []oplog.EntryResponse         `json:"events"`
	NewPatients            []newPatientResponse          `json:"new_patients"`
	PetsAdded              int                           `json:"pets_added"`
	FinishedAppointments   []finishedAppointmentResponse `json:"finished_appointments"`
	AppointmentsDone       int                           `json:"appointments_done"`
	TotalRevenue           decimal.Decimal               `json:"total_revenue" swaggertype:"string"`
	PrescriptionsDispensed int                           `json:"prescriptions_dispensed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// summaryHandler godoc
// @Summary Resumen de actividad
// @Description Resume el período: eventos del log, pacientes nuevos, citas terminadas con ingresos y recetas despachadas. week = hoy-6..hoy, month = 1..hoy; custom requiere from y to. Sólo admin.
// @Tags reports
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param period query string true "day | week | month | custom"
// @Param from query string false "YYYY-MM-DD (custom)"
// @Param to query string false "YYYY-MM-DD (custom)"
// @Success 200 {object} summaryResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /reports/summary [get]
func summaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var from, to time.Time
		if s := strings.TrimSpace(q.Get("from")); s != "" {
			d, err := clock.ParseDate(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from must be YYYY-MM-DD"})
				return
			}
			from = d
		}
		if s := strings.TrimSpace(q.Get("to")); s != "" {
			d, err := clock.ParseDate(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to must be YYYY-MM-DD"})
				return
			}
			to = d
		}

		sum, err := svc.ForPeriod(r.Context(), q.Get("period"), from, to)
		if err != nil {
			if errors.Is(err, ErrInvalidPeriod) || errors.Is(err, ErrInvalidRange) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			middleware.LoggerFrom(r.Context()).Error("report summary", map[string]any{"error": err})
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}

		writeJSON(w, http.StatusOK, toResponse(sum))
	}
}

func toResponse(s Summary) summaryResponse {
	out := summaryResponse{
		Period:                 s.Period,
		From:                   s.From.Format(clock.DateLayout),
		To:                     s.To.Format(clock.DateLayout),
		Events:                 make([]oplog.EntryResponse, 0, len(s.Events)),
		NewPatients:            make([]newPatientResponse, 0, len(s.NewPatients)),
		PetsAdded:              s.PetsAdded,
		FinishedAppointments:   make([]finishedAppointmentResponse, 0, len(s.FinishedAppointments)),
		AppointmentsDone:       s.AppointmentsDone,
		TotalRevenue:           s.TotalRevenue,
		PrescriptionsDispensed: s.PrescriptionsDispensed,
	}
	for _, e := range s.Events {
		out.Events = append(out.Events, oplog.ToResponse(e))
	}
	for _, p := range s.NewPatients {
		out.NewPatients = append(out.NewPatients, newPatientResponse{
			PetID:   p.PetID,
			PetName: p.PetName,
			Owner:   p.Owner,
			AddedAt: p.AddedAt,
		})
	}
	for _, a := range s.FinishedAppointments {
		out.FinishedAppointments = append(out.FinishedAppointments, finishedAppointmentResponse{
			AppointmentID: a.AppointmentID,
			Code:          a.Code,
			Date:          a.CompletedAt.Format(clock.DateLayout),
			Time:          a.Time,
			Vet:           a.Vet,
			VetUsername:   a.VetUsername,
			PetID:         a.PetID,
			PetName:       a.PetName,
			Owner:         a.Owner,
			Procedures:    a.Procedures,
			TotalCost:     a.TotalCost,
		})
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
