package oplog

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
	r.With(middleware.RequireScope(access.ScopeOpsRead)).Get("/ops/log", listLogHandler(svc))
}

// EntryResponse representa una operación registrada.
type EntryResponse struct {
	ID      string    `json:"id"`
	TS      time.Time `json:"ts"`
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	PetID   string    `json:"pet_id,omitempty"`
}

// listLogHandler godoc
// @Summary Listar operaciones
// @Description Devuelve el log de operaciones cuyo día cae en [from, to]. Sólo admin. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags ops
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param from query string true "Fecha inicial YYYY-MM-DD"
// @Param to query string true "Fecha final YYYY-MM-DD"
// @Success 200 {array} EntryResponse
// @Failure 400 {string} string "from/to inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 500 {string} string "internal error"
// @Router /ops/log [get]
func listLogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := clock.ParseDate(strings.TrimSpace(r.URL.Query().Get("from")))
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to, err := clock.ParseDate(strings.TrimSpace(r.URL.Query().Get("to")))
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		items, err := svc.ListBetween(r.Context(), from, to)
		if err != nil {
			if errors.Is(err, ErrInvalidRange) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			middleware.LoggerFrom(r.Context()).Error("list operation log", map[string]any{"error": err})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]EntryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, ToResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ToResponse se reutiliza en reports para exponer los eventos del período.
func ToResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:      e.ID,
		TS:      e.TS,
		Type:    e.Type,
		Message: e.Message,
		PetID:   e.PetID,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
