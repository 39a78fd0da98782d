package pets

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/middleware"
	"clinic-records/internal/ports/catalog"
	"clinic-records/internal/ports/clock"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// maxPhotoBytes limita el upload de fotos.
const maxPhotoBytes = 10 << 20

func RegisterRoutes(r chi.Router, svc *Service, cat catalog.Catalog) {
	r.Route("/pets", func(pr chi.Router) {
		read := middleware.RequireScope(access.ScopePetsRead)
		write := middleware.RequireScope(access.ScopePetsWrite)

		pr.With(read).Get("/", listPetsHandler(svc))
		pr.With(write).Post("/", createPetHandler(svc))
		pr.With(read).Get("/{petID}", getPetHandler(svc))
		pr.With(write).Put("/{petID}", updatePetHandler(svc))
		pr.With(middleware.RequireScope(access.ScopePetsDelete)).Delete("/{petID}", deletePetHandler(svc))

		pr.With(write).Post("/{petID}/procedures", addProcedureHandler(svc))
		pr.With(write).Post("/{petID}/photo", uploadPhotoHandler(svc))
		pr.With(read).Get("/{petID}/photo", getPhotoHandler(svc))
	})

	r.With(middleware.RequireScope(access.ScopeCatalogRead)).Get("/procedures/catalog", catalogHandler(cat))
}

type procedureRequest struct {
	Date        string           `json:"date"` // YYYY-MM-DD opcional
	Name        string           `json:"name"`
	Code        string           `json:"code"`
	Category    string           `json:"category"`
	LabType     string           `json:"lab_type"`
	Notes       string           `json:"notes"`
	Vet         string           `json:"vet"`
	Medications string           `json:"medications"`
	Dosage      string           `json:"dosage"`
	Directions  string           `json:"directions"`
	Cost        *decimal.Decimal `json:"cost" swaggertype:"number"`
}

type petRequest struct {
	Name       string `json:"name"`
	Species    string `json:"species"`
	Breed      string `json:"breed"`
	Gender     string `json:"gender"`
	Age        *int   `json:"age"`
	Microchip  string `json:"microchip"`
	Owner      string `json:"owner"`
	Address    string `json:"address"`
	Federation string `json:"federation"`

	// omitido = conservar los procedimientos actuales
	Procedures []procedureRequest `json:"procedures"`
}

type procedureResponse struct {
	ID          string           `json:"id"`
	Date        string           `json:"date,omitempty"`
	Name        string           `json:"name"`
	Code        string           `json:"code,omitempty"`
	Category    string           `json:"category,omitempty"`
	LabType     string           `json:"lab_type,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Vet         string           `json:"vet,omitempty"`
	Medications string           `json:"medications,omitempty"`
	Dosage      string           `json:"dosage,omitempty"`
	Directions  string           `json:"directions,omitempty"`
	Cost        *decimal.Decimal `json:"cost,omitempty" swaggertype:"number"`
}

type petResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Species    string              `json:"species"`
	Breed      string              `json:"breed"`
	Gender     string              `json:"gender"`
	Age        *int                `json:"age,omitempty"`
	Microchip  string              `json:"microchip"`
	Owner      string              `json:"owner"`
	Address    string              `json:"address"`
	Federation string              `json:"federation"`
	HasPhoto   bool                `json:"has_photo"`
	Procedures []procedureResponse `json:"procedures"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

type catalogCategory struct {
	Category   string             `json:"category"`
	Procedures []catalog.Template `json:"procedures"`
}

// listPetsHandler godoc
// @Summary Listar mascotas
// @Tags pets
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} petResponse
// @Failure 401 {string} string "unauthorized"
// @Router /pets [get]
func listPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]petResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPetResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createPetHandler godoc
// @Summary Crear mascota
// @Description Crea la ficha. Los procedimientos se completan desde el catálogo por código o por (categoría, nombre).
// @Tags pets
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body petRequest true "Datos de la mascota"
// @Success 201 {object} petResponse
// @Failure 400 {string} string "invalid input"
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodePet(w, r)
		if !ok {
			return
		}
		p, err := svc.Create(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPetResponse(p))
	}
}

func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Actualizar mascota
// @Description Reemplaza los datos de la ficha. La foto se conserva; procedures omitido conserva los actuales.
// @Tags pets
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param payload body petRequest true "Datos de la mascota"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "invalid input"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [put]
func updatePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodePet(w, r)
		if !ok {
			return
		}
		p, err := svc.Update(r.Context(), chi.URLParam(r, "petID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// deletePetHandler godoc
// @Summary Borrar mascota
// @Description Sólo admin y vet.
// @Tags pets
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Success 204
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [delete]
func deletePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "petID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// addProcedureHandler godoc
// @Summary Agregar procedimiento
// @Description Agrega un procedimiento a la ficha. Si vet viene vacío se usa el nombre del usuario actual.
// @Tags pets
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param payload body procedureRequest true "Procedimiento"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "invalid input"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/procedures [post]
func addProcedureHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req procedureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		in, err := toProcedureInput(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(in.Vet) == "" {
			if actor, ok := middleware.GetActor(r.Context()); ok {
				in.Vet = actor.Name
			}
		}

		p, err := svc.AddProcedure(r.Context(), chi.URLParam(r, "petID"), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// uploadPhotoHandler godoc
// @Summary Subir foto
// @Description Multipart con el campo `file`. Reemplaza la foto anterior.
// @Tags pets
// @Accept multipart/form-data
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param file formData file true "Imagen"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "file is required"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/photo [post]
func uploadPhotoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		p, err := svc.SetPhoto(r.Context(), chi.URLParam(r, "petID"), header.Filename, contentType, file)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// getPhotoHandler godoc
// @Summary Descargar foto
// @Tags pets
// @Produce octet-stream
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Success 200 {file} file
// @Failure 404 {string} string "pet has no photo"
// @Router /pets/{petID}/photo [get]
func getPhotoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, rc, err := svc.OpenPhoto(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer rc.Close()

		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		if info.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, rc)
	}
}

// catalogHandler godoc
// @Summary Catálogo de procedimientos
// @Description Templates agrupados por categoría, en el orden del catálogo.
// @Tags procedures
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} catalogCategory
// @Router /procedures/catalog [get]
func catalogHandler(cat catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, groupByCategory(cat.All()))
	}
}

func groupByCategory(items []catalog.Template) []catalogCategory {
	out := make([]catalogCategory, 0)
	index := map[string]int{}
	for _, t := range items {
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, catalogCategory{Category: t.Category})
		}
		out[i].Procedures = append(out[i].Procedures, t)
	}
	return out
}

func decodePet(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req petRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return Input{}, false
	}

	in := Input{
		Name:       req.Name,
		Species:    req.Species,
		Breed:      req.Breed,
		Gender:     req.Gender,
		Age:        req.Age,
		Microchip:  req.Microchip,
		Owner:      req.Owner,
		Address:    req.Address,
		Federation: req.Federation,
	}
	if req.Procedures != nil {
		in.Procedures = make([]ProcedureInput, 0, len(req.Procedures))
		for _, pr := range req.Procedures {
			pi, err := toProcedureInput(pr)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return Input{}, false
			}
			in.Procedures = append(in.Procedures, pi)
		}
	}
	return in, true
}

func toProcedureInput(req procedureRequest) (ProcedureInput, error) {
	in := ProcedureInput{
		Name:        req.Name,
		Code:        req.Code,
		Category:    req.Category,
		LabType:     req.LabType,
		Notes:       req.Notes,
		Vet:         req.Vet,
		Medications: req.Medications,
		Dosage:      req.Dosage,
		Directions:  req.Directions,
	}
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := clock.ParseDate(s)
		if err != nil {
			return ProcedureInput{}, errors.New("procedure date must be YYYY-MM-DD")
		}
		in.Date = d
	}
	if req.Cost != nil {
		in.Cost = decimal.NewNullDecimal(*req.Cost)
	}
	return in, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "pet not found", http.StatusNotFound)
	case errors.Is(err, ErrNoPhoto):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		middleware.LoggerFrom(r.Context()).Error("pets", map[string]any{"error": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toPetResponse(p Pet) petResponse {
	out := petResponse{
		ID:         p.ID,
		Name:       p.Name,
		Species:    p.Species,
		Breed:      p.Breed,
		Gender:     p.Gender,
		Age:        p.Age,
		Microchip:  p.Microchip,
		Owner:      p.Owner,
		Address:    p.Address,
		Federation: p.Federation,
		HasPhoto:   p.Photo != "",
		Procedures: make([]procedureResponse, 0, len(p.Procedures)),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	for _, pr := range p.Procedures {
		pres := procedureResponse{
			ID:          pr.ID,
			Name:        pr.Name,
			Code:        pr.Code,
			Category:    pr.Category,
			LabType:     pr.LabType,
			Notes:       pr.Notes,
			Vet:         pr.Vet,
			Medications: pr.Medications,
			Dosage:      pr.Dosage,
			Directions:  pr.Directions,
		}
		if !pr.Date.IsZero() {
			pres.Date = pr.Date.Format(clock.DateLayout)
		}
		if pr.Cost.Valid {
			c := pr.Cost.Decimal
			pres.Cost = &c
		}
		out.Procedures = append(out.Procedures, pres)
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
