package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/middleware"
	"clinic-records/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /auth (público) y /users (admin; /users/vets
// también recepción). issuer puede ser nil en modo dev.
func RegisterRoutes(r chi.Router, svc *Service, issuer auth.TokenIssuer) {
	r.Post("/auth/login", loginHandler(svc, issuer))
	r.Post("/auth/change-password", changePasswordHandler(svc))

	r.Route("/users", func(ur chi.Router) {
		ur.With(middleware.RequireScope(access.ScopeVetsList)).Get("/vets", listVetsHandler(svc))

		ur.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireScope(access.ScopeUsersManage))
			ar.Get("/", listUsersHandler(svc))
			ar.Post("/", createUserHandler(svc))
			ar.Get("/{userID}", getUserHandler(svc))
			ar.Put("/{userID}", updateUserHandler(svc))
			ar.Delete("/{userID}", deleteUserHandler(svc))
		})
	})
}

type userRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role" enums:"admin,vet,receptionist,pharmacist"`
	Password string `json:"password"` // obligatorio al crear; vacío en update = conservar
	Email    string `json:"email"`
	Active   *bool  `json:"active"`
}

// userResponse nunca incluye el hash.
type userResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Role      access.Role `json:"role"`
	Email     string      `json:"email"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	User      userResponse `json:"user"`
}

type changePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// loginHandler godoc
// @Summary Login
// @Description Valida usuario y password y emite un JWT (HS256) con userId, username, role y name. En modo dev (sin AUTH_JWT_SECRET) no se emite token: usar `X-Debug-User-ID` con el id devuelto.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "Credenciales"
// @Success 200 {object} loginResponse
// @Failure 400 {string} string "invalid json"
// @Failure 401 {string} string "invalid username or password"
// @Router /auth/login [post]
func loginHandler(svc *Service, issuer auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInactive) {
				// mismo mensaje: no revelar si el usuario existe
				http.Error(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
				return
			}
			middleware.LoggerFrom(r.Context()).Error("login", map[string]any{"error": err})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := loginResponse{User: toUserResponse(u)}
		if issuer != nil {
			token, exp, err := issuer.Issue(toActor(u))
			if err != nil {
				middleware.LoggerFrom(r.Context()).Error("issue token", map[string]any{"error": err})
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			resp.Token = token
			resp.ExpiresAt = &exp
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// changePasswordHandler godoc
// @Summary Cambiar password
// @Description Cambia la password verificando la actual.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body changePasswordRequest true "username, old_password, new_password"
// @Success 200 {object} map[string]string
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "invalid username or password"
// @Router /auth/change-password [post]
func changePasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := svc.ChangePassword(r.Context(), req.Username, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// listUsersHandler godoc
// @Summary Listar usuarios
// @Description Lista todas las cuentas del staff. Sólo admin.
// @Tags users
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} userResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /users [get]
func listUsersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(items))
	}
}

// listVetsHandler godoc
// @Summary Listar vets activos
// @Description Vets activos para asignar citas. Admin y recepción.
// @Tags users
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} userResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /users/vets [get]
func listVetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ActiveVets(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(items))
	}
}

// createUserHandler godoc
// @Summary Crear usuario
// @Tags users
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body userRequest true "Datos del usuario"
// @Success 201 {object} userResponse
// @Failure 400 {string} string "invalid input"
// @Failure 409 {string} string "username already exists"
// @Router /users [post]
func createUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		u, err := svc.Create(r.Context(), CreateInput{
			Username: req.Username,
			Name:     req.Name,
			Role:     req.Role,
			Password: req.Password,
			Email:    req.Email,
			Active:   req.Active,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

func getUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetByID(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// updateUserHandler godoc
// @Summary Actualizar usuario
// @Description Reemplaza los datos del usuario. Password vacía conserva la actual; active omitido no cambia.
// @Tags users
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param userID path string true "ID del usuario"
// @Param payload body userRequest true "Datos del usuario"
// @Success 200 {object} userResponse
// @Failure 400 {string} string "invalid input"
// @Failure 404 {string} string "user not found"
// @Failure 409 {string} string "username already exists"
// @Router /users/{userID} [put]
func updateUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		u, err := svc.Update(r.Context(), chi.URLParam(r, "userID"), UpdateInput{
			Username: req.Username,
			Name:     req.Name,
			Role:     req.Role,
			Email:    req.Email,
			Active:   req.Active,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// deleteUserHandler godoc
// @Summary Borrar usuario
// @Tags users
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param userID path string true "ID del usuario"
// @Success 204
// @Failure 404 {string} string "user not found"
// @Router /users/{userID} [delete]
func deleteUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, ErrUsernameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		middleware.LoggerFrom(r.Context()).Error("users", map[string]any{"error": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		Email:     u.Email,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(items []User) []userResponse {
	out := make([]userResponse, 0, len(items))
	for _, u := range items {
		out = append(out, toUserResponse(u))
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
