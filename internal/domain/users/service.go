package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("user inactive")
)

type Service struct {
	repo     Repository
	now      func() time.Time
	hashCost int
}

func NewService(repo Repository, clk clock.Clock) *Service {
	s := &Service{repo: repo, now: time.Now, hashCost: bcrypt.DefaultCost}
	if clk != nil {
		s.now = clk.Now
	}
	return s
}

type CreateInput struct {
	Username string
	Name     string
	Role     string
	Password string
	Email    string
	Active   *bool // nil = true
}

func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	role, ok := access.ParseRole(in.Role)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, fmt.Errorf("%w: password is required for new users", ErrInvalidInput)
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return User{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	now := s.now()
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		PasswordHash: hash,
		Email:        strings.TrimSpace(in.Email),
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.Name == "" {
		u.Name = username
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

type UpdateInput struct {
	Username string
	Name     string
	Role     string
	Email    string
	Active   *bool  // nil = no tocar
	Password string // vacío = conservar
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	u, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	role, ok := access.ParseRole(in.Role)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	if other, err := s.repo.GetByUsername(ctx, username); err == nil && other.ID != u.ID {
		return User{}, ErrUsernameTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	if strings.TrimSpace(in.Password) != "" {
		hash, err := s.hash(in.Password)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = hash
	}

	u.Username = username
	u.Name = strings.TrimSpace(in.Name)
	if u.Name == "" {
		u.Name = username
	}
	u.Role = role
	u.Email = strings.TrimSpace(in.Email)
	if in.Active != nil {
		u.Active = *in.Active
	}
	u.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

// List ordena por username.
func (s *Service) List(ctx context.Context) ([]User, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Username) < strings.ToLower(items[j].Username)
	})
	return items, nil
}

// ActiveVets: usuarios con rol vet y active=true.
func (s *Service) ActiveVets(ctx context.Context) ([]User, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(items))
	for _, u := range items {
		if u.Role == access.RoleVet && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

// Authenticate valida credenciales. Usuario inexistente y password
// incorrecta devuelven el mismo error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	if !u.Active {
		return User{}, ErrInactive
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()
	return s.repo.Update(ctx, u)
}

// EnsureAdmin crea el admin inicial sólo si no hay ningún usuario.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return false, nil
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, CreateInput{
		Username: username,
		Name:     "Admin",
		Role:     string(access.RoleAdmin),
		Password: password,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ActorByID implementa auth.ActorLookup.
func (s *Service) ActorByID(ctx context.Context, id string) (auth.Actor, error) {
	u, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Actor{}, auth.ErrActorNotFound
		}
		return auth.Actor{}, err
	}
	return toActor(u), nil
}

func (s *Service) ActorByUsername(ctx context.Context, username string) (auth.Actor, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Actor{}, auth.ErrActorNotFound
		}
		return auth.Actor{}, err
	}
	return toActor(u), nil
}

func toActor(u User) auth.Actor {
	return auth.Actor{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
		Active:   u.Active,
	}
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
