package pets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/platform/keylock"
	"clinic-records/internal/ports/blob"
	"clinic-records/internal/ports/catalog"
	"clinic-records/internal/ports/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("pet not found")
	ErrNoPhoto      = errors.New("pet has no photo")
)

type Service struct {
	repo    Repository
	log     oplog.Recorder
	catalog catalog.Catalog
	blobs   blob.Store
	now     func() time.Time
	records *keylock.Map
}

// NewService: blobs puede ser nil (sin fotos).
func NewService(repo Repository, log oplog.Recorder, cat catalog.Catalog, blobs blob.Store, clk clock.Clock) *Service {
	s := &Service{repo: repo, log: log, catalog: cat, blobs: blobs, now: time.Now, records: keylock.New()}
	if clk != nil {
		s.now = clk.Now
	}
	return s
}

type ProcedureInput struct {
	Date        time.Time
	Name        string
	Code        string
	Category    string
	LabType     string
	Notes       string
	Vet         string
	Medications string
	Dosage      string
	Directions  string
	Cost        decimal.NullDecimal
}

type Input struct {
	Name       string
	Species    string
	Breed      string
	Gender     string
	Age        *int
	Microchip  string
	Owner      string
	Address    string
	Federation string

	// nil = no tocar (update); en create nil = sin procedimientos
	Procedures []ProcedureInput
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Age != nil && *in.Age < 0 {
		return fmt.Errorf("%w: age must be >= 0", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (Pet, error) {
	if err := in.validate(); err != nil {
		return Pet{}, err
	}

	now := s.now()
	p := Pet{ID: uuid.NewString(), CreatedAt: now}
	s.apply(&p, in)
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, err
	}
	if _, err := s.log.Record(ctx, oplog.EventPetCreated, "Added pet "+p.Name, p.ID); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// Update reemplaza los datos de la ficha. La foto se conserva.
func (s *Service) Update(ctx context.Context, id string, in Input) (Pet, error) {
	if err := in.validate(); err != nil {
		return Pet{}, err
	}
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}

	s.apply(&p, in)
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	if _, err := s.log.Record(ctx, oplog.EventPetUpdated, "Updated pet "+p.Name, p.ID); err != nil {
		return Pet{}, err
	}
	return p, nil
}

func (s *Service) apply(p *Pet, in Input) {
	p.Name = strings.TrimSpace(in.Name)
	p.Species = strings.TrimSpace(in.Species)
	p.Breed = strings.TrimSpace(in.Breed)
	p.Gender = strings.TrimSpace(in.Gender)
	p.Age = in.Age
	p.Microchip = strings.TrimSpace(in.Microchip)
	p.Owner = strings.TrimSpace(in.Owner)
	p.Address = strings.TrimSpace(in.Address)
	p.Federation = strings.TrimSpace(in.Federation)

	if in.Procedures != nil {
		p.Procedures = make([]Procedure, 0, len(in.Procedures))
		for _, pi := range in.Procedures {
			p.Procedures = append(p.Procedures, s.newProcedure(pi))
		}
	}
}

func (s *Service) newProcedure(in ProcedureInput) Procedure {
	p := Procedure{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Code:        strings.TrimSpace(in.Code),
		Category:    strings.TrimSpace(in.Category),
		LabType:     strings.TrimSpace(in.LabType),
		Notes:       strings.TrimSpace(in.Notes),
		Vet:         strings.TrimSpace(in.Vet),
		Medications: strings.TrimSpace(in.Medications),
		Dosage:      strings.TrimSpace(in.Dosage),
		Directions:  strings.TrimSpace(in.Directions),
		Cost:        in.Cost,
	}
	if !in.Date.IsZero() {
		p.Date = clock.DateOf(in.Date)
	}
	return Enrich(p, s.catalog)
}

// Delete borra la ficha y, si hay, su foto.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return err
	}
	if p.Photo != "" && s.blobs != nil {
		// best effort: una foto huérfana no invalida el borrado
		_ = s.blobs.Delete(ctx, p.Photo)
	}
	_, err = s.log.Record(ctx, oplog.EventPetDeleted, "Deleted pet "+p.Name, p.ID)
	return err
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

// List ordena por nombre.
func (s *Service) List(ctx context.Context) ([]Pet, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

// AddProcedure agrega un procedimiento enriquecido desde el catálogo.
// No registra operación.
func (s *Service) AddProcedure(ctx context.Context, petID string, in ProcedureInput) (Pet, error) {
	if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.Code) == "" && strings.TrimSpace(in.Category) == "" {
		return Pet{}, fmt.Errorf("%w: procedure name, code or category is required", ErrInvalidInput)
	}
	petID = strings.TrimSpace(petID)
	release := s.records.Lock(petID)
	defer release()

	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, err
	}

	p.Procedures = append(p.Procedures, s.newProcedure(in))
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// SetPhoto sube la foto nueva, la asocia a la mascota y borra la
// anterior. Cuenta como actualización de la ficha.
func (s *Service) SetPhoto(ctx context.Context, petID, filename, contentType string, r io.Reader) (Pet, error) {
	if s.blobs == nil {
		return Pet{}, fmt.Errorf("%w: photo storage is not configured", ErrInvalidInput)
	}
	petID = strings.TrimSpace(petID)
	release := s.records.Lock(petID)
	defer release()

	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, err
	}

	key := photoKey(p.ID, filename, s.now())
	if _, err := s.blobs.Put(ctx, key, r, blob.PutOptions{ContentType: contentType}); err != nil {
		return Pet{}, err
	}

	old := p.Photo
	p.Photo = key
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		_ = s.blobs.Delete(ctx, key)
		return Pet{}, err
	}
	if old != "" && old != key {
		_ = s.blobs.Delete(ctx, old)
	}

	if _, err := s.log.Record(ctx, oplog.EventPetUpdated, "Updated pet "+p.Name, p.ID); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// OpenPhoto devuelve la foto actual. El caller cierra el reader.
func (s *Service) OpenPhoto(ctx context.Context, petID string) (blob.Info, io.ReadCloser, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(petID))
	if err != nil {
		return blob.Info{}, nil, err
	}
	if p.Photo == "" || s.blobs == nil {
		return blob.Info{}, nil, ErrNoPhoto
	}
	info, rc, err := s.blobs.Get(ctx, p.Photo)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, ErrNoPhoto
	}
	return info, rc, err
}

// photoKey: pets/<id>/<unixmillis>-<rand><ext>. Sólo se conserva la
// extensión del nombre original.
func photoKey(petID, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 8 || strings.ContainsAny(ext, " /") {
		ext = ""
	}
	return fmt.Sprintf("pets/%s/%d-%s%s", petID, now.UnixMilli(), uuid.NewString()[:8], ext)
}
