package router

import (
	"context"
	"fmt"
	"net/http"

	"clinic-records/internal/adapters/catalog/static"
	"clinic-records/internal/adapters/clock/system"
	mem "clinic-records/internal/adapters/storage/memory"
	"clinic-records/internal/adapters/storage/sqlstore"
	"clinic-records/internal/domain/appointments"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/domain/pets"
	"clinic-records/internal/domain/prescriptions"
	"clinic-records/internal/domain/reports"
	"clinic-records/internal/domain/users"
	"clinic-records/internal/middleware"
	"clinic-records/internal/platform/logger"
	"clinic-records/internal/platform/metrics"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/blob"
	"clinic-records/internal/ports/catalog"
	"clinic-records/internal/ports/clock"

	_ "clinic-records/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Logger  logger.Logger    // nil = nop
	Metrics *metrics.Metrics // nil = sin /metrics

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	TokenIssuer  auth.TokenIssuer  // nil en modo dev: login no emite token

	// Opcional: si viene, usa sqlstore (Postgres o SQLite según el driver).
	// Si no, in-memory. Las tablas tienen que existir (sqlstore.Migrate).
	DB *sqlx.DB

	Blobs   blob.Store      // nil = sin fotos
	Catalog catalog.Catalog // nil = catálogo estático
	Clock   clock.Clock     // nil = reloj del sistema
	Random  clock.RandomID  // nil = derivado de UUID

	// Admin inicial; se crea sólo si el store de usuarios está vacío.
	AdminUsername string
	AdminPassword string
}

type repos struct {
	pets          pets.Repository
	appointments  appointments.Repository
	prescriptions prescriptions.Repository
	users         users.Repository
	oplog         oplog.Repository
}

func newRepos(db *sqlx.DB) repos {
	if db != nil {
		return repos{
			pets:          sqlstore.NewPetsRepo(db),
			appointments:  sqlstore.NewAppointmentsRepo(db),
			prescriptions: sqlstore.NewPrescriptionsRepo(db),
			users:         sqlstore.NewUsersRepo(db),
			oplog:         sqlstore.NewOplogRepo(db),
		}
	}
	return repos{
		pets:          mem.NewPetRepo(),
		appointments:  mem.NewAppointmentRepo(),
		prescriptions: mem.NewPrescriptionRepo(),
		users:         mem.NewUserRepo(),
		oplog:         mem.NewOplogRepo(),
	}
}

func NewRouter(ctx context.Context, opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = system.Clock{}
	}
	rnd := opts.Random
	if rnd == nil {
		rnd = system.Random{}
	}
	cat := opts.Catalog
	if cat == nil {
		cat = static.New()
	}

	rp := newRepos(opts.DB)

	// Services por módulo
	oplogSvc := oplog.NewService(rp.oplog, clk)
	usersSvc := users.NewService(rp.users, clk)
	petsSvc := pets.NewService(rp.pets, oplogSvc, cat, opts.Blobs, clk)
	apptSvc := appointments.NewService(rp.appointments, usersSvc, oplogSvc, clk, rnd)
	rxSvc := prescriptions.NewService(rp.prescriptions, petsSvc, oplogSvc, clk)
	reportsSvc := reports.NewService(oplogSvc, petsSvc, rp.appointments, rxSvc, usersSvc, clk)

	if opts.Metrics != nil {
		oplogSvc.SetObserver(opts.Metrics)
		apptSvc.SetObserver(opts.Metrics)
	}

	created, err := usersSvc.EnsureAdmin(ctx, opts.AdminUsername, opts.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("admin user created", map[string]any{"username": opts.AdminUsername})
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log, opts.Metrics))
	r.Use(middleware.Recover)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.ResolveActor(usersSvc))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	users.RegisterRoutes(r, usersSvc, opts.TokenIssuer)
	pets.RegisterRoutes(r, petsSvc, cat)
	appointments.RegisterRoutes(r, apptSvc)
	prescriptions.RegisterRoutes(r, rxSvc)
	oplog.RegisterRoutes(r, oplogSvc)
	reports.RegisterRoutes(r, reportsSvc)

	return r, nil
}
