package router

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	mem "pet-owner-reports/internal/adapters/storage/memory"
	pg "pet-owner-reports/internal/adapters/storage/postgres"
	_ "pet-owner-reports/internal/docs"
	"pet-owner-reports/internal/domain/owners"
	"pet-owner-reports/internal/domain/pets"
	mw "pet-owner-reports/internal/middleware"
	"pet-owner-reports/internal/platform/logger"
	"pet-owner-reports/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// SeedDemo carga datos demo en el modo in-memory.
	SeedDemo bool

	// Chaos del endpoint /pets/delay/{id}.
	Chaos pets.Chaos

	Metrics *metrics.Metrics
	Logger  logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.AccessLog(log))
	r.Use(mw.Recover(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var (
		ownerRepo owners.Repository
		petRepo   pets.Repository
	)

	// Si no te pasan DB explícita, intenta por env
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err != nil {
				log.Warn("postgres unavailable, falling back to memory", map[string]any{"error": err})
			} else {
				db = opened
			}
		}
	}

	if db != nil {
		ownerRepo = pg.NewOwnersRepo(db)
		petRepo = pg.NewPetsRepo(db)
	} else {
		ownerRepo = mem.NewOwnerRepo()
		petRepo = mem.NewPetRepo()

		if opts.SeedDemo {
			if err := mem.Seed(context.Background(), ownerRepo, petRepo); err != nil {
				log.Error("seed demo data", map[string]any{"error": err})
			}
		}
	}

	ownersSvc := owners.NewService(ownerRepo)
	petsSvc := pets.NewService(petRepo, ownersSvc, opts.Chaos)

	owners.RegisterRoutes(r, ownersSvc)
	pets.RegisterRoutes(r, petsSvc, func(outcome string) {
		m.UnreliableServed.WithLabelValues(outcome).Inc()
	})

	return r
}
