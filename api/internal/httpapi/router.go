// Package httpapi exposes the coaching wizard as a JSON API for a web form.
package httpapi

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"barchart-coach/api/internal/session"
	"barchart-coach/api/internal/store"
)

// Archive stores downloaded reports and lists them for teachers.
type Archive interface {
	Save(ctx context.Context, rep store.Report) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]store.Report, error)
}

// Options configures NewRouter. Only Sessions is required.
type Options struct {
	Sessions *session.Registry
	// Archive is nil when no database is configured.
	Archive Archive
	// TeacherAPIKey guards GET /reports; empty disables the route.
	TeacherAPIKey string
	DefaultLocale string
	Logger        *zap.Logger
	// Ping reports database health on GET /health.
	Ping func(ctx context.Context) error
}

type handlers struct {
	sessions      *session.Registry
	archive       Archive
	defaultLocale string
	log           *zap.Logger
	ping          func(ctx context.Context) error
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(o Options) *chi.Mux {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{
		sessions:      o.Sessions,
		archive:       o.Archive,
		defaultLocale: o.DefaultLocale,
		log:           log,
		ping:          o.Ping,
	}

	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recovery(log))

	r.Get("/health", h.health)
	r.Post("/guardrail", h.checkGuardrail)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)

			r.Put("/framing", h.setFraming)
			r.Put("/data", h.setData)
			r.Put("/scale", h.setScale)
			r.Put("/checklist", h.setChecklist)
			r.Put("/reflection", h.setReflection)

			r.Post("/question", h.askQuestion)
			r.Post("/hint", h.requestHint)
			r.Post("/validate", h.validate)
			r.Post("/reset", h.reset)

			r.Get("/analysis", h.analysis)
			r.Get("/report", h.report)
		})
	})

	if o.Archive != nil && o.TeacherAPIKey != "" {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(o.TeacherAPIKey))
			r.Get("/reports", h.listReports)
		})
	}

	return r
}
