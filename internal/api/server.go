package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/formlens/internal/config"
	"github.com/dgallion1/formlens/internal/extract"
	"github.com/dgallion1/formlens/internal/pipeline"
	"github.com/dgallion1/formlens/internal/session"
)

// Server is the HTTP API server for formlens.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	sessions     *session.Store
	extractor    *extract.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, sessions *session.Store, extractor *extract.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		sessions:     sessions,
		extractor:    extractor,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}
		// extra 1MB for form and JSON overhead
		r.Use(maxBody(s.cfg.MaxUploadBytes + 1<<20))

		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/document", s.handleUpload)
			r.Get("/pages/{page}.png", s.handlePageImage)
			r.Get("/pages/{page}/overlay.png", s.handleOverlay)
			r.Post("/click", s.handleClick)
			r.Post("/focus", s.handleFocus)
			r.Post("/blur", s.handleBlur)
			r.Put("/fields/{name}", s.handleSetField)
			r.Post("/submit", s.handleSubmit)
			r.Get("/fields.xlsx", s.handleExportFields)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
