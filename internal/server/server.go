package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/handlers"
	mw "github.com/crapthings/storyboard/internal/middleware"
	"github.com/crapthings/storyboard/internal/registry"
	"github.com/crapthings/storyboard/internal/runner"
	ws "github.com/crapthings/storyboard/internal/websocket"
)

type Server struct {
	Router *chi.Mux
	DB     *database.DB
	WSHub  *ws.Hub
}

type Config struct {
	DB       *database.DB
	Registry *registry.Registry
	Runner   *runner.Runner
	Provider handlers.Provider
	// KeySource names where the provider key came from, for /fal/status.
	KeySource      string
	AllowedOrigins []string
	DataDir        string
	Port           int
	// TaskRateLimit caps POST /tasks per client per minute. Zero disables it.
	TaskRateLimit int
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool
}

func New(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = runner.Default()
	}
	s := &Server{
		Router: chi.NewRouter(),
		DB:     cfg.DB,
		WSHub:  ws.NewHub(cfg.AllowedOrigins),
	}

	s.setupMiddleware(cfg.AllowedOrigins, cfg.TrustProxy)
	s.setupRoutes(cfg)

	return s
}

func (s *Server) setupMiddleware(origins []string, trustProxy bool) {
	if trustProxy {
		s.Router.Use(chiMiddleware.RealIP)
	}
	s.Router.Use(mw.RequestID)
	s.Router.Use(mw.SecurityHeaders)
	s.Router.Use(mw.Logger)
	s.Router.Use(mw.CORS(origins))
	s.Router.Use(chiMiddleware.Recoverer)
}

func (s *Server) setupRoutes(cfg Config) {
	systemHandler := handlers.NewSystemHandler(s.DB, cfg.DataDir, cfg.Port, s.WSHub)
	modelsHandler := handlers.NewModelsHandler(cfg.Registry)
	storyboardsHandler := handlers.NewStoryboardsHandler(s.DB)
	shotsHandler := handlers.NewShotsHandler(s.DB)
	assetsHandler := handlers.NewAssetsHandler(s.DB, s.WSHub)
	tasksHandler := handlers.NewTasksHandler(s.DB, cfg.Runner, cfg.Provider, s.WSHub)
	falHandler := handlers.NewFalHandler(cfg.Provider, cfg.KeySource)

	runTask := http.HandlerFunc(tasksHandler.Run)

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/system/health", systemHandler.Health)
		r.Get("/system/info", systemHandler.Info)

		r.Get("/ws", s.WSHub.HandleWS)

		r.Route("/models", func(r chi.Router) {
			r.Get("/", modelsHandler.List)
			r.Get("/default", modelsHandler.Default)
		})

		r.Route("/storyboards", func(r chi.Router) {
			r.Get("/", storyboardsHandler.List)
			r.Post("/", storyboardsHandler.Create)
			r.Get("/{id}", storyboardsHandler.Get)
			r.Put("/{id}", storyboardsHandler.Update)
			r.Delete("/{id}", storyboardsHandler.Delete)
			r.Get("/{id}/shots", shotsHandler.List)
			r.Post("/{id}/shots", shotsHandler.Create)
			r.Put("/{id}/shots/order", shotsHandler.Reorder)
		})

		r.Route("/shots/{shotID}", func(r chi.Router) {
			r.Put("/", shotsHandler.Rename)
			r.Delete("/", shotsHandler.Delete)
			r.Get("/assets", assetsHandler.List)
			r.Post("/assets", assetsHandler.Create)
		})

		r.Route("/assets/{id}", func(r chi.Router) {
			r.Post("/activate", assetsHandler.Activate)
			r.Delete("/", assetsHandler.Delete)
		})

		if cfg.TaskRateLimit > 0 {
			r.With(mw.RateLimit(cfg.TaskRateLimit, time.Minute)).Post("/tasks", runTask)
		} else {
			r.Post("/tasks", runTask)
		}

		r.Get("/fal/status", falHandler.Status)
	})

	s.Router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
