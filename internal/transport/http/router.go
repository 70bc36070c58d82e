package http

import (
	"net/http"
	"time"

	"narrated-quiz-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds what the router needs beyond the service.
type RouterConfig struct {
	AllowedOrigins []string
	CookieSecret   []byte
	SecureCookies  bool
}

// NewRouter mounts the websocket session endpoint and the REST API.
func NewRouter(service *app.QuizService, cfg RouterConfig) http.Handler {
	devices := NewDeviceIdentity(cfg.CookieSecret, cfg.SecureCookies)
	ws := NewWSHandler(service, devices, cfg.AllowedOrigins)
	rest := NewRESTHandler(service, devices)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", rest.Health)
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Logger)
		api.Use(middleware.Timeout(30 * time.Second))
		api.Get("/preferences", rest.GetPreferences)
		api.Put("/preferences", rest.PutPreferences)
		api.Get("/questions/next", rest.NextQuestion)
		api.Post("/progress/reset", rest.ResetProgress)
	})
	return r
}
