package uploadhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/usecase/uploadsvc"
)

// Options — необязательные зависимости HTTP-слоя.
type Options struct {
	DataDir string
	GCTTL   time.Duration
	Logger  *zap.Logger
	Metrics http.Handler
}

// Server serves the resumable upload HTTP API.
type Server struct {
	uploads uploadsvc.Service
	dataDir string
	gcTTL   time.Duration
	log     *zap.Logger
	metrics http.Handler
}

// New создаёт HTTP-обработчик поверх сервиса загрузок.
func New(uploads uploadsvc.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	srv := &Server{
		uploads: uploads,
		dataDir: opts.DataDir,
		gcTTL:   opts.GCTTL,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}

	return srv.routes()
}

// routes регистрирует обработчики загрузок, здоровья, метрик и GC.
func (a *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/uploads", func(ur chi.Router) {
		ur.Post("/", a.createUpload)
		ur.Route("/{uploadID}", func(u chi.Router) {
			u.Get("/", a.getStatus)
			u.Delete("/", a.abortUpload)
			u.Get("/missing", a.getMissing)
			u.Post("/complete", a.completeUpload)
			u.Get("/content", a.fetchContent)
			u.Put("/chunks/{offset}", a.insertChunk)
		})
	})

	r.Get("/health", a.health)
	r.Post("/admin/gc", a.gcOnce)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
