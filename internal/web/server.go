package web

import (
	"log/slog"
	"net/http"
	"time"

	"mdtree/internal/config"
	"mdtree/internal/markup"
	"mdtree/internal/render"
	"mdtree/internal/storage/fs"
	"mdtree/internal/store"
	"mdtree/internal/view"
)

type Server struct {
	cfg       config.Config
	store     *store.Store
	mux       *http.ServeMux
	locker    *fs.Locker
	views     *Templates
	auth      *Auth
	assembler *markup.Assembler
	preview   *view.Renderer
	recent    *treeCache
}

func NewServer(cfg config.Config, st *store.Store) (*Server, error) {
	auth, err := newAuth(cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		store:     st,
		mux:       http.NewServeMux(),
		locker:    fs.NewLocker(),
		views:     MustParseTemplates(),
		auth:      auth,
		assembler: markup.New(render.New()),
		preview: view.New(view.Options{
			AssetPrefix: cfg.AssetPrefix,
			AdClient:    cfg.AdClient,
			AdSlot:      cfg.AdSlot,
			CodeStyle:   cfg.CodeStyle,
		}),
		recent: newTreeCache(cfg.CacheMax),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.auth != nil {
		h = s.auth.Middleware(h)
	}
	return logRequests(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /posts/{slug...}", s.handlePost)
	s.mux.HandleFunc("GET /api/posts/{slug...}", s.handleAPIPost)
	s.mux.HandleFunc("POST /api/assemble", s.handleAssemble)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", time.Since(start).Milliseconds()}
		if user, ok := CurrentUser(r.Context()); ok {
			attrs = append(attrs, "user", user.Name)
		}
		slog.Info("http request", attrs...)
	})
}
