// Package httpapi exposes the server's REST endpoints and the websocket
// change channel.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mihailsb/docsync/internal/logging"
	"github.com/mihailsb/docsync/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// Server wires the services into an http.Server with a chi router.
type Server struct {
	addr      string
	jwtSecret []byte
	users     *services.UserService
	documents *services.DocumentService
	hub       *Hub
	log       logging.Logger
}

func NewServer(addr string, secret string, us *services.UserService, ds *services.DocumentService, hub *Hub, log logging.Logger) *Server {
	return &Server{
		addr:      addr,
		jwtSecret: []byte(secret),
		users:     us,
		documents: ds,
		hub:       hub,
		log:       log,
	}
}

// Router assembles the route tree. Split out from Run so tests can mount it
// on httptest.Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/api/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleCreateDocument)
			r.Get("/{syncID}", s.handleGetDocument)
			r.Put("/{syncID}", s.handleUpdateDocument)
			r.Delete("/{syncID}", s.handleDeleteDocument)
		})

		r.Get("/api/ws", s.handleWebsocket)
	})

	return r
}

// Run serves until ctx is cancelled, then drains with a bounded shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
