// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/tresillo/internal/auth"
	"github.com/jason-s-yu/tresillo/internal/config"
	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/jason-s-yu/tresillo/internal/lobby"
	"github.com/jason-s-yu/tresillo/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Server holds what the HTTP handlers share.
type Server struct {
	Rooms      *game.Registry
	Matchmaker *lobby.Matchmaker
	Signer     *auth.ResumeSigner // nil disables resume tokens
	Logger     *logrus.Logger
	Config     config.ServerConfig
	Rules      game.HouseRules // base for rooms created over HTTP

	ipOnce sync.Once
	perIP  *ipCounter
}

func (srv *Server) connCounter() *ipCounter {
	srv.ipOnce.Do(func() { srv.perIP = newIPCounter(srv.Config.MaxConnsPerIP) })
	return srv.perIP
}

// NewRouter wires every endpoint.
func NewRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   srv.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", HealthHandler(srv))
	r.Get("/ws", RoomWSHandler(srv))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LogMiddleware(srv.Logger))
		r.Post("/rooms", CreateRoomHandler(srv))
		r.Get("/rooms", ListRoomsHandler(srv))
		r.Post("/lobby/queue", QueueHandler(srv))
		r.Delete("/lobby/queue", LeaveQueueHandler(srv))
		r.Get("/lobby/match/{clientId}", MatchHandler(srv))
	})
	return r
}

// HealthHandler reports liveness with room and connection counts.
func HealthHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"rooms":       len(srv.Rooms.List()),
			"connections": srv.Rooms.Connections(),
		})
	}
}
