package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/petrusmatiros/odd-duck/internal/game"
	"github.com/petrusmatiros/odd-duck/internal/packs"
)

// Config holds configuration for the gateway service.
type Config struct {
	// ValidatedPath is the WebSocket path for clients that carry a session
	// token (fresh or not). BootstrapPath only mints tokens.
	ValidatedPath string
	BootstrapPath string
	// PublicURL is the externally reachable base URL, used to build room
	// invite links.
	PublicURL string
	Conn      ConnConfig
}

// DefaultConfig returns default configuration for the gateway service.
func DefaultConfig() Config {
	return Config{
		ValidatedPath: "validated",
		BootstrapPath: "bootstrap",
		PublicURL:     "http://localhost:3000",
		Conn:          DefaultConnConfig(),
	}
}

// Service ties the hub and the orchestrator together and exposes the HTTP
// surface: two WebSocket endpoints plus the QR invite endpoint.
type Service struct {
	config       Config
	hub          *Hub
	orchestrator *Orchestrator
	rooms        *game.RoomRegistry
}

func NewService(config Config, players *game.PlayerRegistry, rooms *game.RoomRegistry, catalog *packs.Catalog) *Service {
	hub := NewHub(config.Conn)
	return &Service{
		config:       config,
		hub:          hub,
		orchestrator: NewOrchestrator(players, rooms, catalog, hub),
		rooms:        rooms,
	}
}

// Hub exposes the connection hub, mainly for tests.
func (s *Service) Hub() *Hub {
	return s.hub
}

// RegisterRoutes registers the gateway HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/"+strings.Trim(s.config.ValidatedPath, "/"), s.handleValidatedConnection)
	mux.HandleFunc("/"+strings.Trim(s.config.BootstrapPath, "/"), s.handleBootstrapConnection)
	mux.HandleFunc("/qr", s.handleQR)
	log.Info().
		Str("validated_path", s.config.ValidatedPath).
		Str("bootstrap_path", s.config.BootstrapPath).
		Msg("gateway routes registered")
}

// handleValidatedConnection upgrades a client that may already hold a
// session token. The token travels in the query string or as a bearer
// token; a missing or unknown one gets a fresh identity on connect.
func (s *Service) handleValidatedConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.Upgrade(w, r, clientToken(r), s.orchestrator)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade validated connection")
		return
	}
	s.orchestrator.HandleConnect(conn)
}

func (s *Service) handleBootstrapConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.Upgrade(w, r, "", s.orchestrator)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade bootstrap connection")
		return
	}
	s.orchestrator.HandleBootstrapConnect(conn)
}

func clientToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
