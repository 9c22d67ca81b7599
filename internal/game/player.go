package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Player is a logical participant, independent of any socket connection.
// A player is created on first contact from an unrecognized token and is
// never deleted, so a disconnected player can always rejoin.
type Player struct {
	id   uuid.UUID
	mu   sync.RWMutex
	name string
}

func NewPlayer() *Player {
	return &Player{id: uuid.New()}
}

func (p *Player) ID() uuid.UUID {
	return p.id
}

// Name returns the display name, or "" when none has been set yet.
func (p *Player) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Player) HasName() bool {
	return p.Name() != ""
}

func (p *Player) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

// PlayerRef is the wire representation of a player.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *Player) Ref() PlayerRef {
	return PlayerRef{ID: p.id.String(), Name: p.Name()}
}

// PlayerRegistry maps opaque session tokens to players. Tokens are minted
// here and handed to the client; identity is stable for the process lifetime
// of the token.
type PlayerRegistry struct {
	mu      sync.RWMutex
	byToken map[string]*Player
}

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{byToken: make(map[string]*Player)}
}

// Register mints a fresh token and player.
func (r *PlayerRegistry) Register() (string, *Player) {
	token := uuid.New().String()
	player := NewPlayer()

	r.mu.Lock()
	r.byToken[token] = player
	r.mu.Unlock()

	log.Debug().
		Str("player_id", player.ID().String()).
		Msg("registered new player")
	return token, player
}

// Lookup resolves a token to its player, if any.
func (r *PlayerRegistry) Lookup(token string) (*Player, bool) {
	if token == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byToken[token]
	return p, ok
}

// LookupByID finds a player by id. Used for targeting (e.g. kicks) where the
// caller knows a player id but not a token.
func (r *PlayerRegistry) LookupByID(id uuid.UUID) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byToken {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}
