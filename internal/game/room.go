package game

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GameState is the room lifecycle state.
type GameState string

const (
	InLobby GameState = "in_lobby"
	InGame  GameState = "in_game"
)

// Room owns membership, host identity, role assignment, location selection
// and the round state machine for one game session. The id doubles as the
// broadcast-group key and never changes.
//
// State machine: in_lobby -> StartGame -> in_game -> EndGame/ResetGame ->
// in_lobby. Setters like SetLocation are callable only pre-start by contract;
// the gateway is responsible for checking State first.
type Room struct {
	id string

	mu            sync.RWMutex
	host          *Player
	players       []*Player
	spies         map[uuid.UUID]*Player
	civilians     map[uuid.UUID]*Player
	civilianRoles map[uuid.UUID]int
	gamePackID    string
	locationID    string
	timer         *Timer
	state         GameState
}

func newRoom(code string, host *Player, timer *Timer) *Room {
	return &Room{
		id:            code,
		host:          host,
		players:       []*Player{host},
		spies:         make(map[uuid.UUID]*Player),
		civilians:     make(map[uuid.UUID]*Player),
		civilianRoles: make(map[uuid.UUID]int),
		timer:         timer,
		state:         InLobby,
	}
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) Host() *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

func (r *Room) Timer() *Timer {
	return r.timer
}

func (r *Room) State() GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// AddPlayer adds a player to the lobby roster. Idempotent: adding a member
// twice leaves the roster unchanged.
func (r *Room) AddPlayer(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasPlayerLocked(p) {
		return
	}
	r.players = append(r.players, p)
}

// RemovePlayer removes a player from the roster and from both role lists.
// A player can only be in one role list at a time, but removal is
// unconditional across all of them.
func (r *Room) RemovePlayer(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, member := range r.players {
		if member.ID() == p.ID() {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	delete(r.spies, p.ID())
	delete(r.civilians, p.ID())
	delete(r.civilianRoles, p.ID())
}

func (r *Room) HasPlayer(p *Player) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasPlayerLocked(p)
}

func (r *Room) hasPlayerLocked(p *Player) bool {
	for _, member := range r.players {
		if member.ID() == p.ID() {
			return true
		}
	}
	return false
}

func (r *Room) IsHost(p *Player) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host.ID() == p.ID()
}

func (r *Room) HasSpy(p *Player) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.spies[p.ID()]
	return ok
}

func (r *Room) HasCivilian(p *Player) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.civilians[p.ID()]
	return ok
}

// CivilianRole returns the role-list index assigned to a civilian. The index
// is stable across locale switches; the caller resolves it against the
// locale's role list.
func (r *Room) CivilianRole(p *Player) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.civilianRoles[p.ID()]
	return idx, ok
}

// Players snapshots the roster in join order.
func (r *Room) Players() []PlayerRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]PlayerRef, 0, len(r.players))
	for _, p := range r.players {
		refs = append(refs, p.Ref())
	}
	return refs
}

// Members snapshots the roster as players, for callers that need identity
// rather than wire refs.
func (r *Room) Members() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]*Player, len(r.players))
	copy(members, r.players)
	return members
}

func (r *Room) SetGamePack(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gamePackID = id
}

func (r *Room) GamePackID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gamePackID
}

func (r *Room) SetLocation(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locationID = id
}

func (r *Room) LocationID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locationID
}

// StartGame assigns roles and starts the round. Exactly one uniformly chosen
// player becomes the spy; everyone else becomes a civilian with an
// independently uniform index into roles. Role assignment is intentionally
// with replacement: two civilians may share a role, mirroring the physical
// party-game rule. The publish capability is handed to the timer for this
// round's tick broadcasts.
func (r *Room) StartGame(roles []string, publish TimerPublishFunc) error {
	r.mu.Lock()
	if r.locationID == "" {
		r.mu.Unlock()
		return ErrNoLocation
	}
	if r.gamePackID == "" {
		r.mu.Unlock()
		return ErrNoGamePack
	}
	if len(roles) == 0 {
		r.mu.Unlock()
		return ErrNoRoles
	}
	if len(r.players) == 0 {
		r.mu.Unlock()
		return ErrEmptyRoom
	}

	spyIdx := rand.IntN(len(r.players))
	for i, p := range r.players {
		if i == spyIdx {
			r.spies[p.ID()] = p
			continue
		}
		r.civilians[p.ID()] = p
		r.civilianRoles[p.ID()] = rand.IntN(len(roles))
	}
	r.state = InGame
	spy := r.players[spyIdx]
	r.mu.Unlock()

	r.timer.Start(publish)

	log.Info().
		Str("room_id", r.id).
		Str("spy_id", spy.ID().String()).
		Int("players", len(r.Players())).
		Msg("game started")
	return nil
}

// EndGame returns the room to the lobby and stops the timer. The roster is
// kept.
func (r *Room) EndGame() {
	r.mu.Lock()
	r.state = InLobby
	r.mu.Unlock()
	r.timer.Stop()
}

// ResetGame clears all round state (location, pack, roles) and resets the
// timer to its last configured duration, preparing a fresh round with the
// same lobby. The roster and host are untouched.
func (r *Room) ResetGame() {
	r.mu.Lock()
	r.locationID = ""
	r.gamePackID = ""
	r.spies = make(map[uuid.UUID]*Player)
	r.civilians = make(map[uuid.UUID]*Player)
	r.civilianRoles = make(map[uuid.UUID]int)
	r.state = InLobby
	r.mu.Unlock()
	r.timer.Stop()
}
