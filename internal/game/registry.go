package game

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDurationMinutes is the timer duration a fresh room starts with,
// replaced by the host's choice when a round starts.
const DefaultDurationMinutes = 10

// maxCodeAttempts bounds unique-code generation. With a 19-character
// alphabet and 6 positions collisions are vanishingly rare at the target
// scale.
const maxCodeAttempts = 100

// RoomRegistry maps room codes to rooms. Rooms are never removed; they are
// cheap and the registry is bounded by process memory at the target scale.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	clock clockwork.Clock
}

func NewRoomRegistry(clock clockwork.Clock) *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*Room),
		clock: clock,
	}
}

// CreateRoom allocates a fresh unique code and a room with the given host
// already in the roster.
func (r *RoomRegistry) CreateRoom(host *Player) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, ErrCodeExhausted
		}
		code = generateRoomCode()
		if _, taken := r.rooms[code]; !taken {
			break
		}
	}

	room := newRoom(code, host, NewTimer(DefaultDurationMinutes, r.clock))
	r.rooms[code] = room

	log.Info().
		Str("room_id", code).
		Str("host_id", host.ID().String()).
		Msg("room created")
	return room, nil
}

func (r *RoomRegistry) Get(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// RoomHostedBy finds the room a player hosts, if any. Used to de-duplicate
// game creation: a host asking to create again gets their existing room.
func (r *RoomRegistry) RoomHostedBy(p *Player) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		if room.IsHost(p) {
			return room, true
		}
	}
	return nil, false
}

// RoomsWith returns every room the player logically belongs to: rooms where
// they are a member and rooms they host. Host rooms are included even when
// the host's record briefly left the roster, so a reconnecting host always
// regains their room.
func (r *RoomRegistry) RoomsWith(p *Player) []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rooms []*Room
	for _, room := range r.rooms {
		if room.HasPlayer(p) || room.IsHost(p) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}
