package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/petrusmatiros/odd-duck/internal/game"
	"github.com/petrusmatiros/odd-duck/internal/packs"
)

// eventHandler processes one inbound event for an already-resolved player.
type eventHandler func(c *Conn, p *game.Player, data json.RawMessage)

// Orchestrator owns the game-facing side of the gateway: it resolves
// connection tokens to players, routes inbound events to handlers and reacts
// to disconnects. All event handling is serialized behind a single mutex, so
// handlers can read and mutate rooms without interleaving.
type Orchestrator struct {
	players *game.PlayerRegistry
	rooms   *game.RoomRegistry
	packs   *packs.Catalog
	hub     *Hub

	mu       sync.Mutex
	handlers map[string]eventHandler
}

func NewOrchestrator(players *game.PlayerRegistry, rooms *game.RoomRegistry, catalog *packs.Catalog, hub *Hub) *Orchestrator {
	o := &Orchestrator{
		players: players,
		rooms:   rooms,
		packs:   catalog,
		hub:     hub,
	}
	o.handlers = map[string]eventHandler{
		EventCheckIfAlreadyCreatedGame: o.handleCheckIfAlreadyCreatedGame,
		EventCheckIfPlayerNameExists:   o.handleCheckIfPlayerNameExists,
		EventCreateGame:                o.handleCreateGame,
		EventJoinGame:                  o.handleJoinGame,
		EventDirectJoinGame:            o.handleDirectJoinGame,
		EventCheckIfAllowedInGame:      o.handleCheckIfAllowedInGame,
		EventGetCurrentUsername:        o.handleGetCurrentUsername,
		EventChangeUsername:            o.handleChangeUsername,
		EventKickPlayer:                o.handleKickPlayer,
		EventTogglePauseGame:           o.handleTogglePauseGame,
		EventEndGame:                   o.handleEndGame,
		EventGetGameState:              o.handleGetGameState,
		EventGetGamePacks:              o.handleGetGamePacks,
		EventGetCurrentGamePack:        o.handleGetCurrentGamePack,
		EventStartGame:                 o.handleStartGame,
	}
	return o
}

// HandleConnect runs when a connection on the validated namespace comes up.
// An unrecognized token gets a freshly minted identity pushed back to the
// client; a recognized one is a rejoin and the connection is re-attached to
// the player's personal group and every room they belong to.
func (o *Orchestrator) HandleConnect(c *Conn) {
	o.mu.Lock()
	defer o.mu.Unlock()

	player, ok := o.players.Lookup(c.Token())
	if !ok {
		o.registerIdentity(c)
		return
	}

	o.hub.Join(c, player.ID().String())
	for _, room := range o.rooms.RoomsWith(player) {
		o.hub.Join(c, room.ID())
		log.Info().
			Str("player_id", player.ID().String()).
			Str("room_id", room.ID()).
			Msg("player rejoined room")
	}
}

// HandleBootstrapConnect runs on the bootstrap namespace, whose only purpose
// is minting a token for clients that have none yet.
func (o *Orchestrator) HandleBootstrapConnect(c *Conn) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registerIdentity(c)
}

func (o *Orchestrator) registerIdentity(c *Conn) {
	token, player := o.players.Register()
	c.setToken(token)
	o.hub.Join(c, player.ID().String())
	o.hub.SendTo(c, EventRegisterNewPlayerToken, RegisterNewPlayerTokenResponse{
		Token:        token,
		ToastMessage: "New player token created",
	})
}

// HandleEvent implements EventSink.
func (o *Orchestrator) HandleEvent(c *Conn, env Envelope) {
	o.mu.Lock()
	defer o.mu.Unlock()

	player, ok := o.players.Lookup(c.Token())
	if !ok {
		// The allowed-in-game probe is the one event a client without an
		// identity is expected to send; everything else is dropped.
		if env.Event == EventCheckIfAllowedInGame {
			o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
				AllowedState: NotAllowed,
				ToastMessage: "You are not registered as a player",
			})
			return
		}
		log.Warn().
			Str("conn_id", c.ID()).
			Str("event", env.Event).
			Msg("dropping event from unregistered connection")
		return
	}

	handler, ok := o.handlers[env.Event]
	if !ok {
		log.Warn().
			Str("event", env.Event).
			Msg("unknown event")
		return
	}
	handler(c, player, env.Data)
}

// HandleDisconnect implements EventSink. The transport may deliver it more
// than once per logical disconnect, so every cleanup step checks state
// before applying it.
func (o *Orchestrator) HandleDisconnect(c *Conn) {
	o.mu.Lock()
	defer o.mu.Unlock()

	player, ok := o.players.Lookup(c.Token())
	if !ok {
		return
	}

	for _, room := range o.rooms.RoomsWith(player) {
		if room.IsHost(player) {
			// The host leaving mid-round orphans the game. Reset it so the
			// lobby can start fresh; in the lobby a host drop is harmless
			// since the host can always rejoin.
			if room.State() == game.InGame {
				room.ResetGame()
				o.hub.Publish(room.ID(), EventPlayerDisconnectedBroadcast, PlayerDisconnectedBroadcast{
					Player:         player.Ref(),
					PlayersInLobby: room.Players(),
					IsHost:         true,
				})
				log.Info().
					Str("room_id", room.ID()).
					Str("player_id", player.ID().String()).
					Msg("host disconnected mid-game, room reset")
			}
			continue
		}
		// Mid-round the roster must stay intact (roles are already dealt),
		// so a non-host drop is only announced and applied in the lobby.
		if room.State() == game.InLobby && room.HasPlayer(player) {
			room.RemovePlayer(player)
			o.hub.Publish(room.ID(), EventPlayerDisconnectedBroadcast, PlayerDisconnectedBroadcast{
				Player:         player.Ref(),
				PlayersInLobby: room.Players(),
			})
		}
	}
}

// leaveAllPreviousRooms detaches a player from every room they are a member
// of, except rooms they host. Joining a new room implies leaving the old
// ones.
func (o *Orchestrator) leaveAllPreviousRooms(c *Conn, p *game.Player) {
	for _, room := range o.rooms.RoomsWith(p) {
		if room.IsHost(p) {
			continue
		}
		o.hub.Leave(c, room.ID())
		room.RemovePlayer(p)
	}
}

func decode[T any](data json.RawMessage, event string) (T, bool) {
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("malformed payload")
		var zero T
		return zero, false
	}
	return req, true
}
