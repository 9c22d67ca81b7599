package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/petrusmatiros/odd-duck/internal/game"
	"github.com/petrusmatiros/odd-duck/internal/packs"
)

// handleCheckIfAlreadyCreatedGame answers a host's probe after a page reload:
// if the player already hosts a room, re-attach them to it instead of letting
// the client create a second one.
func (o *Orchestrator) handleCheckIfAlreadyCreatedGame(c *Conn, p *game.Player, _ json.RawMessage) {
	room, ok := o.rooms.RoomHostedBy(p)
	if !ok {
		return
	}
	room.AddPlayer(p)
	o.hub.Join(c, room.ID())
	o.hub.SendTo(c, EventCheckIfAlreadyCreatedResponse, RoomCodeResponse{
		RoomCode:     room.ID(),
		ToastMessage: "You are already a host of a room",
	})
}

func (o *Orchestrator) handleCheckIfPlayerNameExists(c *Conn, p *game.Player, _ json.RawMessage) {
	var name *string
	if p.HasName() {
		n := p.Name()
		name = &n
	}
	o.hub.SendTo(c, EventCheckIfPlayerNameResponse, PlayerNameResponse{Name: name})
}

func (o *Orchestrator) handleCreateGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[CreateGameRequest](data, EventCreateGame)
	if !ok {
		return
	}

	p.SetName(req.Name)

	// A player hosts at most one room. Creating again re-attaches them to
	// the room they already host.
	if room, hosted := o.rooms.RoomHostedBy(p); hosted {
		room.AddPlayer(p)
		o.hub.Join(c, room.ID())
		o.hub.SendTo(c, EventCheckIfAlreadyCreatedResponse, RoomCodeResponse{
			RoomCode:     room.ID(),
			ToastMessage: "You are already a host of a room",
		})
		return
	}

	room, err := o.rooms.CreateRoom(p)
	if err != nil {
		log.Error().Err(err).Msg("failed to create room")
		return
	}
	o.hub.Join(c, room.ID())
	o.hub.SendTo(c, EventCheckIfAlreadyCreatedResponse, RoomCodeResponse{
		RoomCode:     room.ID(),
		ToastMessage: "You have created a new game",
	})
}

func (o *Orchestrator) handleJoinGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[JoinGameRequest](data, EventJoinGame)
	if !ok {
		return
	}

	o.leaveAllPreviousRooms(c, p)

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		log.Warn().Str("room_id", req.Code).Msg("join for unknown room")
		return
	}

	if room.IsHost(p) {
		o.hub.Join(c, room.ID())
		o.hub.SendTo(c, EventCheckIfAlreadyCreatedResponse, RoomCodeResponse{
			RoomCode:     room.ID(),
			ToastMessage: fmt.Sprintf("You are the host of the room %s", req.Code),
		})
		return
	}

	// A client sends null for the name when the player already has one.
	if req.Name != "" {
		p.SetName(req.Name)
	}

	if room.HasPlayer(p) {
		o.hub.Join(c, room.ID())
		o.hub.SendTo(c, EventCheckIfAlreadyCreatedResponse, RoomCodeResponse{
			RoomCode: room.ID(),
		})
		return
	}

	if room.State() == game.InGame {
		log.Info().
			Str("room_id", room.ID()).
			Str("player_id", p.ID().String()).
			Msg("join rejected, game in progress")
		return
	}

	room.AddPlayer(p)
	o.hub.Join(c, room.ID())
	o.hub.SendTo(c, EventCheckIfAlreadyCreatedResponse, RoomCodeResponse{
		RoomCode: room.ID(),
	})
	o.hub.Publish(room.ID(), EventPlayerJoinedBroadcast, PlayerJoinedBroadcast{
		Player:         p.Ref(),
		PlayersInLobby: room.Players(),
	})
}

// handleDirectJoinGame serves the invite-link flow: a brand-new player who
// landed on a room URL supplies their name and joins in one step. Players who
// already have a name go through the allowed-in-game probe instead.
func (o *Orchestrator) handleDirectJoinGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[JoinGameRequest](data, EventDirectJoinGame)
	if !ok {
		return
	}

	o.leaveAllPreviousRooms(c, p)

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		log.Warn().Str("room_id", req.Code).Msg("direct join for unknown room")
		return
	}

	if p.HasName() {
		return
	}

	p.SetName(req.Name)
	room.AddPlayer(p)
	o.hub.Join(c, room.ID())

	o.hub.SendTo(c, EventDirectJoinResponse, DirectJoinResponse{
		RoomCode:       room.ID(),
		PlayersInLobby: room.Players(),
		ToastMessage:   fmt.Sprintf("You have joined the game as %s", p.Name()),
	})
	o.hub.Publish(room.ID(), EventPlayerJoinedBroadcast, PlayerJoinedBroadcast{
		Player:         p.Ref(),
		PlayersInLobby: room.Players(),
	})
}

// handleCheckIfAllowedInGame is the room page's admission probe. The verdict
// steers the client: not_allowed sends them away, allow_register asks for a
// name first, allow_join admits them (re-adding them to the roster if
// needed).
func (o *Orchestrator) handleCheckIfAllowedInGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[CodeRequest](data, EventCheckIfAllowedInGame)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
			AllowedState: NotAllowed,
			ToastMessage: fmt.Sprintf("The room %s does not exist", req.Code),
		})
		return
	}

	if !p.HasName() {
		if room.State() == game.InGame {
			o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
				AllowedState: NotAllowed,
				ToastMessage: "Game is already in progress",
			})
			return
		}
		o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
			AllowedState: AllowRegister,
			IsHost:       room.Host().ID().String(),
			PlayerID:     p.ID().String(),
			ToastMessage: "You are allowed to join the game, but you need a name first",
		})
		return
	}

	if room.IsHost(p) {
		room.AddPlayer(p)
		o.hub.Join(c, room.ID())
		o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
			AllowedState:   AllowJoin,
			IsHost:         room.Host().ID().String(),
			PlayerID:       p.ID().String(),
			PlayersInLobby: room.Players(),
			ToastMessage:   "You can join - welcome back, host!",
		})
		o.hub.Publish(room.ID(), EventPlayerJoinedBroadcast, PlayerJoinedBroadcast{
			Player:         p.Ref(),
			PlayersInLobby: room.Players(),
		})
		return
	}

	if !room.HasPlayer(p) {
		if room.State() == game.InGame {
			o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
				AllowedState: NotAllowed,
				ToastMessage: "Game is already in progress",
			})
			return
		}
		room.AddPlayer(p)
		o.hub.Join(c, room.ID())
		o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
			AllowedState:   AllowJoin,
			IsHost:         room.Host().ID().String(),
			PlayerID:       p.ID().String(),
			PlayersInLobby: room.Players(),
			ToastMessage:   fmt.Sprintf("Joined room %s", req.Code),
		})
		o.hub.Publish(room.ID(), EventPlayerJoinedBroadcast, PlayerJoinedBroadcast{
			Player:         p.Ref(),
			PlayersInLobby: room.Players(),
		})
		return
	}

	// Already a member, likely a reload mid-session.
	o.hub.Join(c, room.ID())
	o.hub.SendTo(c, EventCheckIfAllowedResponse, AllowedInGameResponse{
		AllowedState:   AllowJoin,
		IsHost:         room.Host().ID().String(),
		PlayerID:       p.ID().String(),
		PlayersInLobby: room.Players(),
		ToastMessage:   fmt.Sprintf("You are already in the room %s", req.Code),
	})
	o.hub.Publish(room.ID(), EventPlayerJoinedBroadcast, PlayerJoinedBroadcast{
		Player:         p.Ref(),
		PlayersInLobby: room.Players(),
	})
}

func (o *Orchestrator) handleGetCurrentUsername(c *Conn, p *game.Player, _ json.RawMessage) {
	name := p.Name()
	o.hub.SendTo(c, EventGetCurrentUsernameResponse, UsernameResponse{
		Name:         &name,
		ToastMessage: fmt.Sprintf("Your current name is %s", name),
	})
}

func (o *Orchestrator) handleChangeUsername(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[ChangeUsernameRequest](data, EventChangeUsername)
	if !ok {
		return
	}
	p.SetName(req.Name)
	o.hub.SendTo(c, EventChangeUsernameResponse, ToastResponse{
		ToastMessage: fmt.Sprintf("Your name has been changed to %s", req.Name),
	})
}

// handleKickPlayer lets the host remove a player from the roster. The kicked
// player's connections are told via their personal group; their sockets stay
// subscribed to the room so the client can navigate away on its own.
func (o *Orchestrator) handleKickPlayer(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[KickPlayerRequest](data, EventKickPlayer)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		return
	}
	if !room.IsHost(p) {
		log.Warn().
			Str("room_id", room.ID()).
			Str("player_id", p.ID().String()).
			Msg("kick refused, not the host")
		return
	}

	targetID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		log.Warn().Str("player_id", req.PlayerID).Msg("kick for malformed player id")
		return
	}
	target, ok := o.players.LookupByID(targetID)
	if !ok {
		return
	}
	if !room.HasPlayer(target) {
		return
	}

	room.RemovePlayer(target)

	o.hub.Publish(target.ID().String(), EventKickPlayerResponse, ToastResponse{
		ToastMessage: fmt.Sprintf("You have been kicked from the room %s", req.Code),
	})
	o.hub.Publish(room.ID(), EventPlayerDisconnectedBroadcast, PlayerDisconnectedBroadcast{
		Player:         target.Ref(),
		PlayersInLobby: room.Players(),
	})
}

func (o *Orchestrator) handleTogglePauseGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[CodeRequest](data, EventTogglePauseGame)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		return
	}
	if !room.IsHost(p) {
		return
	}
	if room.State() != game.InGame {
		return
	}

	timer := room.Timer()
	switch timer.State() {
	case game.TimerPaused:
		timer.Resume()
		o.hub.Publish(room.ID(), EventTogglePauseBroadcast, TogglePauseBroadcast{
			ToastMessage: "The game has been resumed",
			TimerState:   timer.State(),
		})
	case game.TimerRunning:
		timer.Pause()
		o.hub.Publish(room.ID(), EventTogglePauseBroadcast, TogglePauseBroadcast{
			ToastMessage: "The game has been paused",
			TimerState:   timer.State(),
		})
	default:
		log.Warn().
			Str("room_id", room.ID()).
			Str("timer_state", string(timer.State())).
			Msg("toggle pause in unexpected timer state")
	}
}

// handleEndGame resets the room back to a fresh lobby and pushes a blank
// state to everyone, so every client lands on the lobby screen together.
func (o *Orchestrator) handleEndGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[CodeRequest](data, EventEndGame)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		return
	}
	if !room.IsHost(p) {
		return
	}

	room.ResetGame()

	o.hub.Publish(room.ID(), EventEndGameBroadcast, EndGameBroadcast{
		ToastMessage:   fmt.Sprintf("The game has ended by the host %s", p.Name()),
		PlayersInLobby: room.Players(),
	})
	o.hub.Publish(room.ID(), EventGetGameStateResponse, GameStateResponse{
		GameState: room.State(),
		GamePacks: o.packs.All(),
	})
}

// handleGetGameState builds a per-player view of the round. The spy is told
// their role is "spy" and the location stays null for them; civilians get
// their role resolved against the requested locale.
func (o *Orchestrator) handleGetGameState(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[GetGameStateRequest](data, EventGetGameState)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		return
	}
	if !room.HasPlayer(p) {
		log.Warn().
			Str("room_id", room.ID()).
			Str("player_id", p.ID().String()).
			Msg("game state requested by non-member")
		return
	}

	resp := GameStateResponse{
		GameState: room.State(),
		GamePacks: o.packs.All(),
	}
	if packID := room.GamePackID(); packID != "" {
		if pack, found := o.packs.Get(packID); found {
			resp.GamePack = pack
		}
	}

	if room.State() == game.InGame {
		pack, found := o.packs.Get(room.GamePackID())
		if !found {
			log.Error().
				Str("room_id", room.ID()).
				Str("game_pack_id", room.GamePackID()).
				Msg("room references unknown game pack")
			return
		}
		location, found := pack.Location(room.LocationID())
		if !found {
			log.Error().
				Str("room_id", room.ID()).
				Str("location_id", room.LocationID()).
				Msg("room references unknown location")
			return
		}

		if room.HasSpy(p) {
			role := "spy"
			resp.PlayerRole = &role
		} else {
			idx, assigned := room.CivilianRole(p)
			if !assigned {
				log.Error().
					Str("room_id", room.ID()).
					Str("player_id", p.ID().String()).
					Msg("in-game member has no role")
				return
			}
			locale := req.Locale
			if locale == "" {
				locale = packs.DefaultLocale
			}
			roles := location.Roles(locale)
			if idx >= len(roles) {
				log.Error().
					Str("room_id", room.ID()).
					Int("role_index", idx).
					Msg("role index out of range for locale")
				return
			}
			role := roles[idx]
			resp.PlayerRole = &role
			resp.Location = location
		}
	}

	update := room.Timer().Update()
	resp.TimeLeft = &update.TimeLeft
	resp.TimerState = &update.TimerState

	o.hub.SendTo(c, EventGetGameStateResponse, resp)
}

func (o *Orchestrator) handleGetGamePacks(c *Conn, _ *game.Player, _ json.RawMessage) {
	o.hub.SendTo(c, EventGetGamePacksResponse, GamePacksResponse{GamePacks: o.packs.All()})
}

func (o *Orchestrator) handleGetCurrentGamePack(c *Conn, _ *game.Player, data json.RawMessage) {
	req, ok := decode[CodeRequest](data, EventGetCurrentGamePack)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		return
	}
	packID := room.GamePackID()
	if packID == "" {
		return
	}
	pack, ok := o.packs.Get(packID)
	if !ok {
		return
	}
	o.hub.SendTo(c, EventGetCurrentGamePackResponse, GamePackResponse{GamePack: pack})
}

// handleStartGame validates the host's start request, configures the round
// (pack, duration, random location) and kicks off role assignment and the
// timer. Every failure is broadcast to the room so all clients surface the
// same toast.
func (o *Orchestrator) handleStartGame(c *Conn, p *game.Player, data json.RawMessage) {
	req, ok := decode[StartGameRequest](data, EventStartGame)
	if !ok {
		return
	}

	room, ok := o.rooms.Get(req.Code)
	if !ok {
		return
	}

	fail := func(msg string) {
		o.hub.Publish(room.ID(), EventStartGameBroadcast, StartGameBroadcast{
			GameStarted:  false,
			ToastMessage: msg,
		})
	}

	if !room.IsHost(p) {
		fail("Player that issued the start event is not the host")
		return
	}
	if len(room.Players()) < 2 {
		fail("Not enough players to start the game")
		return
	}

	// Starting always begins from a clean slate, whatever state the room
	// was left in.
	room.ResetGame()

	if req.GamePackID == "" {
		fail("No game pack id provided")
		return
	}
	pack, found := o.packs.Get(req.GamePackID)
	if !found {
		fail("No game pack found for id")
		return
	}
	room.SetGamePack(req.GamePackID)

	if req.DurationInMinutes <= 0 {
		fail("Invalid duration provided")
		return
	}
	room.Timer().SetDuration(int(req.DurationInMinutes))

	location := pack.PickLocation()
	if location == nil {
		fail("No location found in game pack")
		return
	}
	room.SetLocation(location.ID)

	roomID := room.ID()
	publish := func(update game.TimerUpdate) {
		o.hub.Publish(roomID, EventTimerBroadcast, update)
	}
	// Role indices are dealt against the default-locale role list; every
	// locale carries the same number of roles, so the index resolves in any
	// of them.
	if err := room.StartGame(location.Roles(packs.DefaultLocale), publish); err != nil {
		log.Error().Err(err).Str("room_id", room.ID()).Msg("failed to start game")
		fail("Could not start the game")
		return
	}

	o.hub.Publish(room.ID(), EventStartGameBroadcast, StartGameBroadcast{
		GameStarted:  true,
		ToastMessage: fmt.Sprintf("Game started in room %s", room.ID()),
	})
}
