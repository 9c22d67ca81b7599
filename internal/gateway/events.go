package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/petrusmatiros/odd-duck/internal/game"
	"github.com/petrusmatiros/odd-duck/internal/packs"
)

// Envelope is the wire frame for every event in both directions:
// {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names (validated scope).
const (
	EventCheckIfAlreadyCreatedGame = "check_if_already_created_game_before"
	EventCheckIfPlayerNameExists   = "check_if_player_name_exists"
	EventCreateGame                = "create_game"
	EventJoinGame                  = "join_game"
	EventDirectJoinGame            = "direct_join_game"
	EventCheckIfAllowedInGame      = "check_if_allowed_in_game"
	EventGetCurrentUsername        = "get_current_username"
	EventChangeUsername            = "change_username"
	EventKickPlayer                = "kick_player"
	EventTogglePauseGame           = "toggle_pause_game"
	EventEndGame                   = "end_game"
	EventGetGameState              = "get_game_state"
	EventGetGamePacks              = "get_game_packs"
	EventGetCurrentGamePack        = "get_current_game_pack"
	EventStartGame                 = "start_game"
)

// Outbound event names.
const (
	EventRegisterNewPlayerToken        = "register_new_player_token_response"
	EventCheckIfAlreadyCreatedResponse = "check_if_already_created_game_before_response"
	EventCheckIfPlayerNameResponse     = "check_if_player_name_exists_response"
	EventCheckIfAllowedResponse        = "check_if_allowed_in_game_response"
	EventDirectJoinResponse            = "direct_join_game_response"
	EventGetCurrentUsernameResponse    = "get_current_username_response"
	EventChangeUsernameResponse        = "change_username_response"
	EventKickPlayerResponse            = "kick_player_response"
	EventGetGameStateResponse          = "get_game_state_response"
	EventGetGamePacksResponse          = "get_game_packs_response"
	EventGetCurrentGamePackResponse    = "get_current_game_pack_response"
	EventPlayerJoinedBroadcast         = "player_joined_game_broadcast_all"
	EventPlayerDisconnectedBroadcast   = "player_disconnected_broadcast_all"
	EventStartGameBroadcast            = "start_game_response_broadcast_all"
	EventTogglePauseBroadcast          = "toggle_pause_game_broadcast_all"
	EventEndGameBroadcast              = "end_game_broadcast_all"
	EventTimerBroadcast                = "timer_response_broadcast_all"
)

// AllowedState is the verdict of check_if_allowed_in_game.
type AllowedState string

const (
	NotAllowed    AllowedState = "not_allowed"
	AllowJoin     AllowedState = "allow_join"
	AllowRegister AllowedState = "allow_register"
)

// Minutes accepts both a JSON number and a numeric string, since clients have
// historically sent the round duration as either.
type Minutes int

func (m *Minutes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*m = Minutes(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*m = Minutes(n)
	return nil
}

// Inbound payloads.

type CreateGameRequest struct {
	Name string `json:"name"`
}

type JoinGameRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

type ChangeUsernameRequest struct {
	Name string `json:"name"`
}

type KickPlayerRequest struct {
	PlayerID string `json:"playerId"`
	Code     string `json:"code"`
}

type GetGameStateRequest struct {
	Code   string       `json:"code"`
	Locale packs.Locale `json:"locale"`
}

type StartGameRequest struct {
	Code              string  `json:"code"`
	GamePackID        string  `json:"gamePackId"`
	DurationInMinutes Minutes `json:"durationInMinutes"`
}

// Outbound payloads.

type RegisterNewPlayerTokenResponse struct {
	Token        string `json:"token"`
	ToastMessage string `json:"toastMessage"`
}

type RoomCodeResponse struct {
	RoomCode     string `json:"roomCode"`
	ToastMessage string `json:"toastMessage,omitempty"`
}

type PlayerNameResponse struct {
	Name *string `json:"name"`
}

type AllowedInGameResponse struct {
	AllowedState   AllowedState     `json:"allowedState"`
	IsHost         string           `json:"isHost,omitempty"`
	PlayerID       string           `json:"playerId,omitempty"`
	PlayersInLobby []game.PlayerRef `json:"playersInLobby,omitempty"`
	ToastMessage   string           `json:"toastMessage"`
}

type DirectJoinResponse struct {
	RoomCode       string           `json:"roomCode"`
	PlayersInLobby []game.PlayerRef `json:"playersInLobby"`
	ToastMessage   string           `json:"toastMessage"`
}

type UsernameResponse struct {
	Name         *string `json:"name,omitempty"`
	ToastMessage string  `json:"toastMessage"`
}

type ToastResponse struct {
	ToastMessage string `json:"toastMessage"`
}

type PlayerJoinedBroadcast struct {
	Player         game.PlayerRef   `json:"player"`
	PlayersInLobby []game.PlayerRef `json:"playersInLobby"`
}

type PlayerDisconnectedBroadcast struct {
	Player         game.PlayerRef   `json:"player"`
	PlayersInLobby []game.PlayerRef `json:"playersInLobby"`
	IsHost         bool             `json:"isHost,omitempty"`
}

type StartGameBroadcast struct {
	GameStarted  bool   `json:"gameStarted"`
	ToastMessage string `json:"toastMessage"`
}

type TogglePauseBroadcast struct {
	ToastMessage string          `json:"toastMessage"`
	TimerState   game.TimerState `json:"timerState"`
}

type EndGameBroadcast struct {
	ToastMessage   string           `json:"toastMessage"`
	PlayersInLobby []game.PlayerRef `json:"playersInLobby"`
}

type GamePacksResponse struct {
	GamePacks []*packs.Pack `json:"gamePacks"`
}

type GamePackResponse struct {
	GamePack *packs.Pack `json:"gamePack"`
}

// GameStateResponse carries everything a client needs to render its view of
// the round. The location and the true role string are never populated for
// the player assigned as spy: the spy sees role "spy" and a null location.
type GameStateResponse struct {
	GameState  game.GameState   `json:"gameState"`
	GamePacks  []*packs.Pack    `json:"gamePacks"`
	GamePack   *packs.Pack      `json:"gamePack"`
	Location   *packs.Location  `json:"location"`
	PlayerRole *string          `json:"playerRole"`
	TimeLeft   *int             `json:"timeLeft"`
	TimerState *game.TimerState `json:"timerState"`
}
