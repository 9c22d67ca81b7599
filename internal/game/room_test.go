package game

import (
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) (*Room, *Player) {
	t.Helper()
	host := NewPlayer()
	host.SetName("host")
	registry := NewRoomRegistry(clockwork.NewFakeClock())
	room, err := registry.CreateRoom(host)
	require.NoError(t, err)
	return room, host
}

func addNamedPlayer(room *Room, name string) *Player {
	p := NewPlayer()
	p.SetName(name)
	room.AddPlayer(p)
	return p
}

func TestCreateRoomSeedsHost(t *testing.T) {
	room, host := newTestRoom(t)

	assert.Len(t, room.ID(), roomCodeLength)
	for _, r := range room.ID() {
		assert.True(t, strings.ContainsRune(roomCodeAlphabet, r), "unexpected code rune %q", r)
	}

	assert.True(t, room.IsHost(host))
	assert.True(t, room.HasPlayer(host))
	assert.Equal(t, InLobby, room.State())
	require.Len(t, room.Players(), 1)
	assert.Equal(t, "host", room.Players()[0].Name)
}

func TestAddPlayerIsIdempotent(t *testing.T) {
	room, _ := newTestRoom(t)
	p := addNamedPlayer(room, "alice")

	room.AddPlayer(p)
	room.AddPlayer(p)

	assert.Len(t, room.Players(), 2)
}

func TestRemovePlayerClearsRoles(t *testing.T) {
	room, _ := newTestRoom(t)
	addNamedPlayer(room, "alice")
	addNamedPlayer(room, "bob")

	room.SetGamePack("pack")
	room.SetLocation("loc")
	require.NoError(t, room.StartGame([]string{"baker", "clerk"}, nil))

	for _, member := range room.Members() {
		room.RemovePlayer(member)
		assert.False(t, room.HasPlayer(member))
		assert.False(t, room.HasSpy(member))
		assert.False(t, room.HasCivilian(member))
		_, assigned := room.CivilianRole(member)
		assert.False(t, assigned)
	}
	assert.Empty(t, room.Players())
}

func TestStartGameValidation(t *testing.T) {
	room, _ := newTestRoom(t)
	addNamedPlayer(room, "alice")

	err := room.StartGame([]string{"baker"}, nil)
	assert.ErrorIs(t, err, ErrNoLocation)

	room.SetLocation("loc")
	err = room.StartGame([]string{"baker"}, nil)
	assert.ErrorIs(t, err, ErrNoGamePack)

	room.SetGamePack("pack")
	err = room.StartGame(nil, nil)
	assert.ErrorIs(t, err, ErrNoRoles)

	require.NoError(t, room.StartGame([]string{"baker"}, nil))
	assert.Equal(t, InGame, room.State())
}

func TestStartGameAssignsExactlyOneSpy(t *testing.T) {
	room, host := newTestRoom(t)
	players := []*Player{host}
	for _, name := range []string{"alice", "bob", "carol"} {
		players = append(players, addNamedPlayer(room, name))
	}

	roles := []string{"baker", "clerk", "guard"}
	room.SetGamePack("pack")
	room.SetLocation("loc")
	require.NoError(t, room.StartGame(roles, nil))

	spies := 0
	for _, p := range players {
		if room.HasSpy(p) {
			spies++
			_, assigned := room.CivilianRole(p)
			assert.False(t, assigned, "spy must not carry a civilian role")
			continue
		}
		require.True(t, room.HasCivilian(p))
		idx, assigned := room.CivilianRole(p)
		require.True(t, assigned)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(roles))
	}
	assert.Equal(t, 1, spies)
	assert.Equal(t, TimerRunning, room.Timer().State())
}

func TestEndGameKeepsRoster(t *testing.T) {
	room, _ := newTestRoom(t)
	addNamedPlayer(room, "alice")
	room.SetGamePack("pack")
	room.SetLocation("loc")
	require.NoError(t, room.StartGame([]string{"baker"}, nil))

	room.EndGame()

	assert.Equal(t, InLobby, room.State())
	assert.Equal(t, TimerStopped, room.Timer().State())
	assert.Len(t, room.Players(), 2)
}

func TestResetGameClearsRoundState(t *testing.T) {
	room, host := newTestRoom(t)
	alice := addNamedPlayer(room, "alice")
	room.SetGamePack("pack")
	room.SetLocation("loc")
	require.NoError(t, room.StartGame([]string{"baker"}, nil))

	room.ResetGame()

	assert.Equal(t, InLobby, room.State())
	assert.Empty(t, room.GamePackID())
	assert.Empty(t, room.LocationID())
	assert.Equal(t, TimerStopped, room.Timer().State())
	for _, p := range []*Player{host, alice} {
		assert.True(t, room.HasPlayer(p))
		assert.False(t, room.HasSpy(p))
		assert.False(t, room.HasCivilian(p))
	}

	// A reset room can host a fresh round.
	room.SetGamePack("pack")
	room.SetLocation("loc")
	require.NoError(t, room.StartGame([]string{"baker"}, nil))
	assert.Equal(t, InGame, room.State())
}

func TestRoomRegistryLookups(t *testing.T) {
	registry := NewRoomRegistry(clockwork.NewFakeClock())
	host := NewPlayer()
	guest := NewPlayer()
	outsider := NewPlayer()

	room, err := registry.CreateRoom(host)
	require.NoError(t, err)
	room.AddPlayer(guest)

	got, ok := registry.Get(room.ID())
	require.True(t, ok)
	assert.Same(t, room, got)
	_, ok = registry.Get("NOPE00")
	assert.False(t, ok)

	hosted, ok := registry.RoomHostedBy(host)
	require.True(t, ok)
	assert.Same(t, room, hosted)
	_, ok = registry.RoomHostedBy(guest)
	assert.False(t, ok)

	assert.Len(t, registry.RoomsWith(guest), 1)
	assert.Empty(t, registry.RoomsWith(outsider))

	// The host keeps their room even when their roster record is gone.
	room.RemovePlayer(host)
	assert.Len(t, registry.RoomsWith(host), 1)
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := generateRoomCode()
		require.Len(t, code, roomCodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(roomCodeAlphabet, r))
		}
		seen[code] = true
	}
	// 19^6 possibilities make collisions across 100 draws implausible.
	assert.Greater(t, len(seen), 90)
}

func TestPlayerRegistry(t *testing.T) {
	registry := NewPlayerRegistry()

	token, player := registry.Register()
	require.NotEmpty(t, token)
	assert.False(t, player.HasName())

	got, ok := registry.Lookup(token)
	require.True(t, ok)
	assert.Same(t, player, got)

	_, ok = registry.Lookup("")
	assert.False(t, ok)
	_, ok = registry.Lookup("unknown")
	assert.False(t, ok)

	byID, ok := registry.LookupByID(player.ID())
	require.True(t, ok)
	assert.Same(t, player, byID)

	player.SetName("alice")
	assert.True(t, player.HasName())
	assert.Equal(t, PlayerRef{ID: player.ID().String(), Name: "alice"}, player.Ref())
}
