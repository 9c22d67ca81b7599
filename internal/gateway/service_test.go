package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrusmatiros/odd-duck/internal/game"
	"github.com/petrusmatiros/odd-duck/internal/packs"
)

func newTestService(t *testing.T) (*Service, *game.RoomRegistry) {
	t.Helper()
	catalog, err := packs.Load()
	require.NoError(t, err)
	players := game.NewPlayerRegistry()
	rooms := game.NewRoomRegistry(clockwork.NewFakeClock())
	return NewService(DefaultConfig(), players, rooms, catalog), rooms
}

func TestClientToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/validated?token=abc", nil)
	assert.Equal(t, "abc", clientToken(r))

	r = httptest.NewRequest(http.MethodGet, "/validated", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", clientToken(r))

	r = httptest.NewRequest(http.MethodGet, "/validated", nil)
	assert.Empty(t, clientToken(r))
}

func TestQRHandler(t *testing.T) {
	svc, rooms := newTestService(t)
	host := game.NewPlayer()
	host.SetName("host")
	room, err := rooms.CreateRoom(host)
	require.NoError(t, err)

	t.Run("renders png for known room", func(t *testing.T) {
		rec := httptest.NewRecorder()
		svc.handleQR(rec, httptest.NewRequest(http.MethodGet, "/qr?code="+room.ID(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("missing code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		svc.handleQR(rec, httptest.NewRequest(http.MethodGet, "/qr", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown room", func(t *testing.T) {
		rec := httptest.NewRecorder()
		svc.handleQR(rec, httptest.NewRequest(http.MethodGet, "/qr?code=XXXXXX", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
