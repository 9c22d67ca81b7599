package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// handleQR renders a QR code pointing at the room's join page, so the host
// can put the invite on a shared screen.
func (s *Service) handleQR(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}
	if _, ok := s.rooms.Get(code); !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	joinURL := fmt.Sprintf("%s/room/%s", strings.TrimSuffix(s.config.PublicURL, "/"), code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("room_id", code).Msg("failed to encode qr code")
		http.Error(w, "failed to generate qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
