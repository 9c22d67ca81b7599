package game

import "errors"

// Domain errors raised by room operations. They are caught at the gateway
// boundary and turned into structured failure broadcasts, never surfaced to
// clients as raw errors.
var (
	ErrNoLocation    = errors.New("no location set for room")
	ErrNoGamePack    = errors.New("no game pack set for room")
	ErrNoRoles       = errors.New("location has no roles")
	ErrEmptyRoom     = errors.New("room has no players")
	ErrCodeExhausted = errors.New("could not generate a unique room code")
)
