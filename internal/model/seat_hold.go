package model

import "time"

// SeatHold represents a temporary lease on one or more seats of a session
// during checkout.  Leases live in Redis and expire on their own at
// ExpiresAt; HoldToken identifies the holder when the order is confirmed
// or the hold is released.
//
// Fields:
//  SessionID – session whose seats are held.
//  Seats     – seat labels covered by the lease.
//  HoldToken – opaque token returned to the client.
//  ExpiresAt – when the lease lapses.
type SeatHold struct {
	SessionID uint64    `json:"sessao_id"`
	Seats     []string  `json:"assentos"`
	HoldToken string    `json:"hold_token"`
	ExpiresAt time.Time `json:"expires_at"`
}
