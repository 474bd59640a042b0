package domain

import "time"

// Device is a registered scout station. Registration is gated by the
// shared sync passphrase rather than per-user accounts.
type Device struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       PeerRole  `json:"role"`
	LastActive time.Time `json:"lastActive"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRevoked  bool      `json:"isRevoked"`
}

type RegisterDeviceRequest struct {
	Name       string `json:"name" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=lead scout"`
	Passphrase string `json:"passphrase" validate:"required"`
}

type RegisterDeviceResponse struct {
	Device *Device `json:"device"`
	Token  string  `json:"token"`
}
