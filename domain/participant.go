// Package domain contains core concepts of the chat system.
// This file defines identities and live connections.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// IdentityID is the authenticated user behind one or more connections.
type IdentityID string

type ConnectionID string

// Connection describes one live transport session for one device of one identity.
type Connection struct {
	ID        ConnectionID
	Identity  IdentityID
	CreatedAt time.Time
}

// Presence is the online/offline visibility of an identity.
type Presence struct {
	Identity   IdentityID
	Online     bool
	LastSeenAt *time.Time
}
