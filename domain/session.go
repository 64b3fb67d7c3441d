package domain

import "time"

// ConnectionID identifies one live transport session between a client
// device and the server. A principal may own several at once.
type ConnectionID string

// Session binds a connection to its verified identity and current room.
// The session registry is the single owner of its lifecycle.
type Session struct {
	ConnectionID ConnectionID `json:"connectionId"`
	Identity     Identity     `json:"identity"`
	CurrentRoom  RoomID       `json:"currentRoom"`
	LastSeen     time.Time    `json:"lastSeen"`
}
