package domain

// RoomID names a broadcast scope. Ids must not contain ":", the store
// key separator; the transport rejects ids carrying it.
type RoomID string

// DefaultRoom is implicitly joined by every session at registration
// and is never torn down.
const DefaultRoom RoomID = "global"
