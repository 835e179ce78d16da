// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the room socket.
// These provide more specific reasons for closure than standard codes.
const (
	RoomClosingCode  websocket.StatusCode = 3000 // The room shut down (server shutdown or idle reaping).
	SlowConsumerCode websocket.StatusCode = 3001 // The client fell too far behind; reconnect for a fresh STATE.
	RoomGoneCode     websocket.StatusCode = 3003 // The room disappeared between lookup and attach.
)
