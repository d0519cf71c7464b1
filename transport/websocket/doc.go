// Package websocket provides the WebSocket transport for Uno rooms.
//
// The websocket package implements:
//   - One connection per player identity, fixed at upgrade time
//   - Inbound command frames executed in arrival order per connection
//   - Outbound event frames, with command-result and error replies
//   - Lobby broadcasts to every connected client
//
// Architecture:
//
// A central Hub owns the set of connected clients. Each client runs a read
// goroutine that executes its commands through a Handler and a write
// goroutine that drains its send buffer and keeps the connection alive
// with pings. Client implements room.Channel, so room events reach it
// through Client.Send without touching the hub.
//
// Message Protocol:
//
//   - Incoming: {"id": "7", "type": "play-card", "room": "4821", "cardIndex": 2, "chosenColor": "blue"}
//   - Outgoing: {"event": "card-played", "data": {...}}
//   - Replies: {"event": "command-result", "replyTo": "7", "data": {...}}
//     or {"event": "error", "replyTo": "7", "data": {"kind": "NotYourTurn", "message": "..."}}
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, playerID, displayName, handler)
//	})
//
// Connection Lifecycle:
//
// 1. Client connects with its player identity
// 2. Connection registered with hub
// 3. Client sends commands, receives replies and room events
// 4. Disconnection calls Handler.Disconnected, then unregisters
package websocket
