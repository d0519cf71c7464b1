// Package api provides HTTP REST API handlers for Uno rooms.
//
// The api package implements:
//   - RESTful endpoints for every room command
//   - Room listing and lookup by id or passcode
//   - House rules preset listing
//   - WebSocket upgrade handling and command dispatch
//
// Endpoints:
//
// Lobby:
//   - GET /api/rooms - List rooms (optional ?status=waiting|playing|finished)
//   - POST /api/rooms - Create a room {"passcode": "4821", "rules": "quick"}
//   - GET /api/rooms/{id} - Room summary by id or passcode
//   - POST /api/rooms/{id}/join - Join, or rejoin an existing seat
//
// Game Operations:
//   - POST /api/rooms/{id}/start - Start the game (owner only)
//   - POST /api/rooms/{id}/play - Play a card {"card_index": 2, "chosen_color": "blue"}
//   - POST /api/rooms/{id}/draw - Draw a card, or take the pending penalty
//   - POST /api/rooms/{id}/leave - Leave the room
//   - POST /api/rooms/{id}/rematch - Open the follow-up room of a finished game
//   - POST /api/rooms/{id}/chat - Relay a message {"message": "uno!"}
//   - GET /api/rooms/{id}/view - The caller's private view
//
// Configuration:
//   - GET /api/rules - List house rules presets
//
// Identity:
//
// REST callers identify themselves with the X-Player-ID header and an
// optional X-Player-Name. WebSocket callers pass ?player= and ?name= when
// connecting to /ws.
//
// Error Handling:
//
// Rejected commands return JSON with the failure kind and a status code
// derived from it:
//
//	{
//	  "error": "it is not your turn",
//	  "kind": "NotYourTurn"
//	}
//
// NotFound maps to 404, ownership and membership failures to 403, state
// conflicts to 409, illegal plays to 422 and malformed input to 400.
package api
