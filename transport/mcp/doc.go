// Package mcp provides a Model Context Protocol server for Uno rooms.
//
// The package exposes the REST API as MCP tools so AI agents can sit at a
// table. It holds no game state; every tool call becomes one REST request
// carrying the agent's player identity.
//
// MCP Tools:
//   - list_rooms, get_room: lobby browsing
//   - create_room, join_room, start_room: seating
//   - get_view: the agent's private view, with playable cards marked
//   - play_card, draw_card: turn commands
//   - leave_room, request_rematch, chat
//   - game_rules: card rules and house rules presets
//
// Transport Modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: the server command mounts the tool server on /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
