// Package service provides the business logic layer for Uno rooms.
//
// The service package implements:
//   - Room lobby operations (list, look up, create, join)
//   - Turn commands (start, play, draw, leave, rematch, chat)
//   - Event fan-out to seated players and to the lobby
//   - Transport-loss handling for dropped connections
//
// Core Interfaces:
//
// GameService is the command surface used by every transport.
// RoomRegistry is the room store, implemented by room.Registry.
// ConfigManager loads house rules presets.
// Lobby reaches every connected client, implemented by the WebSocket hub.
//
// Architecture:
//
// Each command runs against the registry, which locks exactly one room for
// the mutation and returns a snapshot. The service then builds events and
// per-player views from that snapshot with no lock held, so a slow client
// never holds up a table.
//
// Usage:
//
//	registry := room.NewRegistry(room.WithLogger(logger))
//	configs, _ := config.NewManager("rules")
//	gameService := service.NewGameService(registry, configs, hub, logger)
//
//	alice := service.Actor{ID: "alice", DisplayName: "Alice", Channel: client}
//	v, err := gameService.CreateRoom(ctx, alice, service.CreateRoomRequest{Passcode: "4821"})
//	if err != nil {
//		return err
//	}
//	out, err := gameService.PlayCard(ctx, alice, v.RoomID, 0, "blue")
//
// Errors returned by commands are *room.Error values; room.KindOf maps them
// to the failure kind reported to clients.
package service
