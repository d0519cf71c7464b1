package view

import (
	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
)

// Public event payloads. None of them carry card contents of a hand other
// than the recipient's own.

type PlayerEvent struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Seat        int    `json:"seat"`
	Connected   bool   `json:"connected"`
	Rejoined    bool   `json:"rejoined,omitempty"`
	Removed     bool   `json:"removed,omitempty"`
}

type CardPlayedEvent struct {
	RoomID         string      `json:"roomId"`
	PlayerID       string      `json:"playerId"`
	Card           engine.Card `json:"card"`
	NextPlayer     int         `json:"currentPlayerIndex"`
	Direction      string      `json:"direction"`
	PendingDraw    int         `json:"pendingDraw"`
	ForcedPlayerID string      `json:"forcedPlayerId,omitempty"`
	ForcedCount    int         `json:"forcedCount,omitempty"`
}

// CardDrawnEvent is broadcast without the cards; the drawer gets them in
// their command result.
type CardDrawnEvent struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	Count      int    `json:"count"`
	Penalty    bool   `json:"penalty,omitempty"`
	NextPlayer int    `json:"currentPlayerIndex"`
}

type GameStartedEvent struct {
	RoomID  string        `json:"roomId"`
	TopCard *engine.Card  `json:"topCard,omitempty"`
	Players []PlayerEvent `json:"players"`
}

type GameOverEvent struct {
	RoomID     string `json:"roomId"`
	Winner     string `json:"winner"`
	WinnerName string `json:"winnerName"`
}

type ChatEvent struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
}

// ErrorEvent reports a rejected command to the actor.
type ErrorEvent struct {
	Kind    room.Kind `json:"kind"`
	Message string    `json:"message"`
}

// RoomList is the room-list-updated payload.
type RoomList struct {
	Rooms []room.Summary `json:"rooms"`
}

// NewPlayerEvent describes playerID's seat in snap.
func NewPlayerEvent(snap *room.Snapshot, playerID string) PlayerEvent {
	ev := PlayerEvent{RoomID: snap.ID, PlayerID: playerID, Seat: -1}
	if p, ok := snap.Player(playerID); ok {
		ev.DisplayName = p.DisplayName
		ev.Seat = p.Seat
		ev.Connected = p.Connected
	}
	return ev
}

// NewGameStartedEvent lists the seats in turn order.
func NewGameStartedEvent(snap *room.Snapshot) GameStartedEvent {
	ev := GameStartedEvent{RoomID: snap.ID, TopCard: snap.TopCard}
	for _, p := range snap.Players {
		ev.Players = append(ev.Players, NewPlayerEvent(snap, p.ID))
	}
	return ev
}

// NewCardPlayedEvent summarises a play for the table.
func NewCardPlayedEvent(res *room.PlayResult) CardPlayedEvent {
	ev := CardPlayedEvent{
		RoomID:      res.Snapshot.ID,
		PlayerID:    res.PlayerID,
		Card:        res.Card,
		NextPlayer:  res.Snapshot.CurrentPlayerIndex,
		Direction:   res.Snapshot.Direction(),
		PendingDraw: res.Snapshot.PendingDraw,
	}
	if res.Forced != nil {
		ev.ForcedPlayerID = res.Forced.PlayerID
		ev.ForcedCount = len(res.Forced.Cards)
	}
	return ev
}

// NewCardDrawnEvent summarises a draw for the table.
func NewCardDrawnEvent(res *room.DrawResult) CardDrawnEvent {
	return CardDrawnEvent{
		RoomID:     res.Snapshot.ID,
		PlayerID:   res.PlayerID,
		Count:      len(res.Cards),
		Penalty:    res.Penalty,
		NextPlayer: res.Snapshot.CurrentPlayerIndex,
	}
}

// NewGameOverEvent names the winner of a finished room.
func NewGameOverEvent(snap *room.Snapshot) GameOverEvent {
	ev := GameOverEvent{RoomID: snap.ID, Winner: snap.Winner}
	if p, ok := snap.Player(snap.Winner); ok {
		ev.WinnerName = p.DisplayName
	}
	return ev
}

// NewRoomList builds the lobby payload.
func NewRoomList(snaps []*room.Snapshot) RoomList {
	list := RoomList{Rooms: make([]room.Summary, 0, len(snaps))}
	for _, s := range snaps {
		list.Rooms = append(list.Rooms, s.Summary())
	}
	return list
}
