package view

import (
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/unoroom/game/room"
)

// Outbound event names.
const (
	EventRoomListUpdated = "room-list-updated"
	EventPlayerJoined    = "player-joined"
	EventPlayerLeft      = "player-left"
	EventCardPlayed      = "card-played"
	EventCardDrawn       = "card-drawn"
	EventGameStarted     = "game-started"
	EventGameOver        = "game-over"
	EventChatRelay       = "chat-relay"
	EventGameState       = "game-state"
	EventCommandResult   = "command-result"
	EventError           = "error"
)

// Synchronizer delivers room events and per-player views. It only ever works
// from snapshots, so it runs with no room lock held.
type Synchronizer struct {
	logger *zap.Logger
}

// NewSynchronizer creates a synchronizer. A nil logger discards output.
func NewSynchronizer(logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{logger: logger}
}

// SyncRoom sends each connected player their own view and returns how many
// views were delivered. Disconnected seats are skipped.
func (s *Synchronizer) SyncRoom(snap *room.Snapshot) int {
	sent := 0
	for _, p := range snap.Players {
		if !p.Connected || p.Channel == nil {
			continue
		}
		v, err := Build(snap, p.ID)
		if err != nil {
			continue
		}
		if s.deliver(snap.ID, p.ID, p.Channel, EventGameState, v) {
			sent++
		}
	}
	return sent
}

// SyncPlayer sends one player their view, as on reconnect.
func (s *Synchronizer) SyncPlayer(snap *room.Snapshot, playerID string) error {
	p, ok := snap.Player(playerID)
	if !ok {
		return room.ErrPlayerNotInRoom
	}
	if !p.Connected || p.Channel == nil {
		return nil
	}
	v, err := Build(snap, playerID)
	if err != nil {
		return err
	}
	return p.Channel.Send(EventGameState, v)
}

// Broadcast sends the same payload to every connected player in the room.
// The payload must not contain private hands.
func (s *Synchronizer) Broadcast(snap *room.Snapshot, event string, payload any) int {
	sent := 0
	for _, p := range snap.Players {
		if !p.Connected || p.Channel == nil {
			continue
		}
		if s.deliver(snap.ID, p.ID, p.Channel, event, payload) {
			sent++
		}
	}
	return sent
}

// SendTo addresses one channel directly.
func (s *Synchronizer) SendTo(ch room.Channel, event string, payload any) error {
	if ch == nil {
		return nil
	}
	return ch.Send(event, payload)
}

func (s *Synchronizer) deliver(roomID, playerID string, ch room.Channel, event string, payload any) bool {
	if err := ch.Send(event, payload); err != nil {
		s.logger.Debug("event not delivered",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.String("event", event),
			zap.Error(err))
		return false
	}
	return true
}
