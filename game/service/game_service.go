package service

import (
	"context"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/view"
)

// GameService defines every command an actor can send to the room engine.
// Room arguments accept a room id or a live passcode.
type GameService interface {
	// Lobby
	ListRooms(ctx context.Context) ([]room.Summary, error)
	GetRoom(ctx context.Context, identifier string) (*room.Summary, error)
	CreateRoom(ctx context.Context, actor Actor, req CreateRoomRequest) (*view.PlayerView, error)
	JoinRoom(ctx context.Context, actor Actor, identifier string) (*view.PlayerView, error)

	// Game Operations
	StartRoom(ctx context.Context, actor Actor, roomID string) (*view.PlayerView, error)
	PlayCard(ctx context.Context, actor Actor, roomID string, cardIndex int, chosenColor string) (*PlayOutcome, error)
	DrawCard(ctx context.Context, actor Actor, roomID string) (*DrawOutcome, error)
	LeaveRoom(ctx context.Context, actor Actor, roomID string) (*LeaveOutcome, error)
	RequestRematch(ctx context.Context, actor Actor, finishedRoomID string) (*view.PlayerView, error)
	Chat(ctx context.Context, actor Actor, roomID, message string) error

	// Game State
	GetView(ctx context.Context, actor Actor, roomID string) (*view.PlayerView, error)

	// Disconnect detaches a lost channel from every room the actor sits in
	// and returns how many rooms were affected.
	Disconnect(ctx context.Context, actorID string, ch room.Channel) int

	// Configuration
	ListRules(ctx context.Context) ([]*RulesInfo, error)
}

// RoomRegistry is the room store the service drives.
type RoomRegistry interface {
	CreateRoom(passcode string, creator room.Participant) (*room.Snapshot, error)
	CreateRoomWithRules(passcode string, creator room.Participant, rules engine.Rules) (*room.Snapshot, error)
	JoinRoom(identifier string, p room.Participant) (*room.JoinResult, error)
	StartRoom(roomID, actorID string) (*room.Snapshot, error)
	LeaveRoom(roomID, actorID string) (*room.LeaveResult, error)
	Detach(roomID, actorID string, ch room.Channel) (*room.LeaveResult, error)
	PlayCard(roomID, actorID string, cardIndex int, chosen engine.Color) (*room.PlayResult, error)
	DrawCard(roomID, actorID string) (*room.DrawResult, error)
	CreateRematch(finishedID, actorID string) (*room.Snapshot, error)
	Get(roomID string) (*room.Snapshot, error)
	List() []*room.Snapshot
	RoomsOf(playerID string) []string
	Rules() engine.Rules
}

// ConfigManager handles house rules presets.
type ConfigManager interface {
	LoadRules(name string) (*engine.Rules, error)
	ListRules() ([]*RulesInfo, error)
	GetDefault() *engine.Rules
}

// Lobby reaches every connected client, seated or not.
type Lobby interface {
	BroadcastAll(event string, payload any)
}

// Actor is an already-authenticated caller. Channel is nil for callers
// without a live connection, such as plain HTTP requests.
type Actor struct {
	ID          string
	DisplayName string
	Channel     room.Channel
}

func (a Actor) participant() room.Participant {
	return room.Participant{ID: a.ID, DisplayName: a.DisplayName, Channel: a.Channel}
}
