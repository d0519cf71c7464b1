package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/view"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	rooms   RoomRegistry
	configs ConfigManager
	views   *view.Synchronizer
	lobby   Lobby
	logger  *zap.Logger
}

type nopLobby struct{}

func (nopLobby) BroadcastAll(string, any) {}

// NewGameService creates a new game service instance. configs and lobby may be nil.
func NewGameService(rooms RoomRegistry, configs ConfigManager, lobby Lobby, logger *zap.Logger) GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lobby == nil {
		lobby = nopLobby{}
	}
	return &gameServiceImpl{
		rooms:   rooms,
		configs: configs,
		views:   view.NewSynchronizer(logger),
		lobby:   lobby,
		logger:  logger,
	}
}

// ListRooms returns every room, oldest first
func (s *gameServiceImpl) ListRooms(ctx context.Context) ([]room.Summary, error) {
	return view.NewRoomList(s.rooms.List()).Rooms, nil
}

// GetRoom returns the public summary of one room
func (s *gameServiceImpl) GetRoom(ctx context.Context, identifier string) (*room.Summary, error) {
	snap, err := s.rooms.Get(identifier)
	if err != nil {
		return nil, err
	}
	sum := snap.Summary()
	return &sum, nil
}

// CreateRoom opens a room with the actor in seat 0
func (s *gameServiceImpl) CreateRoom(ctx context.Context, actor Actor, req CreateRoomRequest) (*view.PlayerView, error) {
	var (
		snap *room.Snapshot
		err  error
	)
	if req.Rules != "" && s.configs != nil {
		rules, loadErr := s.configs.LoadRules(req.Rules)
		if loadErr != nil {
			return nil, &room.Error{Kind: room.KindInvalidCommand, Message: "unknown rules preset " + req.Rules, Cause: loadErr}
		}
		snap, err = s.rooms.CreateRoomWithRules(req.Passcode, actor.participant(), *rules)
	} else {
		snap, err = s.rooms.CreateRoom(req.Passcode, actor.participant())
	}
	if err != nil {
		return nil, err
	}

	s.views.SyncRoom(snap)
	s.publishRoomList()
	return view.Build(snap, actor.ID)
}

// JoinRoom seats the actor, or reattaches them to a seat they already hold
func (s *gameServiceImpl) JoinRoom(ctx context.Context, actor Actor, identifier string) (*view.PlayerView, error) {
	res, err := s.rooms.JoinRoom(identifier, actor.participant())
	if err != nil {
		return nil, err
	}

	ev := view.NewPlayerEvent(res.Snapshot, actor.ID)
	ev.Rejoined = res.Rejoined
	s.views.Broadcast(res.Snapshot, view.EventPlayerJoined, ev)
	if res.Rejoined {
		if err := s.views.SyncPlayer(res.Snapshot, actor.ID); err != nil {
			s.logger.Warn("failed to resend view",
				zap.String("room_id", res.Snapshot.ID),
				zap.String("player_id", actor.ID),
				zap.Error(err))
		}
	} else {
		s.views.SyncRoom(res.Snapshot)
		s.publishRoomList()
	}
	return view.Build(res.Snapshot, actor.ID)
}

// StartRoom deals the table in
func (s *gameServiceImpl) StartRoom(ctx context.Context, actor Actor, roomID string) (*view.PlayerView, error) {
	snap, err := s.rooms.StartRoom(roomID, actor.ID)
	if err != nil {
		return nil, err
	}

	s.views.Broadcast(snap, view.EventGameStarted, view.NewGameStartedEvent(snap))
	s.views.SyncRoom(snap)
	s.publishRoomList()
	return view.Build(snap, actor.ID)
}

// PlayCard plays a card from the actor's hand
func (s *gameServiceImpl) PlayCard(ctx context.Context, actor Actor, roomID string, cardIndex int, chosenColor string) (*PlayOutcome, error) {
	color := engine.Color(strings.TrimSpace(chosenColor))
	if c, ok := engine.ParseColor(string(color)); ok {
		color = c
	}

	res, err := s.rooms.PlayCard(roomID, actor.ID, cardIndex, color)
	if err != nil {
		return nil, err
	}

	snap := res.Snapshot
	s.views.Broadcast(snap, view.EventCardPlayed, view.NewCardPlayedEvent(res))
	if res.Winner != "" {
		s.views.Broadcast(snap, view.EventGameOver, view.NewGameOverEvent(snap))
		s.publishRoomList()
	}
	s.views.SyncRoom(snap)

	v, err := view.Build(snap, actor.ID)
	if err != nil {
		return nil, err
	}
	out := &PlayOutcome{View: v, Card: res.Card, Winner: res.Winner}
	if res.Forced != nil {
		out.ForcedDraw = res.Forced.PlayerID
		out.ForcedCount = len(res.Forced.Cards)
	}
	return out, nil
}

// DrawCard draws for the actor; the drawn cards are only returned here
func (s *gameServiceImpl) DrawCard(ctx context.Context, actor Actor, roomID string) (*DrawOutcome, error) {
	res, err := s.rooms.DrawCard(roomID, actor.ID)
	if err != nil {
		return nil, err
	}

	s.views.Broadcast(res.Snapshot, view.EventCardDrawn, view.NewCardDrawnEvent(res))
	s.views.SyncRoom(res.Snapshot)

	v, err := view.Build(res.Snapshot, actor.ID)
	if err != nil {
		return nil, err
	}
	return &DrawOutcome{View: v, Cards: res.Cards, Penalty: res.Penalty}, nil
}

// LeaveRoom takes the actor out of a room
func (s *gameServiceImpl) LeaveRoom(ctx context.Context, actor Actor, roomID string) (*LeaveOutcome, error) {
	res, err := s.rooms.LeaveRoom(roomID, actor.ID)
	if err != nil {
		return nil, err
	}
	s.announceLeave(res, actor.ID)
	return &LeaveOutcome{RoomID: res.Snapshot.ID, SeatRemoved: res.Removed, RoomDeleted: res.Deleted}, nil
}

func (s *gameServiceImpl) announceLeave(res *room.LeaveResult, actorID string) {
	snap := res.Snapshot
	if !res.Deleted {
		ev := view.NewPlayerEvent(snap, actorID)
		ev.Removed = res.Removed
		s.views.Broadcast(snap, view.EventPlayerLeft, ev)
		s.views.SyncRoom(snap)
	}
	if res.Removed || res.Deleted {
		s.publishRoomList()
	}
}

// RequestRematch opens (or returns) the follow-up room of a finished game
func (s *gameServiceImpl) RequestRematch(ctx context.Context, actor Actor, finishedRoomID string) (*view.PlayerView, error) {
	snap, err := s.rooms.CreateRematch(finishedRoomID, actor.ID)
	if err != nil {
		return nil, err
	}

	s.views.SyncRoom(snap)
	s.publishRoomList()
	return view.Build(snap, actor.ID)
}

// Chat relays free text to everyone connected to the room
func (s *gameServiceImpl) Chat(ctx context.Context, actor Actor, roomID, message string) error {
	if strings.TrimSpace(message) == "" {
		return &room.Error{Kind: room.KindInvalidCommand, Message: "message is empty"}
	}
	snap, err := s.rooms.Get(roomID)
	if err != nil {
		return err
	}
	p, ok := snap.Player(actor.ID)
	if !ok {
		return room.ErrPlayerNotInRoom
	}

	s.views.Broadcast(snap, view.EventChatRelay, view.ChatEvent{
		RoomID:      snap.ID,
		PlayerID:    actor.ID,
		DisplayName: p.DisplayName,
		Message:     message,
	})
	return nil
}

// GetView returns the actor's private view of a room
func (s *gameServiceImpl) GetView(ctx context.Context, actor Actor, roomID string) (*view.PlayerView, error) {
	snap, err := s.rooms.Get(roomID)
	if err != nil {
		return nil, err
	}
	return view.Build(snap, actor.ID)
}

// Disconnect handles transport loss for one channel
func (s *gameServiceImpl) Disconnect(ctx context.Context, actorID string, ch room.Channel) int {
	affected := 0
	for _, id := range s.rooms.RoomsOf(actorID) {
		res, err := s.rooms.Detach(id, actorID, ch)
		if err != nil || res.Stale {
			continue
		}
		affected++
		s.announceLeave(res, actorID)
	}
	if affected > 0 {
		s.logger.Info("player disconnected",
			zap.String("player_id", actorID),
			zap.Int("rooms", affected))
	}
	return affected
}

// ListRules returns the available house rules presets
func (s *gameServiceImpl) ListRules(ctx context.Context) ([]*RulesInfo, error) {
	if s.configs == nil {
		r := s.rooms.Rules()
		info := NewRulesInfo("", "default", &r)
		info.Default = true
		return []*RulesInfo{info}, nil
	}
	return s.configs.ListRules()
}

func (s *gameServiceImpl) publishRoomList() {
	s.lobby.BroadcastAll(view.EventRoomListUpdated, view.NewRoomList(s.rooms.List()))
}
