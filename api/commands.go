package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/service"
	"github.com/wricardo/mcp-training/unoroom/transport/websocket"
)

// CommandHandler runs WebSocket commands against the game service. The
// connection itself is the actor's channel, so room events reach it.
type CommandHandler struct {
	service service.GameService
	logger  *zap.Logger
}

// NewCommandHandler creates a handler for hub connections.
func NewCommandHandler(gameService service.GameService, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{service: gameService, logger: logger}
}

// HandleCommand implements websocket.Handler.
func (h *CommandHandler) HandleCommand(ctx context.Context, c *websocket.Client, cmd websocket.Command) (any, error) {
	actor := service.Actor{ID: c.PlayerID(), DisplayName: c.DisplayName(), Channel: c}

	switch cmd.Type {
	case websocket.CommandGetRoomList:
		rooms, err := h.service.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"rooms": rooms}, nil

	case websocket.CommandGetRoomByID:
		return h.service.GetRoom(ctx, cmd.Room)

	case websocket.CommandCreateRoom:
		return h.service.CreateRoom(ctx, actor, service.CreateRoomRequest{Passcode: cmd.Passcode, Rules: cmd.Rules})

	case websocket.CommandJoinRoom:
		target := cmd.Room
		if target == "" {
			target = cmd.Passcode
		}
		return h.service.JoinRoom(ctx, actor, target)

	case websocket.CommandStartRoom:
		return h.service.StartRoom(ctx, actor, cmd.Room)

	case websocket.CommandPlayCard:
		if cmd.CardIndex == nil {
			return nil, &room.Error{Kind: room.KindInvalidCommand, Message: "cardIndex is required"}
		}
		return h.service.PlayCard(ctx, actor, cmd.Room, *cmd.CardIndex, cmd.ChosenColor)

	case websocket.CommandDrawCard:
		return h.service.DrawCard(ctx, actor, cmd.Room)

	case websocket.CommandLeaveRoom:
		return h.service.LeaveRoom(ctx, actor, cmd.Room)

	case websocket.CommandRequestRematch:
		return h.service.RequestRematch(ctx, actor, cmd.Room)

	case websocket.CommandChat:
		if err := h.service.Chat(ctx, actor, cmd.Room, cmd.Message); err != nil {
			return nil, err
		}
		return map[string]string{"message": "sent"}, nil

	case websocket.CommandGetView:
		return h.service.GetView(ctx, actor, cmd.Room)

	default:
		return nil, &room.Error{Kind: room.KindInvalidCommand, Message: fmt.Sprintf("unknown command type %q", cmd.Type)}
	}
}

// Disconnected implements websocket.Handler.
func (h *CommandHandler) Disconnected(c *websocket.Client) {
	n := h.service.Disconnect(context.Background(), c.PlayerID(), c)
	if n > 0 {
		h.logger.Info("Player connection lost",
			zap.String("player_id", c.PlayerID()),
			zap.Int("rooms", n))
	}
}
