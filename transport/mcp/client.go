package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/service"
	"github.com/wricardo/mcp-training/unoroom/game/view"
)

// Identity headers understood by the REST API.
const (
	headerPlayerID   = "X-Player-ID"
	headerPlayerName = "X-Player-Name"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Uno Rooms",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Uno Rooms - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Every tool that acts in a room needs player_id, the identity you play as.
Rooms can be addressed by their id or by their 4-digit passcode.

GAME OBJECTIVE:
Be the first player to empty your hand. Play a card matching the top card's
color or value, or a wild. Draw when you cannot play.

AVAILABLE TOOLS:
- list_rooms: List rooms and their status
- get_room: Get one room's public summary
- create_room: Create a room with a 4-digit passcode
- join_room: Join a waiting room, or rejoin your seat
- start_room: Start the game (creator only)
- get_view: Your hand, the top card, and whose turn it is
- play_card: Play the card at a hand index; wilds need chosen_color
- draw_card: Draw one card, or take a pending penalty
- leave_room: Leave a room
- request_rematch: Open a new room after a finished game
- chat: Send a message to the room
- game_rules: List house rules presets`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func playerProps(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"player_id":    stringProp("Your player identity"),
		"display_name": stringProp("Name shown to other players (optional)"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	roomProp := stringProp("Room id or passcode")

	// Lobby
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all rooms with their status and seat counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"waiting", "playing", "finished"},
					"description": "Only list rooms in this status (optional)",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the public summary of a room",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"room": roomProp},
			Required:   []string{"room"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a room protected by a 4-digit passcode and take its first seat",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: playerProps(map[string]interface{}{
				"passcode": stringProp("Exactly 4 digits"),
				"rules":    stringProp("House rules preset id (optional, see game_rules)"),
			}),
			Required: []string{"player_id", "passcode"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join a waiting room, or rejoin your seat in any room",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playerProps(map[string]interface{}{"room": roomProp}),
			Required:   []string{"player_id", "room"},
		},
	}, c.handleJoinRoom)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_room",
		Description: "Deal in and start the game. Only the room creator can start it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playerProps(map[string]interface{}{"room": roomProp}),
			Required:   []string{"player_id", "room"},
		},
	}, c.handleStartRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_view",
		Description: "Get your private view of a room: your hand, the top card, opponents' hand sizes and whose turn it is",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playerProps(map[string]interface{}{"room": roomProp}),
			Required:   []string{"player_id", "room"},
		},
	}, c.handleGetView)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_card",
		Description: "Play the card at card_index of your hand",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: playerProps(map[string]interface{}{
				"room": roomProp,
				"card_index": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based index into your hand",
				},
				"chosen_color": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"red", "yellow", "green", "blue"},
					"description": "Color to name when playing a wild",
				},
			}),
			Required: []string{"player_id", "room", "card_index"},
		},
	}, c.handlePlayCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw_card",
		Description: "Draw one card and pass the turn, or take the whole pending penalty",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playerProps(map[string]interface{}{"room": roomProp}),
			Required:   []string{"player_id", "room"},
		},
	}, c.handleDrawCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_room",
		Description: "Leave a room. In a running game your seat is kept for a rejoin",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playerProps(map[string]interface{}{"room": roomProp}),
			Required:   []string{"player_id", "room"},
		},
	}, c.handleLeaveRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "request_rematch",
		Description: "Open (or find) the follow-up room of a finished game with the same players",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: playerProps(map[string]interface{}{"room": stringProp("Id of the finished room")}),
			Required:   []string{"player_id", "room"},
		},
	}, c.handleRematch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Send a message to everyone in the room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: playerProps(map[string]interface{}{
				"room":    roomProp,
				"message": stringProp("Message text"),
			}),
			Required: []string{"player_id", "room", "message"},
		},
	}, c.handleChat)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "List house rules presets and the card rules of the game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, player *identity, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if player != nil {
		req.Header.Set(headerPlayerID, player.id)
		if player.name != "" {
			req.Header.Set(headerPlayerName, player.name)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if kind := errResp["kind"]; kind != "" {
				return fmt.Errorf("%s: %s", kind, msg)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

type identity struct {
	id   string
	name string
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// playerArgs extracts the caller identity and room argument.
func playerArgs(args map[string]interface{}) (*identity, string, error) {
	id, _ := args["player_id"].(string)
	if strings.TrimSpace(id) == "" {
		return nil, "", fmt.Errorf("player_id is required")
	}
	name, _ := args["display_name"].(string)
	roomArg, _ := args["room"].(string)
	return &identity{id: id, name: name}, roomArg, nil
}

func roomPath(roomArg, suffix string) string {
	return "/api/rooms/" + url.PathEscape(roomArg) + suffix
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/rooms"
	if status, _ := arguments(request)["status"].(string); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var response struct {
		Count int            `json:"count"`
		Rooms []room.Summary `json:"rooms"`
	}
	if err := c.apiCall("GET", path, nil, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Rooms (%d):\n\n", response.Count))
	for _, r := range response.Rooms {
		result.WriteString("- " + formatSummary(&r) + "\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomArg, _ := arguments(request)["room"].(string)

	var summary room.Summary
	if err := c.apiCall("GET", roomPath(roomArg, ""), nil, nil, &summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSummary(&summary)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	player, _, err := playerArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	passcode, _ := args["passcode"].(string)
	rules, _ := args["rules"].(string)

	var v view.PlayerView
	err = c.apiCall("POST", "/api/rooms", player, service.CreateRoomRequest{Passcode: passcode, Rules: rules}, &v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created room %s (passcode %s)\n\n%s", v.RoomID, v.Passcode, formatView(&v))), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.viewCommand(request, "POST", "/join", "Joined room")
}

func (c *Client) handleStartRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.viewCommand(request, "POST", "/start", "Game started")
}

func (c *Client) handleGetView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.viewCommand(request, "GET", "/view", "")
}

func (c *Client) handleRematch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.viewCommand(request, "POST", "/rematch", "Rematch room ready")
}

// viewCommand runs a room command whose response is the caller's view.
func (c *Client) viewCommand(request mcp.CallToolRequest, method, suffix, heading string) (*mcp.CallToolResult, error) {
	player, roomArg, err := playerArgs(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var v view.PlayerView
	if err := c.apiCall(method, roomPath(roomArg, suffix), player, nil, &v); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatView(&v)
	if heading != "" {
		text = heading + "\n\n" + text
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handlePlayCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	player, roomArg, err := playerArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// JSON numbers arrive as float64
	idx, ok := args["card_index"].(float64)
	if !ok {
		return mcp.NewToolResultError("card_index is required"), nil
	}
	color, _ := args["chosen_color"].(string)

	body := map[string]interface{}{
		"card_index":   int(idx),
		"chosen_color": color,
	}

	var out service.PlayOutcome
	if err := c.apiCall("POST", roomPath(roomArg, "/play"), player, body, &out); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Played %s\n", out.Card))
	if out.ForcedDraw != "" {
		result.WriteString(fmt.Sprintf("%s was forced to draw %d\n", out.ForcedDraw, out.ForcedCount))
	}
	if out.Winner != "" {
		result.WriteString(fmt.Sprintf("Winner: %s\n", out.Winner))
	}
	if out.View != nil {
		result.WriteString("\n" + formatView(out.View))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleDrawCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	player, roomArg, err := playerArgs(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out service.DrawOutcome
	if err := c.apiCall("POST", roomPath(roomArg, "/draw"), player, nil, &out); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	if out.Penalty {
		result.WriteString(fmt.Sprintf("Took a penalty of %d cards:", len(out.Cards)))
	} else {
		result.WriteString("Drew:")
	}
	for _, card := range out.Cards {
		result.WriteString(" " + card.String())
	}
	result.WriteString("\n")
	if out.View != nil {
		result.WriteString("\n" + formatView(out.View))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleLeaveRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	player, roomArg, err := playerArgs(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out service.LeaveOutcome
	if err := c.apiCall("POST", roomPath(roomArg, "/leave"), player, nil, &out); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch {
	case out.RoomDeleted:
		return mcp.NewToolResultText(fmt.Sprintf("Left room %s; the room was closed", out.RoomID)), nil
	case out.SeatRemoved:
		return mcp.NewToolResultText(fmt.Sprintf("Left room %s", out.RoomID)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Left room %s; your seat is kept, join again to resume", out.RoomID)), nil
	}
}

func (c *Client) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	player, roomArg, err := playerArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, _ := args["message"].(string)

	if err := c.apiCall("POST", roomPath(roomArg, "/chat"), player, map[string]string{"message": message}, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Message sent"), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []service.RulesInfo
	if err := c.apiCall("GET", "/api/rules", nil, nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(`CARD RULES:
- A card is playable when it matches the top card's color or value, or is a wild.
- Skip: the next player loses their turn. Reverse: play changes direction
  (with two players it acts like Skip).
- Draw Two: the next player draws 2, unless stacking is on and they hold a
  Draw Two, in which case the penalty passes on and grows by 2.
- Wild: name a color. Wild Draw Four: name a color; the next player draws 4
  and loses their turn.
- Emptying your hand wins immediately.

HOUSE RULES PRESETS:
`)
	for _, p := range presets {
		marker := ""
		if p.Default {
			marker = " (default)"
		}
		stacking := "off"
		if p.StackDrawTwo {
			stacking = "on"
		}
		result.WriteString(fmt.Sprintf("- %s%s: %s. %d cards, %d-%d players, stacking %s\n",
			p.RulesID, marker, p.Name, p.HandSize, p.MinPlayers, p.MaxPlayers, stacking))
	}
	return mcp.NewToolResultText(result.String()), nil
}

// Formatting helpers

func formatSummary(s *room.Summary) string {
	return fmt.Sprintf("%s passcode=%s status=%s players=%d/%d owner=%s",
		s.ID, s.Passcode, s.Status, s.PlayerCount, s.MaxPlayers, s.Owner)
}

func formatView(v *view.PlayerView) string {
	if v == nil {
		return "No view available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Room: %s | Passcode: %s | Status: %s\n", v.RoomID, v.Passcode, v.Status))

	if v.TopCard != nil {
		result.WriteString(fmt.Sprintf("Top card: %s | Direction: %s | Draw pile: %d\n", v.TopCard, v.Direction, v.DrawPileSize))
	}
	if v.PendingDraw > 0 {
		result.WriteString(fmt.Sprintf("Pending penalty: %d cards\n", v.PendingDraw))
	}

	switch v.Status {
	case room.StatusPlaying:
		if v.IsMyTurn() {
			result.WriteString("It is YOUR turn\n")
		} else {
			result.WriteString(fmt.Sprintf("Waiting for seat %d\n", v.CurrentPlayerIndex))
		}
	case room.StatusFinished:
		result.WriteString(fmt.Sprintf("Winner: %s\n", v.Winner))
		if v.RematchID != "" {
			result.WriteString(fmt.Sprintf("Rematch room: %s\n", v.RematchID))
		}
	}

	result.WriteString(fmt.Sprintf("\nYour hand (seat %d, * = playable):\n", v.MySeatIndex))
	for i, card := range v.OwnHand {
		playable := ""
		if v.Status == room.StatusPlaying && v.IsMyTurn() && v.TopCard != nil && playableNow(card, v) {
			playable = " *"
		}
		result.WriteString(fmt.Sprintf("  [%d] %s%s\n", i, card, playable))
	}

	if len(v.Opponents) > 0 {
		result.WriteString("\nOpponents:\n")
		for _, o := range v.Opponents {
			status := ""
			if !o.Connected {
				status = " (disconnected)"
			}
			result.WriteString(fmt.Sprintf("  seat %d: %s, %d cards%s\n", o.Seat, o.DisplayName, o.HandSize, status))
		}
	}

	return result.String()
}

// playableNow marks the cards the viewer could legally play this turn.
func playableNow(card engine.Card, v *view.PlayerView) bool {
	if v.PendingDraw > 0 {
		return engine.CanPlayWhilePending(card)
	}
	return engine.IsLegalMove(card, *v.TopCard)
}
