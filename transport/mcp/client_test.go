package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/service"
	"github.com/wricardo/mcp-training/unoroom/game/view"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Player string
	Name   string
	Body   map[string]interface{}
}

// fakeAPI records requests and answers from a route table keyed by
// "METHOD path".
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{routes: map[string]func(w http.ResponseWriter){}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Player: r.Header.Get(headerPlayerID),
			Name:   r.Header.Get(headerPlayerName),
		}
		json.NewDecoder(r.Body).Decode(&rec.Body)

		api.mu.Lock()
		api.requests = append(api.requests, rec)
		handler := api.routes[r.Method+" "+r.URL.Path]
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if handler == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "game not found", "kind": "NotFound"})
			return
		}
		handler(w)
	}))
	t.Cleanup(server.Close)
	return api, NewClient(server.URL)
}

func (f *fakeAPI) on(method, path string, status int, body interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, result.IsError
}

func playingView() view.PlayerView {
	top := engine.NumberCard(engine.Red, 5)
	return view.PlayerView{
		RoomID:             "room-1",
		Passcode:           "4821",
		Status:             room.StatusPlaying,
		OwnHand:            []engine.Card{engine.NumberCard(engine.Red, 9), engine.NumberCard(engine.Blue, 2), engine.WildCard(engine.KindWild)},
		TopCard:            &top,
		CurrentPlayerIndex: 0,
		MySeatIndex:        0,
		Direction:          "forward",
		DrawPileSize:       80,
		Opponents: []view.Opponent{
			{ID: "bob", DisplayName: "Bob", Seat: 1, HandSize: 7, Connected: false},
		},
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	require.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestClient_apiCall(t *testing.T) {
	t.Run("sends identity and decodes", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.on("GET", "/api/rooms", http.StatusOK, map[string]interface{}{"count": 0, "rooms": []string{}})

		var resp map[string]interface{}
		require.NoError(t, client.apiCall("GET", "/api/rooms", &identity{id: "alice", name: "Alice"}, nil, &resp))
		assert.EqualValues(t, 0, resp["count"])
		assert.Equal(t, "alice", api.last().Player)
		assert.Equal(t, "Alice", api.last().Name)
	})

	t.Run("surfaces kind and message", func(t *testing.T) {
		_, client := newFakeAPI(t)
		err := client.apiCall("GET", "/api/rooms/nope", nil, nil, nil)
		require.Error(t, err)
		assert.Equal(t, "NotFound: game not found", err.Error())
	})

	t.Run("unreachable server", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		assert.Error(t, client.apiCall("GET", "/api/rooms", nil, nil, nil))
	})
}

func TestHandleListRooms(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on("GET", "/api/rooms", http.StatusOK, map[string]interface{}{
		"count": 1,
		"rooms": []room.Summary{{ID: "room-1", Passcode: "4821", Status: room.StatusWaiting, PlayerCount: 2, MaxPlayers: 10, Owner: "alice"}},
	})

	text, isErr := callTool(t, client.handleListRooms, map[string]interface{}{"status": "waiting"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Rooms (1)")
	assert.Contains(t, text, "passcode=4821")
	assert.Contains(t, text, "players=2/10")
	assert.Equal(t, "status=waiting", api.last().Query)
}

func TestHandleCreateRoom(t *testing.T) {
	api, client := newFakeAPI(t)
	v := view.PlayerView{RoomID: "room-1", Passcode: "4821", Status: room.StatusWaiting}
	api.on("POST", "/api/rooms", http.StatusCreated, v)

	text, isErr := callTool(t, client.handleCreateRoom, map[string]interface{}{
		"player_id":    "alice",
		"display_name": "Alice",
		"passcode":     "4821",
		"rules":        "quick",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Created room room-1 (passcode 4821)")

	req := api.last()
	assert.Equal(t, "alice", req.Player)
	assert.Equal(t, "4821", req.Body["passcode"])
	assert.Equal(t, "quick", req.Body["rules"])
}

func TestHandlersRequirePlayer(t *testing.T) {
	_, client := newFakeAPI(t)
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"create_room": client.handleCreateRoom,
		"join_room":   client.handleJoinRoom,
		"play_card":   client.handlePlayCard,
		"draw_card":   client.handleDrawCard,
		"chat":        client.handleChat,
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			text, isErr := callTool(t, handler, map[string]interface{}{"room": "4821"})
			assert.True(t, isErr)
			assert.Contains(t, text, "player_id is required")
		})
	}
}

func TestHandleGetView(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on("GET", "/api/rooms/4821/view", http.StatusOK, playingView())

	text, isErr := callTool(t, client.handleGetView, map[string]interface{}{"player_id": "alice", "room": "4821"})
	require.False(t, isErr, text)

	assert.Contains(t, text, "It is YOUR turn")
	assert.Contains(t, text, "Top card: Red 5")
	assert.Contains(t, text, "[0] Red 9 *")
	assert.Contains(t, text, "[1] Blue 2\n")
	assert.Contains(t, text, "[2] Wild *")
	assert.Contains(t, text, "seat 1: Bob, 7 cards (disconnected)")
}

func TestHandlePlayCard(t *testing.T) {
	api, client := newFakeAPI(t)
	v := playingView()
	api.on("POST", "/api/rooms/room-1/play", http.StatusOK, service.PlayOutcome{
		View:        &v,
		Card:        engine.WildCard(engine.KindWildDrawFour).Painted(engine.Blue),
		ForcedDraw:  "bob",
		ForcedCount: 4,
	})

	text, isErr := callTool(t, client.handlePlayCard, map[string]interface{}{
		"player_id":    "alice",
		"room":         "room-1",
		"card_index":   float64(2),
		"chosen_color": "blue",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Played WildDrawFour (Blue)")
	assert.Contains(t, text, "bob was forced to draw 4")

	req := api.last()
	assert.EqualValues(t, 2, req.Body["card_index"])
	assert.Equal(t, "blue", req.Body["chosen_color"])

	text, isErr = callTool(t, client.handlePlayCard, map[string]interface{}{"player_id": "alice", "room": "room-1"})
	assert.True(t, isErr)
	assert.Contains(t, text, "card_index is required")
}

func TestHandlePlayCard_Rejected(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on("POST", "/api/rooms/room-1/play", http.StatusConflict, map[string]string{"error": "it is not your turn", "kind": "NotYourTurn"})

	text, isErr := callTool(t, client.handlePlayCard, map[string]interface{}{"player_id": "bob", "room": "room-1", "card_index": float64(0)})
	assert.True(t, isErr)
	assert.Equal(t, "NotYourTurn: it is not your turn", text)
}

func TestHandleDrawCard(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on("POST", "/api/rooms/room-1/draw", http.StatusOK, service.DrawOutcome{
		Cards:   []engine.Card{engine.NumberCard(engine.Green, 3), engine.ActionCard(engine.Red, engine.KindSkip)},
		Penalty: true,
	})

	text, isErr := callTool(t, client.handleDrawCard, map[string]interface{}{"player_id": "bob", "room": "room-1"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Took a penalty of 2 cards: Green 3 Red Skip")
}

func TestHandleLeaveRoom(t *testing.T) {
	tests := []struct {
		name string
		out  service.LeaveOutcome
		want string
	}{
		{"removed", service.LeaveOutcome{RoomID: "room-1", SeatRemoved: true}, "Left room room-1"},
		{"deleted", service.LeaveOutcome{RoomID: "room-1", SeatRemoved: true, RoomDeleted: true}, "the room was closed"},
		{"seat kept", service.LeaveOutcome{RoomID: "room-1"}, "your seat is kept"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newFakeAPI(t)
			api.on("POST", "/api/rooms/room-1/leave", http.StatusOK, tt.out)

			text, isErr := callTool(t, client.handleLeaveRoom, map[string]interface{}{"player_id": "bob", "room": "room-1"})
			require.False(t, isErr, text)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestHandleChat(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on("POST", "/api/rooms/room-1/chat", http.StatusOK, map[string]string{"message": "sent"})

	text, isErr := callTool(t, client.handleChat, map[string]interface{}{"player_id": "bob", "room": "room-1", "message": "uno!"})
	require.False(t, isErr, text)
	assert.Equal(t, "uno!", api.last().Body["message"])
}

func TestHandleGameRules(t *testing.T) {
	api, client := newFakeAPI(t)
	api.on("GET", "/api/rules", http.StatusOK, []service.RulesInfo{
		{RulesID: "classic", Name: "Classic", HandSize: 7, MinPlayers: 2, MaxPlayers: 10, StackDrawTwo: true, Default: true},
		{RulesID: "quick", Name: "Quick", HandSize: 5, MinPlayers: 2, MaxPlayers: 6},
	})

	text, isErr := callTool(t, client.handleGameRules, nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "CARD RULES")
	assert.Contains(t, text, "- classic (default): Classic. 7 cards, 2-10 players, stacking on")
	assert.Contains(t, text, "- quick: Quick. 5 cards, 2-6 players, stacking off")
}

func TestFormatView_Finished(t *testing.T) {
	v := view.PlayerView{RoomID: "room-1", Status: room.StatusFinished, Winner: "alice", RematchID: "room-2"}
	text := formatView(&v)
	assert.Contains(t, text, "Winner: alice")
	assert.Contains(t, text, "Rematch room: room-2")
	assert.Equal(t, "No view available", formatView(nil))
}
