package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	mu           sync.Mutex
	commands     []Command
	disconnected chan string
	handle       func(c *Client, cmd Command) (any, error)
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{disconnected: make(chan string, 4)}
}

func (f *fakeHandler) HandleCommand(ctx context.Context, c *Client, cmd Command) (any, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.handle != nil {
		return f.handle(c, cmd)
	}
	return map[string]string{"ok": cmd.Type}, nil
}

func (f *fakeHandler) Disconnected(c *Client) {
	f.disconnected <- c.PlayerID()
}

type rawEnvelope struct {
	Event   string          `json:"event"`
	ReplyTo string          `json:"replyTo"`
	Data    json.RawMessage `json:"data"`
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func serve(t *testing.T, hub *Hub, handler Handler) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		hub.ServeWS(w, r, q.Get("player"), q.Get("name"), handler)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, base, player string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(base+"?player="+player+"&name="+player, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) rawEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env rawEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	require.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	c1 := newClient(hub, nil, "alice", "Alice")
	c2 := newClient(hub, nil, "bob", "Bob")

	hub.registerClient(c1)
	hub.registerClient(c2)
	assert.Equal(t, 2, hub.ClientCount())

	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, hub.clients[c2])

	assert.ErrorIs(t, c1.Send("x", nil), ErrClientClosed)

	// Unregistering twice is harmless
	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestClientSend(t *testing.T) {
	hub := NewHub(nil)
	c := newClient(hub, nil, "alice", "Alice")

	require.NoError(t, c.Send("game-state", map[string]int{"pendingDraw": 2}))

	var env rawEnvelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, "game-state", env.Event)
	assert.JSONEq(t, `{"pendingDraw":2}`, string(env.Data))

	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, c.Send("filler", i))
	}
	assert.ErrorIs(t, c.Send("overflow", nil), ErrClientStalled)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub(nil)
	healthy := newClient(hub, nil, "alice", "Alice")
	stalled := newClient(hub, nil, "bob", "Bob")
	hub.registerClient(healthy)
	hub.registerClient(stalled)
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, stalled.Send("filler", i))
	}

	hub.broadcastMessage([]byte(`{"event":"room-list-updated"}`))

	assert.Len(t, healthy.send, 1)
	assert.False(t, hub.clients[stalled], "stalled client is dropped")
	assert.Equal(t, 1, hub.ClientCount())
}

func TestWebSocketCommandRoundTrip(t *testing.T) {
	hub := startHub(t)
	handler := newFakeHandler()
	handler.handle = func(c *Client, cmd Command) (any, error) {
		if cmd.Type == CommandPlayCard {
			return nil, errors.New("it is not your turn")
		}
		return map[string]string{"player": c.PlayerID(), "room": cmd.Room}, nil
	}
	hub.SetErrorClassifier(func(err error) string { return "NotYourTurn" })
	base := serve(t, hub, handler)
	conn := dial(t, base, "alice")

	require.NoError(t, conn.WriteJSON(Command{ID: "1", Type: CommandJoinRoom, Room: "4821"}))
	env := readEnvelope(t, conn)
	assert.Equal(t, eventCommandResult, env.Event)
	assert.Equal(t, "1", env.ReplyTo)
	assert.JSONEq(t, `{"player":"alice","room":"4821"}`, string(env.Data))

	idx := 3
	require.NoError(t, conn.WriteJSON(Command{ID: "2", Type: CommandPlayCard, Room: "4821", CardIndex: &idx}))
	env = readEnvelope(t, conn)
	assert.Equal(t, eventError, env.Event)
	assert.Equal(t, "2", env.ReplyTo)
	var reply ErrorReply
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "NotYourTurn", reply.Kind)
	assert.Equal(t, "it is not your turn", reply.Message)

	handler.mu.Lock()
	require.Len(t, handler.commands, 2)
	require.NotNil(t, handler.commands[1].CardIndex)
	assert.Equal(t, 3, *handler.commands[1].CardIndex)
	handler.mu.Unlock()
}

func TestWebSocketMalformedCommand(t *testing.T) {
	hub := startHub(t)
	handler := newFakeHandler()
	conn := dial(t, serve(t, hub, handler), "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	env := readEnvelope(t, conn)
	assert.Equal(t, eventError, env.Event)
	assert.Contains(t, string(env.Data), "InvalidCommand")

	require.NoError(t, conn.WriteJSON(map[string]string{"room": "4821"}))
	env = readEnvelope(t, conn)
	assert.Equal(t, eventError, env.Event)

	handler.mu.Lock()
	assert.Empty(t, handler.commands)
	handler.mu.Unlock()
}

func TestWebSocketBroadcastAll(t *testing.T) {
	hub := startHub(t)
	base := serve(t, hub, newFakeHandler())
	alice := dial(t, base, "alice")
	bob := dial(t, base, "bob")

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastAll("room-list-updated", map[string]any{"rooms": []string{}})

	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "room-list-updated", env.Event)
		assert.JSONEq(t, `{"rooms":[]}`, string(env.Data))
	}
}

func TestWebSocketDisconnect(t *testing.T) {
	hub := startHub(t)
	handler := newFakeHandler()
	conn := dial(t, serve(t, hub, handler), "alice")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()

	select {
	case id := <-handler.disconnected:
		assert.Equal(t, "alice", id)
	case <-time.After(time.Second):
		t.Fatal("handler was not told about the disconnect")
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServeWS_AllowedOrigins(t *testing.T) {
	hub := startHub(t)
	hub.SetAllowedOrigins([]string{" https://uno.example.com/ ", ""})
	base := serve(t, hub, newFakeHandler())

	dialFrom := func(origin string) (*websocket.Conn, *http.Response, error) {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		return websocket.DefaultDialer.Dial(base+"?player=alice", header)
	}

	conn, _, err := dialFrom("https://UNO.example.com")
	require.NoError(t, err)
	conn.Close()

	conn, _, err = dialFrom("")
	require.NoError(t, err, "non-browser clients send no origin")
	conn.Close()

	_, resp, err := dialFrom("https://evil.example.com")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeWS_AnyOriginByDefault(t *testing.T) {
	hub := startHub(t)
	base := serve(t, hub, newFakeHandler())

	header := http.Header{}
	header.Set("Origin", "https://anywhere.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(base+"?player=alice", header)
	require.NoError(t, err)
	conn.Close()
}
