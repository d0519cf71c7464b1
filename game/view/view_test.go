package view

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
)

type sent struct {
	event   string
	payload any
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
	fail bool
}

func (r *recorder) Send(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("buffer full")
	}
	r.sent = append(r.sent, sent{event, payload})
	return nil
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, s := range r.sent {
		out[i] = s.event
	}
	return out
}

func (r *recorder) last() sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

type table struct {
	reg      *room.Registry
	snap     *room.Snapshot
	channels map[string]*recorder
}

func newTable(t *testing.T, ids ...string) *table {
	t.Helper()
	tb := &table{reg: room.NewRegistry(room.WithSeed(11)), channels: map[string]*recorder{}}
	for i, id := range ids {
		ch := &recorder{}
		tb.channels[id] = ch
		p := room.Participant{ID: id, DisplayName: "Player " + id, Channel: ch}
		if i == 0 {
			snap, err := tb.reg.CreateRoom("4821", p)
			require.NoError(t, err)
			tb.snap = snap
			continue
		}
		res, err := tb.reg.JoinRoom("4821", p)
		require.NoError(t, err)
		tb.snap = res.Snapshot
	}
	snap, err := tb.reg.StartRoom(tb.snap.ID, ids[0])
	require.NoError(t, err)
	tb.snap = snap
	return tb
}

func TestBuild(t *testing.T) {
	tb := newTable(t, "alice", "bob", "carol")

	v, err := Build(tb.snap, "bob")
	require.NoError(t, err)
	assert.Equal(t, tb.snap.ID, v.RoomID)
	assert.Equal(t, "4821", v.Passcode)
	assert.Equal(t, room.StatusPlaying, v.Status)
	assert.Equal(t, 1, v.MySeatIndex)
	assert.Equal(t, 0, v.CurrentPlayerIndex)
	assert.False(t, v.IsMyTurn())
	assert.Equal(t, "forward", v.Direction)
	assert.Equal(t, tb.snap.Players[1].Hand, v.OwnHand)
	assert.Equal(t, tb.snap.TopCard, v.TopCard)

	require.Len(t, v.Opponents, 2)
	assert.Equal(t, Opponent{ID: "alice", DisplayName: "Player alice", Seat: 0, HandSize: engine.DefaultHandSize, Connected: true}, v.Opponents[0])
	assert.Equal(t, "carol", v.Opponents[1].ID)
	assert.Equal(t, 2, v.Opponents[1].Seat)

	_, err = Build(tb.snap, "mallory")
	assert.ErrorIs(t, err, room.ErrPlayerNotInRoom)
}

func TestBuild_NeverLeaksOtherHands(t *testing.T) {
	tb := newTable(t, "alice", "bob")

	v, err := Build(tb.snap, "alice")
	require.NoError(t, err)
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	opponents := decoded["opponents"].([]any)
	require.Len(t, opponents, 1)
	opp := opponents[0].(map[string]any)
	assert.NotContains(t, opp, "hand")
	assert.NotContains(t, opp, "ownHand")
	assert.EqualValues(t, engine.DefaultHandSize, opp["handSize"])
}

func TestBuild_CopiesHand(t *testing.T) {
	tb := newTable(t, "alice", "bob")
	v, err := Build(tb.snap, "alice")
	require.NoError(t, err)

	v.OwnHand[0] = engine.Card{Color: "Purple", Kind: engine.KindNumber, Value: "0"}
	assert.NotEqual(t, v.OwnHand[0], tb.snap.Players[0].Hand[0])
}

func TestSynchronizer_SyncRoom(t *testing.T) {
	tb := newTable(t, "alice", "bob", "carol")

	left, err := tb.reg.LeaveRoom(tb.snap.ID, "carol")
	require.NoError(t, err)

	s := NewSynchronizer(nil)
	assert.Equal(t, 2, s.SyncRoom(left.Snapshot))

	for _, id := range []string{"alice", "bob"} {
		got := tb.channels[id].last()
		assert.Equal(t, EventGameState, got.event)
		v := got.payload.(*PlayerView)
		assert.Equal(t, left.Snapshot.Seat(id), v.MySeatIndex)
		assert.Equal(t, left.Snapshot.Players[v.MySeatIndex].Hand, v.OwnHand)
	}
	assert.Empty(t, tb.channels["carol"].events(), "disconnected seats get nothing")

	t.Run("reconnect resends the full view", func(t *testing.T) {
		ch := &recorder{}
		res, err := tb.reg.JoinRoom("4821", room.Participant{ID: "carol", Channel: ch})
		require.NoError(t, err)
		require.NoError(t, s.SyncPlayer(res.Snapshot, "carol"))

		got := ch.last()
		assert.Equal(t, EventGameState, got.event)
		v := got.payload.(*PlayerView)
		assert.Equal(t, tb.snap.Players[2].Hand, v.OwnHand, "hand untouched across the disconnect")
	})
}

func TestSynchronizer_Broadcast(t *testing.T) {
	tb := newTable(t, "alice", "bob")
	tb.channels["bob"].fail = true

	s := NewSynchronizer(nil)
	n := s.Broadcast(tb.snap, EventChatRelay, ChatEvent{RoomID: tb.snap.ID, PlayerID: "alice", Message: "hi"})
	assert.Equal(t, 1, n, "a failing channel does not stop the others")
	assert.Equal(t, []string{EventChatRelay}, tb.channels["alice"].events())

	assert.NoError(t, s.SendTo(nil, EventError, nil))
	require.NoError(t, s.SendTo(tb.channels["alice"], EventError, ErrorEvent{Kind: room.KindNotYourTurn}))
	assert.Equal(t, EventError, tb.channels["alice"].last().event)
}

func TestPayloads(t *testing.T) {
	reg := room.NewRegistry(room.WithSeed(3))
	snap, err := reg.CreateRoom("4821", room.Participant{ID: "alice", DisplayName: "Alice", Channel: &recorder{}})
	require.NoError(t, err)
	res, err := reg.JoinRoom("4821", room.Participant{ID: "bob", Channel: &recorder{}})
	require.NoError(t, err)
	snap, err = reg.StartRoom(snap.ID, "alice")
	require.NoError(t, err)

	started := NewGameStartedEvent(snap)
	require.Len(t, started.Players, 2)
	assert.Equal(t, "Alice", started.Players[0].DisplayName)
	assert.Equal(t, "bob", started.Players[1].DisplayName, "display name falls back to the id")

	ev := NewPlayerEvent(res.Snapshot, "nobody")
	assert.Equal(t, -1, ev.Seat)

	drawn, err := reg.DrawCard(snap.ID, "alice")
	require.NoError(t, err)
	de := NewCardDrawnEvent(drawn)
	assert.Equal(t, 1, de.Count)
	assert.Equal(t, 1, de.NextPlayer)

	list := NewRoomList(reg.List())
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, 2, list.Rooms[0].PlayerCount)
}
