package room

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
)

// Registry owns every live room. Its own lock guards only the id and passcode
// indexes; game state is guarded by each room's lock. When both are needed
// the room lock is taken first, and a room is locked before its rematch room.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	passcodes map[string]string // passcode -> room id

	rules   engine.Rules
	logger  *zap.Logger
	now     func() time.Time
	newDeck func() *engine.Deck
	newID   func() string
	rng     *rand.Rand // passcode generation, guarded by mu
	strict  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithRules sets the house rules applied to new rooms.
func WithRules(rules engine.Rules) Option {
	return func(r *Registry) { r.rules = rules }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithDeckFactory replaces the shuffled 108-card deck given to each new room.
func WithDeckFactory(newDeck func() *engine.Deck) Option {
	return func(r *Registry) { r.newDeck = newDeck }
}

// WithSeed makes shuffles and generated passcodes reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Registry) {
		src := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		var mu sync.Mutex
		r.rng = rand.New(rand.NewPCG(src.Uint64(), src.Uint64()))
		r.newDeck = func() *engine.Deck {
			mu.Lock()
			a, b := src.Uint64(), src.Uint64()
			mu.Unlock()
			return engine.NewShuffledDeck(rand.New(rand.NewPCG(a, b)))
		}
	}
}

// WithStrictInvariants panics when a command breaks card conservation
// instead of logging it.
func WithStrictInvariants() Option {
	return func(r *Registry) { r.strict = true }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:     make(map[string]*Room),
		passcodes: make(map[string]string),
		rules:     engine.DefaultRules(),
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		rng:       rand.New(rand.NewPCG(newSeed(), newSeed())),
	}
	r.newDeck = func() *engine.Deck { return engine.NewShuffledDeck(nil) }
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Rules returns the house rules applied to new rooms.
func (r *Registry) Rules() engine.Rules {
	return r.rules
}

// ValidatePasscode reports whether s is exactly four ASCII digits.
func ValidatePasscode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CreateRoom opens a waiting room owned by creator, who takes seat 0 and is
// dealt a hand. The opening card is flipped immediately.
func (r *Registry) CreateRoom(passcode string, creator Participant) (*Snapshot, error) {
	return r.CreateRoomWithRules(passcode, creator, r.rules)
}

// CreateRoomWithRules is CreateRoom under a specific house rules preset.
func (r *Registry) CreateRoomWithRules(passcode string, creator Participant, rules engine.Rules) (*Snapshot, error) {
	if !ValidatePasscode(passcode) {
		return nil, ErrInvalidPasscode
	}
	if creator.ID == "" {
		return nil, newError(KindInvalidCommand, "player id is required")
	}
	if err := engine.ValidateRules(&rules); err != nil {
		return nil, &Error{Kind: KindInvalidCommand, Message: err.Error(), Cause: err}
	}

	rm, err := r.newRoom(passcode, rules, []Participant{creator})
	if err != nil {
		return nil, err
	}
	snap := rm.snapshot()

	r.mu.Lock()
	if _, taken := r.passcodes[passcode]; taken {
		r.mu.Unlock()
		return nil, ErrPasscodeTaken
	}
	r.rooms[rm.ID] = rm
	r.passcodes[passcode] = rm.ID
	r.mu.Unlock()

	r.logger.Info("room created",
		zap.String("room_id", rm.ID),
		zap.String("passcode", passcode),
		zap.String("owner", creator.ID))
	return snap, nil
}

func (r *Registry) newRoom(passcode string, rules engine.Rules, seats []Participant) (*Room, error) {
	now := r.now()
	rm := &Room{
		ID:             r.newID(),
		Passcode:       passcode,
		Status:         StatusWaiting,
		Rules:          rules,
		deck:           r.newDeck(),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	for _, p := range seats {
		rm.Players = append(rm.Players, &Player{
			ID:          p.ID,
			DisplayName: displayName(p),
			Hand:        rm.deck.DrawMany(rm.Rules.HandSize),
			Connected:   true,
			Channel:     p.Channel,
		})
	}
	if _, err := rm.deck.FlipOpening(); err != nil {
		return nil, fmt.Errorf("flip opening card: %w", err)
	}
	r.checkCards(rm)
	return rm, nil
}

func displayName(p Participant) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// JoinRoom seats p in the room named by identifier, which is tried as a
// passcode first and then as a room id. A participant already seated is
// reattached in any status; a nil channel keeps the one already stored.
func (r *Registry) JoinRoom(identifier string, p Participant) (*JoinResult, error) {
	if p.ID == "" {
		return nil, newError(KindInvalidCommand, "player id is required")
	}
	rm, err := r.acquire(identifier)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()

	if seat := rm.seatOf(p.ID); seat >= 0 {
		player := rm.Players[seat]
		if p.Channel != nil {
			player.Channel = p.Channel
		}
		player.Connected = true
		r.touch(rm)
		r.logger.Info("player rejoined",
			zap.String("room_id", rm.ID),
			zap.String("player_id", p.ID),
			zap.Int("seat", seat))
		return &JoinResult{Snapshot: rm.snapshot(), Rejoined: true}, nil
	}

	if rm.Status != StatusWaiting {
		return nil, ErrAlreadyStarted
	}
	if len(rm.Players) >= rm.Rules.MaxPlayers {
		return nil, ErrRoomFull
	}

	rm.Players = append(rm.Players, &Player{
		ID:          p.ID,
		DisplayName: displayName(p),
		Hand:        rm.deck.DrawMany(rm.Rules.HandSize),
		Connected:   true,
		Channel:     p.Channel,
	})
	r.touch(rm)
	r.checkCards(rm)

	r.logger.Info("player joined",
		zap.String("room_id", rm.ID),
		zap.String("player_id", p.ID),
		zap.Int("seat", len(rm.Players)-1))
	return &JoinResult{Snapshot: rm.snapshot()}, nil
}

// StartRoom moves a waiting room to playing. Only seat 0 may start it.
func (r *Registry) StartRoom(roomID, actorID string) (*Snapshot, error) {
	rm, err := r.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()

	seat := rm.seatOf(actorID)
	switch {
	case seat < 0:
		return nil, ErrPlayerNotInRoom
	case rm.Status != StatusWaiting:
		return nil, ErrAlreadyStarted
	case seat != 0:
		return nil, ErrNotRoomOwner
	case len(rm.Players) < rm.Rules.MinPlayers:
		return nil, newError(KindNotEnoughPlayers, "need at least %d players to start", rm.Rules.MinPlayers)
	}

	rm.Status = StatusPlaying
	rm.CurrentPlayerIndex = 0
	rm.Reversed = false
	rm.PendingDraw = 0
	r.touch(rm)

	r.logger.Info("game started",
		zap.String("room_id", rm.ID),
		zap.Int("players", len(rm.Players)))
	return rm.snapshot(), nil
}

// LeaveRoom takes actorID out of the room. A waiting room gives up the seat
// and returns the hand to the draw pile; a playing room keeps the seat and
// only marks it disconnected. Empty waiting rooms and finished rooms with
// nobody connected are deleted.
func (r *Registry) LeaveRoom(roomID, actorID string) (*LeaveResult, error) {
	return r.leave(roomID, actorID, nil, false)
}

// Detach is LeaveRoom on transport loss. It does nothing when the seat has
// already been reattached to a different channel.
func (r *Registry) Detach(roomID, actorID string, ch Channel) (*LeaveResult, error) {
	return r.leave(roomID, actorID, ch, true)
}

func (r *Registry) leave(roomID, actorID string, ch Channel, matchChannel bool) (*LeaveResult, error) {
	rm, err := r.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()

	seat := rm.seatOf(actorID)
	if seat < 0 {
		return nil, ErrPlayerNotInRoom
	}
	player := rm.Players[seat]
	if matchChannel && player.Channel != ch {
		return &LeaveResult{Snapshot: rm.snapshot(), Stale: true}, nil
	}

	res := &LeaveResult{}
	switch rm.Status {
	case StatusWaiting:
		rm.deck.Return(player.Hand)
		rm.Players = append(rm.Players[:seat], rm.Players[seat+1:]...)
		res.Removed = true
		if len(rm.Players) == 0 {
			r.remove(rm)
			res.Deleted = true
		}
	case StatusPlaying:
		player.Connected = false
		player.Channel = nil
	case StatusFinished:
		player.Connected = false
		player.Channel = nil
		if rm.connectedCount() == 0 {
			r.remove(rm)
			res.Deleted = true
		}
	}
	r.touch(rm)
	r.checkCards(rm)

	r.logger.Info("player left",
		zap.String("room_id", rm.ID),
		zap.String("player_id", actorID),
		zap.String("status", string(rm.Status)),
		zap.Bool("removed", res.Removed),
		zap.Bool("room_deleted", res.Deleted))
	res.Snapshot = rm.snapshot()
	return res, nil
}

// PlayCard plays the card at cardIndex of actorID's hand. chosen must be a
// real color when the card is wild and is ignored otherwise.
func (r *Registry) PlayCard(roomID, actorID string, cardIndex int, chosen engine.Color) (*PlayResult, error) {
	rm, err := r.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()

	seat := rm.seatOf(actorID)
	switch {
	case seat < 0:
		return nil, ErrPlayerNotInRoom
	case rm.Status != StatusPlaying:
		return nil, ErrNotPlaying
	case seat != rm.CurrentPlayerIndex:
		return nil, ErrNotYourTurn
	}

	player := rm.Players[seat]
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return nil, newError(KindInvalidCardIndex, "no card at position %d (hand has %d)", cardIndex, len(player.Hand))
	}
	card := player.Hand[cardIndex]
	if card.IsWild() {
		c, ok := engine.ParseColor(string(chosen))
		if !ok {
			return nil, ErrColorRequired
		}
		chosen = c
	}
	if rm.PendingDraw > 0 && !engine.CanPlayWhilePending(card) {
		return nil, newError(KindIllegalMove, "play a Draw Two or draw %d cards", rm.PendingDraw)
	}
	top, _ := rm.deck.Top()
	if !engine.IsLegalMove(card, top) {
		return nil, newError(KindIllegalMove, "%s cannot be played on %s", card, top)
	}

	player.Hand = append(player.Hand[:cardIndex], player.Hand[cardIndex+1:]...)
	played := card.Painted(chosen)
	rm.deck.Discard(played)
	res := &PlayResult{PlayerID: actorID, Card: played}

	if engine.HasWon(player.Hand) {
		rm.Status = StatusFinished
		rm.Winner = actorID
		rm.PendingDraw = 0
		r.releasePasscode(rm)
		res.Winner = actorID
		r.logger.Info("game over",
			zap.String("room_id", rm.ID),
			zap.String("winner", actorID))
	} else {
		r.resolveEffect(rm, seat, played, res)
	}

	r.touch(rm)
	r.checkCards(rm)
	r.logger.Debug("card played",
		zap.String("room_id", rm.ID),
		zap.String("player_id", actorID),
		zap.Stringer("card", played),
		zap.Int("next", rm.CurrentPlayerIndex),
		zap.Int("pending_draw", rm.PendingDraw))
	res.Snapshot = rm.snapshot()
	return res, nil
}

func (r *Registry) resolveEffect(rm *Room, seat int, played engine.Card, res *PlayResult) {
	effect := engine.ApplyCardEffect(played)
	if effect.Reverse {
		rm.Reversed = !rm.Reversed
	}
	n := len(rm.Players)
	target := engine.NextIndex(seat, n, rm.Reversed, false)

	switch played.Kind {
	case engine.KindDrawTwo:
		rm.PendingDraw += effect.DrawCount
		if engine.ContinuesStack(played, rm.Players[target].Hand, rm.Rules) {
			rm.CurrentPlayerIndex = target
			return
		}
		res.Forced = r.forceDraw(rm, target, rm.PendingDraw)
		rm.PendingDraw = 0
		rm.CurrentPlayerIndex = engine.NextIndex(target, n, rm.Reversed, false)
	case engine.KindWildDrawFour:
		res.Forced = r.forceDraw(rm, target, effect.DrawCount)
		rm.CurrentPlayerIndex = engine.NextIndex(target, n, rm.Reversed, false)
	default:
		rm.CurrentPlayerIndex = engine.NextIndex(seat, n, rm.Reversed, effect.Skip)
	}
}

func (r *Registry) forceDraw(rm *Room, seat, count int) *ForcedDraw {
	drawn := rm.deck.DrawMany(count)
	p := rm.Players[seat]
	p.Hand = append(p.Hand, drawn...)
	return &ForcedDraw{PlayerID: p.ID, Cards: drawn}
}

// DrawCard draws for the current player. With a penalty pending the whole
// penalty is drawn; otherwise a single card. Either way the turn passes on,
// except when nothing could be drawn.
func (r *Registry) DrawCard(roomID, actorID string) (*DrawResult, error) {
	rm, err := r.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()

	seat := rm.seatOf(actorID)
	switch {
	case seat < 0:
		return nil, ErrPlayerNotInRoom
	case rm.Status != StatusPlaying:
		return nil, ErrNotPlaying
	case seat != rm.CurrentPlayerIndex:
		return nil, ErrNotYourTurn
	}

	player := rm.Players[seat]
	res := &DrawResult{PlayerID: actorID}
	if rm.PendingDraw > 0 {
		res.Cards = rm.deck.DrawMany(rm.PendingDraw)
		res.Penalty = true
		rm.PendingDraw = 0
	} else {
		c, err := rm.deck.Draw()
		if err != nil {
			return nil, ErrOutOfCards
		}
		res.Cards = []engine.Card{c}
	}
	player.Hand = append(player.Hand, res.Cards...)
	rm.CurrentPlayerIndex = engine.NextIndex(seat, len(rm.Players), rm.Reversed, false)

	r.touch(rm)
	r.checkCards(rm)
	r.logger.Debug("card drawn",
		zap.String("room_id", rm.ID),
		zap.String("player_id", actorID),
		zap.Int("count", len(res.Cards)),
		zap.Bool("penalty", res.Penalty))
	res.Snapshot = rm.snapshot()
	return res, nil
}

// CreateRematch opens a new waiting room for the players of a finished room,
// in the same seat order, under a freshly generated passcode. Repeated
// requests return the same rematch room while it exists.
func (r *Registry) CreateRematch(finishedID, actorID string) (*Snapshot, error) {
	rm, err := r.acquire(finishedID)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()

	if rm.seatOf(actorID) < 0 {
		return nil, ErrPlayerNotInRoom
	}
	if rm.Status != StatusFinished {
		return nil, ErrGameNotFinished
	}

	if rm.RematchID != "" {
		if existing, err := r.acquire(rm.RematchID); err == nil {
			snap := existing.snapshot()
			existing.mu.Unlock()
			return snap, nil
		}
	}

	seats := make([]Participant, len(rm.Players))
	for i, p := range rm.Players {
		seats[i] = Participant{ID: p.ID, DisplayName: p.DisplayName, Channel: p.Channel}
	}
	next, err := r.newRoom("", rm.Rules, seats)
	if err != nil {
		return nil, err
	}
	for i, p := range rm.Players {
		next.Players[i].Connected = p.Connected
	}

	r.mu.Lock()
	passcode, ok := r.freePasscode()
	if !ok {
		r.mu.Unlock()
		return nil, newError(KindPasscodeTaken, "no free passcode for a rematch")
	}
	next.Passcode = passcode
	r.rooms[next.ID] = next
	r.passcodes[passcode] = next.ID
	r.mu.Unlock()

	rm.RematchID = next.ID
	r.touch(rm)

	r.logger.Info("rematch created",
		zap.String("room_id", rm.ID),
		zap.String("rematch_id", next.ID),
		zap.String("passcode", passcode))
	return next.snapshot(), nil
}

// freePasscode picks an unused passcode. r.mu must be held for writing.
func (r *Registry) freePasscode() (string, bool) {
	for i := 0; i < 64; i++ {
		code := fmt.Sprintf("%04d", r.rng.IntN(10000))
		if _, taken := r.passcodes[code]; !taken {
			return code, true
		}
	}
	start := r.rng.IntN(10000)
	for i := 0; i < 10000; i++ {
		code := fmt.Sprintf("%04d", (start+i)%10000)
		if _, taken := r.passcodes[code]; !taken {
			return code, true
		}
	}
	return "", false
}

// Get returns a snapshot of the room with the given id or live passcode.
func (r *Registry) Get(roomID string) (*Snapshot, error) {
	rm, err := r.acquire(roomID)
	if err != nil {
		return nil, err
	}
	defer rm.mu.Unlock()
	return rm.snapshot(), nil
}

// Lookup is Get for callers holding a passcode.
func (r *Registry) Lookup(identifier string) (*Snapshot, error) {
	return r.Get(identifier)
}

// List returns a snapshot of every room, oldest first.
func (r *Registry) List() []*Snapshot {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	out := make([]*Snapshot, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.closed {
			out = append(out, rm.snapshot())
		}
		rm.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RoomsOf returns the ids of rooms where playerID is seated.
func (r *Registry) RoomsOf(playerID string) []string {
	var ids []string
	for _, s := range r.List() {
		if s.Seat(playerID) >= 0 {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// ExpireIdle deletes rooms with no activity for maxAge and returns how many
// were removed.
func (r *Registry) ExpireIdle(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	removed := 0
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.closed && rm.LastActivityAt.Before(cutoff) {
			r.remove(rm)
			removed++
			r.logger.Info("idle room expired",
				zap.String("room_id", rm.ID),
				zap.Time("last_activity", rm.LastActivityAt))
		}
		rm.mu.Unlock()
	}
	return removed
}

// Reset drops every room.
func (r *Registry) Reset() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Room)
	r.passcodes = make(map[string]string)
	r.mu.Unlock()

	for _, rm := range rooms {
		rm.mu.Lock()
		rm.closed = true
		rm.mu.Unlock()
	}
}

// acquire returns the room named by a room id or live passcode, locked. The
// caller must unlock it.
func (r *Registry) acquire(identifier string) (*Room, error) {
	r.mu.RLock()
	rm, ok := r.rooms[identifier]
	if id, byCode := r.passcodes[identifier]; byCode {
		rm, ok = r.rooms[id]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return nil, ErrNotFound
	}
	return rm, nil
}

// remove unregisters a room. rm.mu must be held.
func (r *Registry) remove(rm *Room) {
	rm.closed = true
	r.mu.Lock()
	delete(r.rooms, rm.ID)
	if r.passcodes[rm.Passcode] == rm.ID {
		delete(r.passcodes, rm.Passcode)
	}
	r.mu.Unlock()
	r.logger.Info("room deleted", zap.String("room_id", rm.ID))
}

// releasePasscode frees a finished room's passcode for reuse. rm.mu must be held.
func (r *Registry) releasePasscode(rm *Room) {
	r.mu.Lock()
	if r.passcodes[rm.Passcode] == rm.ID {
		delete(r.passcodes, rm.Passcode)
	}
	r.mu.Unlock()
}

func (r *Registry) touch(rm *Room) {
	rm.LastActivityAt = r.now()
}

// checkCards asserts that no card was created or lost. rm.mu must be held.
func (r *Registry) checkCards(rm *Room) {
	if rm.cardCount() == engine.DeckSize {
		return
	}
	err := engine.VerifyComposition(rm.allCards())
	if r.strict {
		panic(fmt.Sprintf("room %s: card conservation broken: %v", rm.ID, err))
	}
	r.logger.Error("card conservation broken",
		zap.String("room_id", rm.ID),
		zap.Int("cards", rm.cardCount()),
		zap.Error(err))
}
