package room

import (
	"sync"
	"time"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
)

// Status is the lifecycle stage of a room. It only moves forward.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Channel delivers events to one connected participant. Implementations must
// not block; the registry never calls Send, the view synchronizer does so
// after the room lock is released.
type Channel interface {
	Send(event string, payload any) error
}

// Participant is an already-authenticated actor entering a room.
type Participant struct {
	ID          string
	DisplayName string
	Channel     Channel
}

// Player is a seated participant.
type Player struct {
	ID          string
	DisplayName string
	Hand        []engine.Card
	Connected   bool
	Channel     Channel
}

// Room is one game instance. Every field is guarded by mu.
type Room struct {
	mu     sync.Mutex
	closed bool // removed from the registry while a command waited on mu

	ID       string
	Passcode string
	Players  []*Player
	Status   Status
	Rules    engine.Rules

	deck               *engine.Deck
	Reversed           bool
	CurrentPlayerIndex int
	PendingDraw        int
	Winner             string
	RematchID          string

	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (rm *Room) seatOf(playerID string) int {
	for i, p := range rm.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (rm *Room) connectedCount() int {
	n := 0
	for _, p := range rm.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (rm *Room) cardCount() int {
	n := rm.deck.Count()
	for _, p := range rm.Players {
		n += len(p.Hand)
	}
	return n
}

func (rm *Room) allCards() []engine.Card {
	cards := rm.deck.Cards()
	for _, p := range rm.Players {
		cards = append(cards, p.Hand...)
	}
	return cards
}

// snapshot copies the room so it can be read after mu is released.
func (rm *Room) snapshot() *Snapshot {
	s := &Snapshot{
		ID:                 rm.ID,
		Passcode:           rm.Passcode,
		Status:             rm.Status,
		Rules:              rm.Rules,
		Reversed:           rm.Reversed,
		CurrentPlayerIndex: rm.CurrentPlayerIndex,
		PendingDraw:        rm.PendingDraw,
		Winner:             rm.Winner,
		RematchID:          rm.RematchID,
		DrawPileSize:       rm.deck.DrawPileSize(),
		DiscardPileSize:    rm.deck.DiscardPileSize(),
		CreatedAt:          rm.CreatedAt,
		LastActivityAt:     rm.LastActivityAt,
		Players:            make([]PlayerSnapshot, len(rm.Players)),
	}
	if top, ok := rm.deck.Top(); ok {
		s.TopCard = &top
	}
	for i, p := range rm.Players {
		s.Players[i] = PlayerSnapshot{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Seat:        i,
			Hand:        append([]engine.Card(nil), p.Hand...),
			Connected:   p.Connected,
			Channel:     p.Channel,
		}
	}
	return s
}

// Snapshot is an immutable copy of a room taken under its lock. It still
// carries every hand, so it must be reduced to per-player views before it
// leaves the process.
type Snapshot struct {
	ID                 string
	Passcode           string
	Status             Status
	Rules              engine.Rules
	Players            []PlayerSnapshot
	TopCard            *engine.Card
	Reversed           bool
	CurrentPlayerIndex int
	PendingDraw        int
	Winner             string
	RematchID          string
	DrawPileSize       int
	DiscardPileSize    int
	CreatedAt          time.Time
	LastActivityAt     time.Time
}

// PlayerSnapshot is one seat inside a Snapshot.
type PlayerSnapshot struct {
	ID          string
	DisplayName string
	Seat        int
	Hand        []engine.Card
	Connected   bool
	Channel     Channel
}

// Seat returns the seat index of playerID, or -1.
func (s *Snapshot) Seat(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// Player returns the seat held by playerID.
func (s *Snapshot) Player(playerID string) (PlayerSnapshot, bool) {
	if i := s.Seat(playerID); i >= 0 {
		return s.Players[i], true
	}
	return PlayerSnapshot{}, false
}

// Direction returns "forward" or "reversed".
func (s *Snapshot) Direction() string {
	if s.Reversed {
		return "reversed"
	}
	return "forward"
}

// Summary is the public listing entry for a room.
type Summary struct {
	ID          string    `json:"id"`
	Passcode    string    `json:"passcode"`
	Status      Status    `json:"status"`
	PlayerCount int       `json:"player_count"`
	MaxPlayers  int       `json:"max_players"`
	Owner       string    `json:"owner"`
	Players     []string  `json:"players"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary reduces the snapshot to what any visitor may see.
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		ID:          s.ID,
		Passcode:    s.Passcode,
		Status:      s.Status,
		PlayerCount: len(s.Players),
		MaxPlayers:  s.Rules.MaxPlayers,
		CreatedAt:   s.CreatedAt,
		Players:     make([]string, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		sum.Players = append(sum.Players, p.DisplayName)
	}
	if len(s.Players) > 0 {
		sum.Owner = s.Players[0].DisplayName
	}
	return sum
}
