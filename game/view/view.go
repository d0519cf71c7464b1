package view

import (
	"time"

	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/room"
)

// PlayerView is one participant's redacted projection of a room. It carries
// that participant's hand and only the sizes of everyone else's.
type PlayerView struct {
	RoomID             string        `json:"roomId"`
	Passcode           string        `json:"passcode"`
	Status             room.Status   `json:"status"`
	OwnHand            []engine.Card `json:"ownHand"`
	TopCard            *engine.Card  `json:"topCard,omitempty"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	MySeatIndex        int           `json:"mySeatIndex"`
	Direction          string        `json:"direction"`
	PendingDraw        int           `json:"pendingDraw"`
	DrawPileSize       int           `json:"drawPileSize"`
	Winner             string        `json:"winner,omitempty"`
	RematchID          string        `json:"rematchId,omitempty"`
	Opponents          []Opponent    `json:"opponents"`
	Rules              engine.Rules  `json:"rules"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Opponent is another seat as seen by the viewer.
type Opponent struct {
	ID          string `json:"identity"`
	DisplayName string `json:"displayName"`
	Seat        int    `json:"seat"`
	HandSize    int    `json:"handSize"`
	Connected   bool   `json:"connected"`
}

// IsMyTurn reports whether the viewer is the seat to act.
func (v *PlayerView) IsMyTurn() bool {
	return v.Status == room.StatusPlaying && v.CurrentPlayerIndex == v.MySeatIndex
}

// Build projects snap for playerID. It fails when playerID holds no seat.
func Build(snap *room.Snapshot, playerID string) (*PlayerView, error) {
	seat := snap.Seat(playerID)
	if seat < 0 {
		return nil, room.ErrPlayerNotInRoom
	}

	v := &PlayerView{
		RoomID:             snap.ID,
		Passcode:           snap.Passcode,
		Status:             snap.Status,
		OwnHand:            append([]engine.Card{}, snap.Players[seat].Hand...),
		CurrentPlayerIndex: snap.CurrentPlayerIndex,
		MySeatIndex:        seat,
		Direction:          snap.Direction(),
		PendingDraw:        snap.PendingDraw,
		DrawPileSize:       snap.DrawPileSize,
		Winner:             snap.Winner,
		RematchID:          snap.RematchID,
		Rules:              snap.Rules,
		UpdatedAt:          snap.LastActivityAt,
		Opponents:          make([]Opponent, 0, len(snap.Players)-1),
	}
	if snap.TopCard != nil {
		top := *snap.TopCard
		v.TopCard = &top
	}
	for _, p := range snap.Players {
		if p.ID == playerID {
			continue
		}
		v.Opponents = append(v.Opponents, Opponent{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Seat:        p.Seat,
			HandSize:    len(p.Hand),
			Connected:   p.Connected,
		})
	}
	return v, nil
}
