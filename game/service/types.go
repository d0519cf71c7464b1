package service

import (
	"github.com/wricardo/mcp-training/unoroom/game/engine"
	"github.com/wricardo/mcp-training/unoroom/game/view"
)

// CreateRoomRequest carries the create-room payload
type CreateRoomRequest struct {
	Passcode string `json:"passcode"`
	Rules    string `json:"rules,omitempty"` // preset id; empty uses the server default
}

// PlayOutcome is returned to the player who played a card
type PlayOutcome struct {
	View        *view.PlayerView `json:"view"`
	Card        engine.Card      `json:"card"`
	Winner      string           `json:"winner,omitempty"`
	ForcedDraw  string           `json:"forced_draw_player,omitempty"`
	ForcedCount int              `json:"forced_draw_count,omitempty"`
}

// DrawOutcome is returned to the drawer only; it is the one place drawn
// cards are disclosed
type DrawOutcome struct {
	View    *view.PlayerView `json:"view"`
	Cards   []engine.Card    `json:"drawn_cards"`
	Penalty bool             `json:"penalty,omitempty"`
}

// LeaveOutcome is returned to the player who left
type LeaveOutcome struct {
	RoomID      string `json:"room_id"`
	SeatRemoved bool   `json:"seat_removed"`
	RoomDeleted bool   `json:"room_deleted"`
}

// RulesInfo provides information about a house rules preset
type RulesInfo struct {
	Filename     string `json:"filename"`
	RulesID      string `json:"rules_id"` // The identifier to use for room creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	HandSize     int    `json:"hand_size"`
	MinPlayers   int    `json:"min_players"`
	MaxPlayers   int    `json:"max_players"`
	StackDrawTwo bool   `json:"stack_draw_two"`
	Default      bool   `json:"default,omitempty"`
}

// NewRulesInfo describes a preset loaded from filename.
func NewRulesInfo(filename, id string, r *engine.Rules) *RulesInfo {
	return &RulesInfo{
		Filename:     filename,
		RulesID:      id,
		Name:         r.Name,
		Description:  r.Description,
		HandSize:     r.HandSize,
		MinPlayers:   r.MinPlayers,
		MaxPlayers:   r.MaxPlayers,
		StackDrawTwo: r.StackDrawTwo,
	}
}
