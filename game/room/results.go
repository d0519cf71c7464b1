package room

import "github.com/wricardo/mcp-training/unoroom/game/engine"

// JoinResult is returned by JoinRoom.
type JoinResult struct {
	Snapshot *Snapshot
	Rejoined bool
}

// LeaveResult is returned by LeaveRoom and Detach.
type LeaveResult struct {
	Snapshot *Snapshot
	Removed  bool // seat given up, only while waiting
	Deleted  bool // room no longer exists
	Stale    bool // seat already belongs to a newer channel; nothing changed
}

// PlayResult is returned by PlayCard.
type PlayResult struct {
	Snapshot *Snapshot
	PlayerID string
	Card     engine.Card // as it now sits on the discard pile
	Forced   *ForcedDraw
	Winner   string
}

// ForcedDraw records a penalty drawn by another seat as a result of a play.
type ForcedDraw struct {
	PlayerID string
	Cards    []engine.Card
}

// DrawResult is returned by DrawCard. Cards are private to the drawer.
type DrawResult struct {
	Snapshot *Snapshot
	PlayerID string
	Cards    []engine.Card
	Penalty  bool
}
