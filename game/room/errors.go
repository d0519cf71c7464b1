package room

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable failure category reported back to an actor.
type Kind string

const (
	KindInvalidPasscode  Kind = "InvalidPasscode"
	KindPasscodeTaken    Kind = "PasscodeTaken"
	KindNotFound         Kind = "NotFound"
	KindAlreadyStarted   Kind = "AlreadyStarted"
	KindRoomFull         Kind = "RoomFull"
	KindNotYourTurn      Kind = "NotYourTurn"
	KindInvalidCardIndex Kind = "InvalidCardIndex"
	KindColorRequired    Kind = "ColorRequired"
	KindIllegalMove      Kind = "IllegalMove"
	KindOutOfCards       Kind = "OutOfCards"
	KindPlayerNotInRoom  Kind = "PlayerNotInRoom"
	KindNotPlaying       Kind = "NotPlaying"
	KindNotRoomOwner     Kind = "NotRoomOwner"
	KindNotEnoughPlayers Kind = "NotEnoughPlayers"
	KindGameNotFinished  Kind = "GameNotFinished"
	KindInvalidCommand   Kind = "InvalidCommand"
	KindInternal         Kind = "Internal"
)

// Error is a rejected command. Rejected commands leave the room untouched.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotYourTurn)
// holds for every not-your-turn failure regardless of message.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrInvalidPasscode  = &Error{Kind: KindInvalidPasscode, Message: "passcode must be exactly 4 digits"}
	ErrPasscodeTaken    = &Error{Kind: KindPasscodeTaken, Message: "a game with this passcode already exists"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "game not found"}
	ErrAlreadyStarted   = &Error{Kind: KindAlreadyStarted, Message: "game has already started"}
	ErrRoomFull         = &Error{Kind: KindRoomFull, Message: "game is full"}
	ErrNotYourTurn      = &Error{Kind: KindNotYourTurn, Message: "it is not your turn"}
	ErrInvalidCardIndex = &Error{Kind: KindInvalidCardIndex, Message: "no card at that position"}
	ErrColorRequired    = &Error{Kind: KindColorRequired, Message: "choose a color for the wild card"}
	ErrIllegalMove      = &Error{Kind: KindIllegalMove, Message: "that card cannot be played now"}
	ErrOutOfCards       = &Error{Kind: KindOutOfCards, Message: "no cards left to draw"}
	ErrPlayerNotInRoom  = &Error{Kind: KindPlayerNotInRoom, Message: "you are not in this game"}
	ErrNotPlaying       = &Error{Kind: KindNotPlaying, Message: "game is not in progress"}
	ErrNotRoomOwner     = &Error{Kind: KindNotRoomOwner, Message: "only the player who created the game can start it"}
	ErrNotEnoughPlayers = &Error{Kind: KindNotEnoughPlayers, Message: "not enough players to start"}
	ErrGameNotFinished  = &Error{Kind: KindGameNotFinished, Message: "game has not finished"}
	ErrInvalidCommand   = &Error{Kind: KindInvalidCommand, Message: "invalid command"}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the failure kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
