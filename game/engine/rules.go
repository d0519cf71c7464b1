package engine

import (
	"errors"
	"fmt"
)

const (
	DefaultHandSize   = 7
	DefaultMinPlayers = 2
	DefaultMaxPlayers = 10
	MaxHandSize       = 15
)

// Rules are the house rules a room plays under.
type Rules struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	HandSize     int    `json:"hand_size"`
	MinPlayers   int    `json:"min_players"`
	MaxPlayers   int    `json:"max_players"`
	StackDrawTwo bool   `json:"stack_draw_two"`
}

// DefaultRules returns the classic rule set.
func DefaultRules() Rules {
	return Rules{
		Name:         "classic",
		Description:  "Seven cards each, up to ten players, Draw Two stacks",
		HandSize:     DefaultHandSize,
		MinPlayers:   DefaultMinPlayers,
		MaxPlayers:   DefaultMaxPlayers,
		StackDrawTwo: true,
	}
}

// ValidateRules checks that a rule set can be dealt from one deck.
func ValidateRules(r *Rules) error {
	if r == nil {
		return errors.New("rules cannot be nil")
	}
	if r.Name == "" {
		return errors.New("rules name is required")
	}
	if r.HandSize < 1 || r.HandSize > MaxHandSize {
		return fmt.Errorf("hand_size must be between 1 and %d, got %d", MaxHandSize, r.HandSize)
	}
	if r.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2, got %d", r.MinPlayers)
	}
	if r.MaxPlayers < r.MinPlayers {
		return fmt.Errorf("max_players (%d) must not be below min_players (%d)", r.MaxPlayers, r.MinPlayers)
	}
	// every hand plus the opening flip must come out of one build
	if r.MaxPlayers*r.HandSize+1 > DeckSize {
		return fmt.Errorf("%d players with %d cards each do not fit in a %d card deck", r.MaxPlayers, r.HandSize, DeckSize)
	}
	return nil
}

// Effect is what a played card does to the turn that follows.
type Effect struct {
	Skip      bool
	Reverse   bool
	DrawCount int
}

// IsLegalMove reports whether played may go on top. top carries its displayed
// color, so a painted wild matches on the chosen color.
func IsLegalMove(played, top Card) bool {
	return played.Color == top.Color || played.Value == top.Value || played.Color == Wild
}

// NextIndex advances one seat in the current direction, two when extraSkip is set.
func NextIndex(current, playerCount int, reversed, extraSkip bool) int {
	if playerCount <= 0 {
		return 0
	}
	step := 1
	if extraSkip {
		step = 2
	}
	if reversed {
		step = -step
	}
	return ((current+step)%playerCount + playerCount) % playerCount
}

// ApplyCardEffect returns the side effects of playing c. Reverse is reported,
// the caller flips the room direction.
func ApplyCardEffect(c Card) Effect {
	switch c.Kind {
	case KindSkip:
		return Effect{Skip: true}
	case KindReverse:
		return Effect{Reverse: true}
	case KindDrawTwo:
		return Effect{DrawCount: 2}
	case KindWildDrawFour:
		return Effect{DrawCount: 4}
	default:
		return Effect{}
	}
}

// HasCounter reports whether hand can answer a pending Draw Two.
func HasCounter(hand []Card) bool {
	for _, c := range hand {
		if c.Kind == KindDrawTwo {
			return true
		}
	}
	return false
}

// ContinuesStack decides whether a Draw Two penalty stays on the accumulator
// for the next player or is drawn by them immediately. Wild Draw Four never stacks.
func ContinuesStack(played Card, nextHand []Card, r Rules) bool {
	return played.Kind == KindDrawTwo && r.StackDrawTwo && HasCounter(nextHand)
}

// CanPlayWhilePending reports whether c answers a pending draw penalty.
func CanPlayWhilePending(c Card) bool {
	return c.Kind == KindDrawTwo
}

// HasWon reports whether a hand has been emptied.
func HasWon(hand []Card) bool {
	return len(hand) == 0
}
