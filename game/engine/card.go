package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is the color printed on (or chosen for) a card
type Color string

const (
	Red    Color = "Red"
	Yellow Color = "Yellow"
	Green  Color = "Green"
	Blue   Color = "Blue"
	Wild   Color = "Wild"
)

// Colors lists the four playable colors in deck build order.
var Colors = []Color{Red, Yellow, Green, Blue}

// Kind identifies what a card does when played
type Kind string

const (
	KindNumber       Kind = "Number"
	KindSkip         Kind = "Skip"
	KindReverse      Kind = "Reverse"
	KindDrawTwo      Kind = "DrawTwo"
	KindWild         Kind = "Wild"
	KindWildDrawFour Kind = "WildDrawFour"
)

// Card is an immutable card value. Two cards are equal when all fields match.
type Card struct {
	Color Color  `json:"color"`
	Kind  Kind   `json:"kind"`
	Value string `json:"value"` // "0".."9" for numbers, the kind name otherwise
}

// NumberCard returns the number card n of the given color.
func NumberCard(c Color, n int) Card {
	return Card{Color: c, Kind: KindNumber, Value: strconv.Itoa(n)}
}

// ActionCard returns a colored Skip, Reverse or DrawTwo card.
func ActionCard(c Color, k Kind) Card {
	return Card{Color: c, Kind: k, Value: string(k)}
}

// WildCard returns an unpainted Wild or WildDrawFour card.
func WildCard(k Kind) Card {
	return Card{Color: Wild, Kind: k, Value: string(k)}
}

// IsWild reports whether the card is a Wild or WildDrawFour, painted or not.
func (c Card) IsWild() bool {
	return c.Kind == KindWild || c.Kind == KindWildDrawFour
}

// Painted returns a copy of a wild card showing the chosen color.
func (c Card) Painted(color Color) Card {
	if !c.IsWild() {
		return c
	}
	c.Color = color
	return c
}

// Base returns the card as it was printed, undoing any chosen color.
func (c Card) Base() Card {
	if c.IsWild() {
		c.Color = Wild
	}
	return c
}

func (c Card) String() string {
	if c.Kind == KindNumber {
		return fmt.Sprintf("%s %s", c.Color, c.Value)
	}
	if c.IsWild() && c.Color != Wild {
		return fmt.Sprintf("%s (%s)", c.Kind, c.Color)
	}
	if c.IsWild() {
		return string(c.Kind)
	}
	return fmt.Sprintf("%s %s", c.Color, c.Kind)
}

// ParseColor accepts a playable color name, case-insensitively.
// Wild is not a color a player can choose.
func ParseColor(s string) (Color, bool) {
	for _, c := range Colors {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}
