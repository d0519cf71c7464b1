package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// DeckSize is the number of cards in a full build.
const DeckSize = 108

// ErrOutOfCards is returned when both the draw and the discard pile are spent.
var ErrOutOfCards = errors.New("out of cards")

// Deck owns the draw pile and the discard pile. The last discard is the top card.
// A Deck is not safe for concurrent use; its room serializes access.
type Deck struct {
	draw    []Card
	discard []Card
	rng     *rand.Rand
}

// BuildCards returns the 108-card composition in a fixed order.
func BuildCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, c := range Colors {
		cards = append(cards, NumberCard(c, 0))
		for n := 1; n <= 9; n++ {
			cards = append(cards, NumberCard(c, n), NumberCard(c, n))
		}
		for _, k := range []Kind{KindSkip, KindReverse, KindDrawTwo} {
			cards = append(cards, ActionCard(c, k), ActionCard(c, k))
		}
	}
	for _, k := range []Kind{KindWild, KindWildDrawFour} {
		for i := 0; i < 4; i++ {
			cards = append(cards, WildCard(k))
		}
	}
	return cards
}

// NewShuffledDeck returns a deck holding every card in random order.
// A nil rng falls back to a randomly seeded generator.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d := &Deck{draw: BuildCards(), rng: rng}
	d.shuffle(d.draw)
	return d
}

// NewDeckFromCards builds a deck whose draw pile is exactly cards, last card drawn first.
// It is meant for tests and replays; no composition check is applied.
func NewDeckFromCards(cards []Card, rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &Deck{draw: append([]Card(nil), cards...), rng: rng}
}

// Fisher-Yates
func (d *Deck) shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Draw pops one card, reshuffling the discard pile (minus the top) when the
// draw pile is empty.
func (d *Deck) Draw() (Card, error) {
	if len(d.draw) == 0 {
		d.reshuffle()
	}
	if len(d.draw) == 0 {
		return Card{}, ErrOutOfCards
	}
	c := d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]
	return c, nil
}

// DrawMany draws up to n cards, returning fewer only when the deck is exhausted.
func (d *Deck) DrawMany(n int) []Card {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := d.Draw()
		if err != nil {
			break
		}
		out = append(out, c)
	}
	return out
}

// Discard places a card on the discard pile; it becomes the top card.
func (d *Deck) Discard(c Card) {
	d.discard = append(d.discard, c)
}

// Top returns the current top card, or false before the first discard.
func (d *Deck) Top() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// Return puts cards back into the draw pile and reshuffles it.
func (d *Deck) Return(cards []Card) {
	for _, c := range cards {
		d.draw = append(d.draw, c.Base())
	}
	d.shuffle(d.draw)
}

// FlipOpening turns over the first discard. Wild cards are not allowed to open
// the pile: they go under the discard pile and another card is flipped.
func (d *Deck) FlipOpening() (Card, error) {
	for {
		c, err := d.Draw()
		if err != nil {
			return Card{}, err
		}
		if !c.IsWild() {
			d.Discard(c)
			return c, nil
		}
		d.discard = append([]Card{c}, d.discard...)
	}
}

func (d *Deck) reshuffle() {
	if len(d.discard) <= 1 {
		return
	}
	top := d.discard[len(d.discard)-1]
	for _, c := range d.discard[:len(d.discard)-1] {
		d.draw = append(d.draw, c.Base())
	}
	d.discard = []Card{top}
	d.shuffle(d.draw)
}

// DrawPileSize returns how many cards are left to draw.
func (d *Deck) DrawPileSize() int { return len(d.draw) }

// DiscardPileSize returns how many cards are on the discard pile, top included.
func (d *Deck) DiscardPileSize() int { return len(d.discard) }

// Count returns the number of cards held by the deck across both piles.
func (d *Deck) Count() int { return len(d.draw) + len(d.discard) }

// Cards returns a copy of every card held by the deck, draw pile first.
func (d *Deck) Cards() []Card {
	out := make([]Card, 0, d.Count())
	out = append(out, d.draw...)
	return append(out, d.discard...)
}

// VerifyComposition checks that cards form exactly one full build, ignoring
// colors painted on wild cards.
func VerifyComposition(cards []Card) error {
	if len(cards) != DeckSize {
		return fmt.Errorf("card count %d, want %d", len(cards), DeckSize)
	}
	want := make(map[Card]int, 54)
	for _, c := range BuildCards() {
		want[c]++
	}
	for _, c := range cards {
		want[c.Base()]--
	}
	for c, n := range want {
		if n != 0 {
			return fmt.Errorf("card %s off by %d", c, -n)
		}
	}
	return nil
}
