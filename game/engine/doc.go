// Package engine provides the card model and the pure rule logic for Uno rooms.
//
// The engine package implements:
//   - The immutable Card value and the 108-card build
//   - The Deck with its draw and discard piles and automatic reshuffle
//   - Move legality, seat advancement and special-card effects
//   - Draw Two stacking decisions and the win check
//   - House rule presets (Rules) and their validation
//
// Nothing in this package locks or performs I/O. A Deck belongs to one room
// and is only touched while that room is locked.
//
// Usage:
//
//	deck := engine.NewShuffledDeck(nil)
//	top, _ := deck.FlipOpening()
//	hand := deck.DrawMany(engine.DefaultHandSize)
//
//	if engine.IsLegalMove(hand[0], top) {
//		effect := engine.ApplyCardEffect(hand[0])
//		next := engine.NextIndex(0, 4, false, effect.Skip)
//		_ = next
//	}
//
// Wild cards are stored on the discard pile painted with the color the player
// chose; Card.Base restores the printed card whenever it goes back into the
// draw pile.
package engine
