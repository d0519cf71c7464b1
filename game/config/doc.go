// Package config provides house rules preset management for Uno rooms.
//
// The config package handles:
//   - Loading rules presets from JSON files
//   - Preset validation against the 108-card deck
//   - Default preset management
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets are stored as JSON files in the rules directory. Each preset sets:
//   - hand_size: cards dealt to every seat
//   - min_players / max_players: seats needed to start, and the seat limit
//   - stack_draw_two: whether a Draw Two passes on to a player who can answer it
//
// Fields left out of a file keep their classic values.
//
// Available Presets:
//   - classic: seven cards, two to ten players, stacking on
//   - no-stacking: classic without Draw Two stacking
//   - quick: five cards, up to six players
//   - party: ten cards, three to ten players
//
// Usage:
//
//	manager, err := config.NewManager("rules")
//	if err != nil {
//		return err
//	}
//
//	rules, err := manager.LoadRules("quick")
//	defaultRules := manager.GetDefault()
//	presets, err := manager.ListRules()
//
// Validation:
//
// A preset is rejected when every seat's hand plus the opening card could
// not be dealt from a single deck.
package config
