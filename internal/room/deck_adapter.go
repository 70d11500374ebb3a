package room

import "dobble-room-server/internal/deck"

// generateCards adapts the deck package's pure Card into the room
// package's own Card type, so store/types stays the single definition
// the rest of this package depends on.
func generateCards(order int, symbols []int) ([]Card, error) {
	built, err := deck.Generate(order, symbols)
	if err != nil {
		return nil, err
	}
	cards := make([]Card, len(built))
	for i, c := range built {
		cards[i] = Card{ID: c.ID, Symbols: c.Symbols}
	}
	return cards, nil
}
