package engine

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestBuildCards_Composition(t *testing.T) {
	cards := BuildCards()
	require.Len(t, cards, DeckSize)

	counts := map[Card]int{}
	for _, c := range cards {
		counts[c]++
	}

	for _, color := range Colors {
		assert.Equal(t, 1, counts[NumberCard(color, 0)], "one zero per color")
		for n := 1; n <= 9; n++ {
			assert.Equal(t, 2, counts[NumberCard(color, n)], "two of %s %d", color, n)
		}
		for _, k := range []Kind{KindSkip, KindReverse, KindDrawTwo} {
			assert.Equal(t, 2, counts[ActionCard(color, k)], "two of %s %s", color, k)
		}
	}
	assert.Equal(t, 4, counts[WildCard(KindWild)])
	assert.Equal(t, 4, counts[WildCard(KindWildDrawFour)])
}

func TestNewShuffledDeck(t *testing.T) {
	t.Run("every shuffle holds the full build", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			d := NewShuffledDeck(testRNG(seed))
			assert.Equal(t, DeckSize, d.DrawPileSize())
			assert.Equal(t, 0, d.DiscardPileSize())
			require.NoError(t, VerifyComposition(d.Cards()))
		}
	})

	t.Run("order differs between seeds", func(t *testing.T) {
		a := NewShuffledDeck(testRNG(1)).Cards()
		b := NewShuffledDeck(testRNG(2)).Cards()
		assert.NotEqual(t, a, b)
	})

	t.Run("nil rng still shuffles", func(t *testing.T) {
		d := NewShuffledDeck(nil)
		require.NoError(t, VerifyComposition(d.Cards()))
	})
}

func TestDeck_Draw(t *testing.T) {
	t.Run("pops from the end", func(t *testing.T) {
		d := NewDeckFromCards([]Card{NumberCard(Red, 1), NumberCard(Blue, 2)}, nil)
		c, err := d.Draw()
		require.NoError(t, err)
		assert.Equal(t, NumberCard(Blue, 2), c)
		assert.Equal(t, 1, d.DrawPileSize())
	})

	t.Run("reshuffles discard except the top", func(t *testing.T) {
		d := NewDeckFromCards(nil, testRNG(3))
		d.Discard(NumberCard(Red, 1))
		d.Discard(WildCard(KindWild).Painted(Green))
		d.Discard(NumberCard(Blue, 5))

		c, err := d.Draw()
		require.NoError(t, err)
		assert.Contains(t, []Card{NumberCard(Red, 1), WildCard(KindWild)}, c, "painted wild comes back unpainted")

		top, ok := d.Top()
		require.True(t, ok)
		assert.Equal(t, NumberCard(Blue, 5), top)
		assert.Equal(t, 1, d.DiscardPileSize())
		assert.Equal(t, 1, d.DrawPileSize())
	})

	t.Run("out of cards when both piles are spent", func(t *testing.T) {
		d := NewDeckFromCards(nil, nil)
		d.Discard(NumberCard(Red, 1))
		_, err := d.Draw()
		assert.ErrorIs(t, err, ErrOutOfCards)
		assert.Equal(t, 1, d.DiscardPileSize(), "top card never leaves the discard pile")
	})
}

func TestDeck_DrawMany(t *testing.T) {
	d := NewDeckFromCards([]Card{NumberCard(Red, 1), NumberCard(Red, 2), NumberCard(Red, 3)}, nil)

	got := d.DrawMany(2)
	assert.Equal(t, []Card{NumberCard(Red, 3), NumberCard(Red, 2)}, got)

	got = d.DrawMany(5)
	assert.Len(t, got, 1, "stops early only when exhausted")
	assert.Empty(t, d.DrawMany(1))
}

func TestDeck_FlipOpening(t *testing.T) {
	t.Run("buries wild cards", func(t *testing.T) {
		d := NewDeckFromCards([]Card{
			NumberCard(Yellow, 4),
			WildCard(KindWildDrawFour),
			WildCard(KindWild),
		}, nil)

		top, err := d.FlipOpening()
		require.NoError(t, err)
		assert.Equal(t, NumberCard(Yellow, 4), top)
		assert.Equal(t, 3, d.DiscardPileSize())

		cur, ok := d.Top()
		require.True(t, ok)
		assert.Equal(t, top, cur)
	})

	t.Run("keeps the full build", func(t *testing.T) {
		d := NewShuffledDeck(testRNG(9))
		_, err := d.FlipOpening()
		require.NoError(t, err)
		require.NoError(t, VerifyComposition(d.Cards()))
	})
}

func TestDeck_Return(t *testing.T) {
	d := NewShuffledDeck(testRNG(4))
	hand := d.DrawMany(7)
	require.Equal(t, DeckSize-7, d.Count())

	d.Return(hand)
	assert.Equal(t, DeckSize, d.DrawPileSize())
	require.NoError(t, VerifyComposition(d.Cards()))
}

func TestVerifyComposition(t *testing.T) {
	cards := BuildCards()

	t.Run("wrong count", func(t *testing.T) {
		assert.Error(t, VerifyComposition(cards[1:]))
	})

	t.Run("duplicate instead of transfer", func(t *testing.T) {
		bad := append([]Card(nil), cards...)
		bad[0] = bad[1]
		assert.Error(t, VerifyComposition(bad))
	})

	t.Run("painted wilds count as wilds", func(t *testing.T) {
		painted := append([]Card(nil), cards...)
		for i, c := range painted {
			if c.IsWild() {
				painted[i] = c.Painted(Blue)
			}
		}
		assert.NoError(t, VerifyComposition(painted))
	})
}
