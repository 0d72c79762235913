package engine

import (
	"github.com/sniperlabs/dexsniper/internal/domain"
)

// pickSides decides which pair side is the speculative base token and which
// is the quote (proceeds) token, using the quote allow-list. Exactly one
// side must match: a pair of two quote tokens has nothing to snipe, and a
// pair of two unknowns has nothing safe to hold. Both cases return
// ErrNoQuoteSide and the pair is skipped.
func pickSides(pair domain.Pair, registry *QuoteSymbolRegistry) (base, quote domain.TokenIndex, err error) {
	q0 := registry.IsQuote(pair.Token0)
	q1 := registry.IsQuote(pair.Token1)

	switch {
	case q0 == q1:
		return 0, 0, domain.ErrNoQuoteSide
	case q1:
		return domain.Token0, domain.Token1, nil
	default:
		return domain.Token1, domain.Token0, nil
	}
}
