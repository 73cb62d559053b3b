package parser

// Weights is the confidence weight table. The parser sums the base score,
// the weight of the merchant rule that matched, a bonus when the sender is a
// known bank, and a bonus when both the amount and the debit/credit keyword
// were unambiguous, then clamps to [0,1].
//
// The table lives here, not inline in the scoring code, so tests can assert
// against it and deployments can tune it.
type Weights struct {
	// Base is added to every accepted message.
	Base float64

	// Pattern maps a merchant rule name to its weight. More specific rules
	// carry more weight.
	Pattern map[string]float64

	// KnownBank is added when the sender hint matches the bank registry.
	KnownBank float64

	// Unambiguous is added when the text contains exactly one amount and
	// exactly one direction (debit xor credit) keyword set.
	Unambiguous float64
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		Base: 0.05,
		Pattern: map[string]float64{
			RuleRefCode: 0.35,
			RuleUPI:     0.32,
			RuleAt:      0.30,
			RuleTo:      0.28,
			RuleFor:     0.25,
		},
		KnownBank:   0.25,
		Unambiguous: 0.20,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
