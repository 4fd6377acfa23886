package core

type (
	// Milestone awards Bonus points once cumulative card spend reaches
	// Threshold. Milestones are ordered by ascending threshold and only the
	// highest milestone met pays out, bonuses do not stack.
	Milestone struct {
		Threshold Money
		Bonus     int64
	}

	// CardRule is the static reward rule for one card type.
	CardRule struct {
		Name string

		// PaisePerPoint is the spend required to earn one point,
		// e.g. 4000 paise for a 1-point-per-40-rupee card.
		PaisePerPoint int64

		// IntlMultX100 is the earn multiplier applied to the
		// "international" category, times 100. 100 means no multiplier.
		IntlMultX100 int64

		Excluded   map[Category]struct{}
		Milestones []Milestone
	}
)

// cardRules is the fixed rule table. Amounts are paise.
var cardRules = map[CardType]CardRule{
	CardMRCC: {
		Name:          "Amex Membership Rewards Credit Card",
		PaisePerPoint: 5000, // 1 point per ₹50
		IntlMultX100:  100,
		Excluded: map[Category]struct{}{
			CategoryFuel:      {},
			CategoryUtilities: {},
			CategoryInsurance: {},
		},
	},
	CardPlatinumTravel: {
		Name:          "Amex Platinum Travel",
		PaisePerPoint: 4000, // 1 point per ₹40
		IntlMultX100:  200,
		Excluded: map[Category]struct{}{
			CategoryFuel:      {},
			CategoryUtilities: {},
			CategoryInsurance: {},
			CategoryEMI:       {},
		},
		Milestones: []Milestone{
			{Threshold: Money{Cents: 19_000_000}, Bonus: 15000}, // ₹1,90,000
			{Threshold: Money{Cents: 40_000_000}, Bonus: 25000}, // ₹4,00,000
		},
	},
}

// RuleFor returns the static rule for a card type.
func RuleFor(card CardType) (CardRule, bool) {
	r, ok := cardRules[card]
	return r, ok
}

// CardTypes lists every card type with a rule, in display order.
func CardTypes() []CardType {
	return []CardType{CardMRCC, CardPlatinumTravel}
}

// PointsFor computes the reward points for a single transaction. Excluded
// categories earn zero. The result is floored, never rounded up, by doing a
// single integer division after all multipliers are applied.
func PointsFor(t Transaction) int64 {
	rule, ok := RuleFor(t.Card)
	if !ok {
		return 0
	}
	if _, excluded := rule.Excluded[t.Category]; excluded {
		return 0
	}
	if t.Amount.Cents <= 0 || rule.PaisePerPoint <= 0 {
		return 0
	}
	multX100 := int64(100)
	if t.Category == CategoryInternational {
		multX100 = rule.IntlMultX100
	}
	return t.Amount.Cents * multX100 / (rule.PaisePerPoint * 100)
}

// MilestoneBonus computes the milestone bonus for a card from the full
// transaction list. It sums spend across every transaction on the card and
// returns the bonus of the highest threshold met, or zero below the first
// threshold. It is recomputed from scratch each time rather than maintained
// incrementally.
func MilestoneBonus(card CardType, transactions []Transaction) int64 {
	rule, ok := RuleFor(card)
	if !ok || len(rule.Milestones) == 0 {
		return 0
	}
	var spend int64
	for _, t := range transactions {
		if t.Card == card {
			spend += t.Amount.Cents
		}
	}
	var bonus int64
	for _, m := range rule.Milestones {
		if spend >= m.Threshold.Cents {
			bonus = m.Bonus
		}
	}
	return bonus
}
