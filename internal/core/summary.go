package core

// CardSummary is a compact per-card rollup for display.
type CardSummary struct {
	Card           CardType
	Name           string
	Spend          Money
	EarnedPoints   int64
	MilestoneBonus int64
}

// TotalPoints is earned points plus the milestone bonus.
func (s CardSummary) TotalPoints() int64 {
	return s.EarnedPoints + s.MilestoneBonus
}

// Summarize recomputes per-card spend, earned points and milestone bonus from
// the full transaction list. Earned points are recomputed from each
// transaction's {Card, Amount, Category}, not read from the cached Points
// field, so stale caches cannot drift the totals.
func Summarize(transactions []Transaction) []CardSummary {
	out := make([]CardSummary, 0, len(CardTypes()))
	for _, card := range CardTypes() {
		rule, _ := RuleFor(card)
		s := CardSummary{Card: card, Name: rule.Name}
		for _, t := range transactions {
			if t.Card != card {
				continue
			}
			s.Spend.Cents += t.Amount.Cents
			s.EarnedPoints += PointsFor(t)
		}
		s.MilestoneBonus = MilestoneBonus(card, transactions)
		out = append(out, s)
	}
	return out
}
