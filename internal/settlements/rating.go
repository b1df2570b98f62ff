package settlements

import "github.com/shopspring/decimal"

// Aggregate derives the merchant rating fields from review stats: the average rounded
// half-up to one decimal and the share of ratings >= 4 rounded half-to-even to a percent.
func Aggregate(stats RatingStats) (count int, avg decimal.Decimal, positivePercent int) {
	if stats.Count <= 0 {
		return 0, decimal.Zero, 0
	}
	n := decimal.NewFromInt(stats.Count)
	avg = decimal.NewFromInt(stats.Sum).Div(n).Round(1)
	positivePercent = int(decimal.NewFromInt(stats.Positive * 100).Div(n).RoundBank(0).IntPart())
	return int(stats.Count), avg, positivePercent
}
