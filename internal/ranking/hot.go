// Package ranking computes the time-decayed hot score used to order feeds.
package ranking

import (
	"math"
	"time"
)

// Epoch is the zero point of the age term.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DecaySeconds is the age divisor: every DecaySeconds of age is worth one
// order of magnitude in net score halved.
const DecaySeconds = 180000

// HotScore ranks a post from its vote totals and creation time. The result
// is rounded to 7 decimal places so that identical inputs always persist the
// same value.
func HotScore(upvotes, downvotes int, createdAt time.Time) float64 {
	score := upvotes - downvotes
	order := math.Log10(math.Max(math.Abs(float64(score)), 1)) * 2

	var sign float64
	switch {
	case score > 0:
		sign = 1
	case score < 0:
		sign = -1
	}

	age := createdAt.Sub(Epoch).Seconds()
	return round7(sign*order + age/DecaySeconds)
}

func round7(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}
