package payment

import (
	"fmt"
	"time"
)

// Tier is a purchasable access duration. Amounts are in CFA francs.
type Tier struct {
	Amount   int64
	Validity time.Duration
}

var tiers = []Tier{
	{Amount: 200, Validity: 24 * time.Hour},
	{Amount: 400, Validity: 48 * time.Hour},
	{Amount: 500, Validity: 72 * time.Hour},
	{Amount: 1000, Validity: 168 * time.Hour},
	{Amount: 3000, Validity: 720 * time.Hour},
	{Amount: 5000, Validity: 1140 * time.Hour},
}

// Tiers lists the price tiers in ascending amount order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// LookupTier finds the tier for amount.
func LookupTier(amount int64) (Tier, bool) {
	for _, t := range tiers {
		if t.Amount == amount {
			return t, true
		}
	}
	return Tier{}, false
}

// Hours is the validity in whole hours.
func (t Tier) Hours() int {
	return int(t.Validity / time.Hour)
}

// Label is the button text shown for the tier, e.g. "200F – 24h".
func (t Tier) Label() string {
	return fmt.Sprintf("%dF – %dh", t.Amount, t.Hours())
}
