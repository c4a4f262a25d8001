// Package pricing computes registration totals and keeps team sizes inside
// the bounds a catalog entry allows.
package pricing

import (
	"math"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

// Bounds returns the inclusive team-size range for an entry.
func Bounds(e model.CatalogEntry) (lo, hi int) {
	if !e.IsTeamEvent {
		return 1, 1
	}
	lo, hi = e.MinTeamSize, e.MaxTeamSize
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Clamp pins n into the entry's team-size range.
func Clamp(e model.CatalogEntry, n int) int {
	lo, hi := Bounds(e)
	switch {
	case n < lo:
		return lo
	case n > hi:
		return hi
	}
	return n
}

// Step applies a +1/-1 stepper adjustment and clamps the result.
func Step(e model.CatalogEntry, n, delta int) int {
	return Clamp(e, Clamp(e, n)+delta)
}

// RosterSize is the number of additional member slots for a team of n;
// the registrant is member one.
func RosterSize(n int) int {
	if n < 1 {
		return 0
	}
	return n - 1
}

// ComputeTotal returns the amount due for a team of teamCount.
// Fixed-price entries charge their flat price regardless of team size.
func ComputeTotal(e model.CatalogEntry, teamCount int) float64 {
	if e.IsFixedPrice {
		return e.Price
	}
	return float64(Clamp(e, teamCount)) * e.Price
}

// MinorUnits converts an amount to the gateway's minor currency unit (paise).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Quote prices a requested team size after clamping it.
func Quote(e model.CatalogEntry, requested int) model.Quote {
	n := Clamp(e, requested)
	lo, hi := Bounds(e)
	return model.Quote{
		CatalogID:  e.ID,
		TeamCount:  n,
		MinTeam:    lo,
		MaxTeam:    hi,
		RosterSize: RosterSize(n),
		UnitPrice:  e.Price,
		Total:      ComputeTotal(e, n),
	}
}
