// Package fee computes platform and booking fees for ticket orders. It is
// pure: callers supply the platform configuration and get amounts back, so
// the engine can be exercised without a database.
package fee

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

// ErrNoSlab is returned when a slab configuration exists but no slab covers
// the requested ticket price. This is a configuration fault, not a user
// error: a valid slab set partitions the whole non-negative price axis.
var ErrNoSlab = errors.New("no fee slab covers ticket price")

// SlabIssue describes one validation failure in a proposed slab set.
type SlabIssue struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ValidationError reports every offending slab in a rejected configuration,
// not just the first, so an admin can fix the whole set in one pass.
type ValidationError struct {
	Issues []SlabIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("slab %d: %s", is.Index, is.Reason))
	}
	return "invalid fee slabs: " + strings.Join(parts, "; ")
}

// Amounts holds the two additive charges on an order, in the same
// minor-currency unit as the ticket price.
type Amounts struct {
	PlatformFeeCents uint32
	BookingFeeCents  uint32
}

// Compute derives the fees for an order of qty tickets at priceCents each.
// An override percentage (per-show custom fee) takes precedence over slab
// lookup. With no override, the slab whose inclusive range contains
// priceCents supplies the percentage; an empty slab list falls back to the
// configured default. Both fees are rounded half away from zero on the
// order total, not per ticket, so rounding never drifts with quantity.
func Compute(cfg model.PlatformConfig, priceCents uint32, qty uint32, override *float64) (Amounts, error) {
	total := float64(priceCents) * float64(qty)

	pct := cfg.DefaultFeePercent
	switch {
	case override != nil:
		pct = *override
	case len(cfg.Slabs) > 0:
		slab, ok := lookup(cfg.Slabs, priceCents)
		if !ok {
			return Amounts{}, ErrNoSlab
		}
		pct = slab.FeePercent
	}

	return Amounts{
		PlatformFeeCents: roundHalfAway(total * pct),
		BookingFeeCents:  roundHalfAway(total * cfg.BookingFeePercent),
	}, nil
}

// lookup finds the slab whose [MinPriceCents, MaxPriceCents] range contains
// price. Ranges are inclusive; a nil MaxPriceCents is unbounded above.
func lookup(slabs []model.FeeSlab, price uint32) (model.FeeSlab, bool) {
	for _, s := range slabs {
		if price < s.MinPriceCents {
			continue
		}
		if s.MaxPriceCents == nil || price <= *s.MaxPriceCents {
			return s, true
		}
	}
	return model.FeeSlab{}, false
}

// roundHalfAway rounds a non-negative amount half away from zero to a whole
// cent value.
func roundHalfAway(x float64) uint32 {
	return uint32(math.Floor(x + 0.5))
}

// ValidateSlabs checks a proposed slab configuration and returns a
// *ValidationError enumerating every problem, or nil when the set is valid.
// A valid set is sorted ascending by MinPriceCents, starts at 0, ends with
// an unbounded slab, has each slab's max strictly above its min, percents
// within [0,1], and consecutive slabs exactly contiguous
// (next.min == prev.max + 1). An empty set is valid: the default percent
// applies until slabs are configured.
func ValidateSlabs(slabs []model.FeeSlab) error {
	if len(slabs) == 0 {
		return nil
	}

	// Validate against a sorted copy so positional issues are reported in
	// price order regardless of submission order.
	sorted := make([]model.FeeSlab, len(slabs))
	copy(sorted, slabs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPriceCents < sorted[j].MinPriceCents
	})

	var issues []SlabIssue
	add := func(i int, format string, args ...any) {
		issues = append(issues, SlabIssue{Index: i, Reason: fmt.Sprintf(format, args...)})
	}

	for i, s := range sorted {
		if s.FeePercent < 0 || s.FeePercent > 1 {
			add(i, "fee_percent %v outside [0,1]", s.FeePercent)
		}
		if s.MaxPriceCents != nil && *s.MaxPriceCents <= s.MinPriceCents {
			add(i, "max_price_cents %d <= min_price_cents %d", *s.MaxPriceCents, s.MinPriceCents)
		}
		if s.MaxPriceCents == nil && i != len(sorted)-1 {
			add(i, "unbounded slab must be last")
		}
	}

	if first := sorted[0]; first.MinPriceCents != 0 {
		add(0, "gap below slab: prices 0-%d uncovered", first.MinPriceCents-1)
	}
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.MaxPriceCents == nil {
			continue // already flagged as misplaced unbounded slab
		}
		switch {
		case cur.MinPriceCents == *prev.MaxPriceCents+1:
			// contiguous
		case cur.MinPriceCents > *prev.MaxPriceCents+1:
			add(i, "gap before slab: prices %d-%d uncovered", *prev.MaxPriceCents+1, cur.MinPriceCents-1)
		default:
			add(i, "overlaps previous slab at prices %d-%d", cur.MinPriceCents, *prev.MaxPriceCents)
		}
	}
	if last := sorted[len(sorted)-1]; last.MaxPriceCents != nil {
		add(len(sorted)-1, "gap above slab: prices beyond %d uncovered", *last.MaxPriceCents)
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
