// Package query implements the admin dashboard computations: filtering,
// search and aggregate stats. Everything here is a pure function over a
// snapshot of the collection.
package query

import (
	"strings"

	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// FilterAll matches every status.
const FilterAll = "ALL"

// Pricing holds the per-tier prices in integer cents. Revenue is re-derived
// from the unlock type at query time; nothing monetary is stored per request.
type Pricing struct {
	SingleCents   int64
	LifetimeCents int64
}

// DefaultPricing mirrors the advertised tiers: $1.50 single, $15.00 lifetime.
var DefaultPricing = Pricing{SingleCents: 150, LifetimeCents: 1500}

// PriceCents returns the price for a purchased tier.
func (p Pricing) PriceCents(t model.UnlockType) int64 {
	if t == model.UnlockLifetime {
		return p.LifetimeCents
	}
	return p.SingleCents
}

// Stats summarizes the full, unfiltered collection for the admin view.
type Stats struct {
	PendingAction     int   `json:"pendingAction"`
	AwaitingPayment   int   `json:"awaitingPayment"`
	Completed         int   `json:"completed"`
	TotalRevenueCents int64 `json:"totalRevenueCents"`
}

// Filter returns the requests matching the status filter and search term.
// statusFilter is FilterAll or one exact status; the search term matches
// case-insensitively against the metadata title, falling back to the URL.
func Filter(requests []model.UnlockRequest, statusFilter, searchTerm string) []model.UnlockRequest {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	out := make([]model.UnlockRequest, 0, len(requests))
	for _, req := range requests {
		if statusFilter != "" && statusFilter != FilterAll && string(req.Status) != statusFilter {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(req.Title()), term) {
			continue
		}
		out = append(out, req)
	}
	return out
}

// Compute derives the dashboard stats. Only READY requests count toward
// revenue.
func Compute(requests []model.UnlockRequest, pricing Pricing) Stats {
	var stats Stats
	for _, req := range requests {
		switch req.Status {
		case model.StatusRequested:
			stats.PendingAction++
		case model.StatusPaymentRequired:
			stats.AwaitingPayment++
		case model.StatusReady:
			stats.Completed++
			t := model.UnlockSingle
			if req.UnlockType != nil {
				t = *req.UnlockType
			}
			stats.TotalRevenueCents += pricing.PriceCents(t)
		}
	}
	return stats
}
