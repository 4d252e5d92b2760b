package match

import "github.com/channelswap/channelswap/internal/domain/offer"

// CompatibilityScore rates how well an initiator channel fits an offer's
// audience constraints, in [0, 1]. Advisory: used for display and ranking
// upstream, never for gating a transition.
func CompatibilityScore(o *offer.Offer, initiatorSubs int) float64 {
	if !o.AcceptsSubscriberCount(initiatorSubs) {
		return 0
	}
	score := 0.5
	if o.MinSubs == nil && o.MaxSubs == nil {
		return score
	}
	// Proximity to the middle of the requested band scores higher.
	lo, hi := 0, initiatorSubs
	if o.MinSubs != nil {
		lo = *o.MinSubs
	}
	if o.MaxSubs != nil {
		hi = *o.MaxSubs
	}
	if hi <= lo {
		return 1
	}
	mid := float64(lo+hi) / 2
	span := float64(hi-lo) / 2
	dist := float64(initiatorSubs) - mid
	if dist < 0 {
		dist = -dist
	}
	return 1 - (dist/span)*0.5
}
