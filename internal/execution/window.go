package execution

import (
	"time"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
)

// DefaultValidFor is the default half width of an execution's validity range.
const DefaultValidFor = 20 * time.Minute

// ValidityWindow returns the inclusive range [now-halfWidth, now+halfWidth]
// where now is the unix time in milliseconds of slot on network.
func ValidityWindow(network domain.Network, slot uint64, halfWidth time.Duration) datum.Interval {
	now := network.ToUnixMillis(slot)
	w := uint64(halfWidth.Milliseconds())
	lower := uint64(0)
	if now > w {
		lower = now - w
	}
	return datum.InclusiveRange(lower, now+w)
}
