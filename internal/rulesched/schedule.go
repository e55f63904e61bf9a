// Package rulesched evaluates a rule's optional cron-style schedule
// (domain.Rule.Schedule, SPEC_FULL.md §3 supplement: the source has no
// per-rule schedule concept at all) to decide whether a tick should process
// that rule.
package rulesched

import (
	"time"

	"github.com/adhocore/gronx"

	"github.com/leadwatch/leadwatch/internal/domain"
)

// Eligible reports whether rule should be processed at instant now. A nil
// schedule (or an empty cron expression) means "every tick" — the default
// for every rule the distilled spec describes.
func Eligible(rule *domain.Rule, now time.Time) bool {
	if rule.Schedule == nil || rule.Schedule.Cron == "" {
		return true
	}

	due, err := gronx.IsDue(rule.Schedule.Cron, now)
	if err != nil {
		// An unparsable cron expression degrades to "always eligible" rather
		// than silently starving a rule of analysis.
		return true
	}
	return due
}
