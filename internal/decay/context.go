package decay

import "time"

// ResolveContext selects the environmental context for now's local wall
// clock hour, per the selection table in §4.3. low_activity has no wall
// clock window of its own — it is reachable only via an explicit
// override, matching its "explicit override only" selection rule.
func ResolveContext(now time.Time, override *Context) Context {
	if override != nil {
		return *override
	}
	hour := now.Local().Hour()
	switch {
	case hour >= 9 && hour < 18:
		return FocusedLearning
	case hour >= 18 && hour < 23:
		return HighActivity
	default:
		return RestPeriod
	}
}
