package engine

// Status is the overall outcome of a probe. The values form a closed set;
// escalation between them is monotonic (see Escalate).
type Status string

const (
	// StatusOK means every attempted introspection stage succeeded.
	StatusOK Status = "ok"
	// StatusPartial means at least one optional stage (or tool listing)
	// timed out or errored after a successful initialize.
	StatusPartial Status = "partial"
	// StatusAuthGated means initialize succeeded but the server enumerated
	// nothing and its stderr hints at missing credentials.
	StatusAuthGated Status = "auth_gated"
	// StatusAuthRequired means initialize itself failed and stderr hints
	// at missing credentials.
	StatusAuthRequired Status = "auth_required"
	// StatusTimeout means initialize exceeded its bounded wait.
	StatusTimeout Status = "timeout"
	// StatusStartupError means the server crashed before completing
	// initialize. A stack trace in stderr overrides a timeout-shaped error.
	StatusStartupError Status = "startup_error"
)

// statusRank is a total order over statuses: higher rank means a more
// specific (worse) outcome. Escalation never moves down this order.
var statusRank = map[Status]int{
	StatusOK:           0,
	StatusPartial:      1,
	StatusAuthGated:    2,
	StatusAuthRequired: 3,
	StatusTimeout:      4,
	StatusStartupError: 5,
}

// Escalate raises cur to at least next. A more specific status is never
// downgraded: escalating auth_gated to partial keeps auth_gated.
func Escalate(cur, next Status) Status {
	if statusRank[next] > statusRank[cur] {
		return next
	}
	return cur
}

// Fatal reports whether s terminates a probe before enumeration completed.
func (s Status) Fatal() bool {
	return s == StatusAuthRequired || s == StatusTimeout || s == StatusStartupError
}
