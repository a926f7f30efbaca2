package eventrouter

import "time"

// FailedDelivery is one failed handler invocation, kept in a bounded log
// for inspection.
type FailedDelivery struct {
	CorrelationID string    `json:"correlationId"`
	Event         string    `json:"event"`
	SourceModule  string    `json:"sourceModule"`
	Handler       string    `json:"handler"`
	Error         string    `json:"error"`
	FailedAt      time.Time `json:"failedAt"`
}

// Failures returns up to limit of the most recent failed deliveries, oldest
// first. A limit of zero or less returns the whole log.
func (r *Router) Failures(limit int) []FailedDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = r.failures.len()
	}
	return r.failures.window(limit, 0)
}
