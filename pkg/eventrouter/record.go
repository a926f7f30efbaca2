package eventrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSourceModule tags emissions that do not name their producer.
const DefaultSourceModule = "unknown"

// Record is one emission as kept in the history ring. Records are never
// mutated after Emit creates them.
type Record struct {
	ID           string    `json:"id"`
	Event        string    `json:"event"`
	Payload      any       `json:"data"`
	SourceModule string    `json:"sourceModule"`
	Timestamp    time.Time `json:"timestamp"`
}

// newCorrelationID returns "<event>_<unix millis>_<8 hex chars>".
func newCorrelationID(event string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", event, now.UnixMilli(), uuid.New().String()[:8])
}

// queuedEvent is a record waiting in the delivery queue.
type queuedEvent struct {
	record   Record
	queuedAt time.Time
	ctx      context.Context // producer context, detached from its cancellation
	done     chan struct{}   // closed once delivered; nil unless a caller waits
}
