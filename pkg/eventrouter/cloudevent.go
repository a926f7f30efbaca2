package eventrouter

import (
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// CloudEventSourcePrefix prefixes the source module in a CloudEvent's source.
const CloudEventSourcePrefix = "/eventrouter/"

// CloudEvent converts rec to a CloudEvents 1.0 event. The correlation id
// becomes the event id, the event name the type, and the source module is
// kept in the "sourcemodule" extension as well as in the source.
func (rec Record) CloudEvent() (cloudevents.Event, error) {
	ce := cloudevents.NewEvent(cloudevents.VersionV1)
	ce.SetID(rec.ID)
	ce.SetType(rec.Event)
	ce.SetSource(CloudEventSourcePrefix + rec.SourceModule)
	ce.SetTime(rec.Timestamp)
	ce.SetExtension("sourcemodule", rec.SourceModule)

	if rec.Payload != nil {
		if err := ce.SetData(cloudevents.ApplicationJSON, rec.Payload); err != nil {
			return cloudevents.Event{}, fmt.Errorf("encode payload of %s: %w", rec.ID, err)
		}
	}
	if err := ce.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("cloudevent %s: %w", rec.ID, err)
	}
	return ce, nil
}

// CloudEvents converts records in order, stopping at the first failure.
func CloudEvents(recs []Record) ([]cloudevents.Event, error) {
	out := make([]cloudevents.Event, 0, len(recs))
	for _, rec := range recs {
		ce, err := rec.CloudEvent()
		if err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
	return out, nil
}
