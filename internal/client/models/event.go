package models

import "encoding/json"

// Event is one frame on a realtime connection: a service-defined name plus a
// raw JSON payload. Payload stays raw until a listener decodes it.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent builds an event, marshaling payload to JSON. A nil payload yields
// an event with no data.
func NewEvent(name string, payload any) (Event, error) {
	ev := Event{Name: name}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = raw
	return ev, nil
}
