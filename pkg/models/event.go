package models

import (
	"encoding/json"
	"errors"
)

var (
	ErrMalformedEvent = errors.New("event payload is not a JSON object")
	ErrMissingHandler = errors.New("event payload has no handler name")
)

// Event is a message posted by web content. Raw is the payload exactly as it
// arrived; Fields is the same payload decoded into a map.
type Event struct {
	Handler string
	Raw     json.RawMessage
	Fields  map[string]any
}

// ParseEvent decodes a content->native payload of the form
// {"handler": "<name>", ...}.
func ParseEvent(raw []byte) (*Event, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if fields == nil {
		return nil, ErrMalformedEvent
	}

	name, ok := fields["handler"].(string)
	if !ok || name == "" {
		return nil, ErrMissingHandler
	}

	return &Event{
		Handler: name,
		Raw:     append(json.RawMessage(nil), raw...),
		Fields:  fields,
	}, nil
}

// String returns a top-level string field.
func (e *Event) String(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	s, ok := e.Fields[key].(string)
	return s, ok
}

// Decode unmarshals the whole payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}
