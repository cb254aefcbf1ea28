package rtc

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dkeye/avatarstream/internal/events"
)

var ErrNoDiscriminator = errors.New("message has no type")

// DecodeMessage turns a data-channel payload into an event keyed by its
// "type" field.
func DecodeMessage(data []byte) (events.Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return events.Event{}, fmt.Errorf("decode data channel message: %w", err)
	}
	typ, _ := raw["type"].(string)
	if typ == "" {
		return events.Event{}, ErrNoDiscriminator
	}
	d := events.MessageDetail{Raw: raw}
	d.TaskID, _ = raw["task_id"].(string)
	d.Message, _ = raw["message"].(string)
	return events.Event{Type: events.Type(typ), Detail: d}, nil
}
