package signal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/events"
	"github.com/dkeye/avatarstream/internal/frames"
)

const writeWait = 5 * time.Second

func deadline() time.Time { return time.Now().Add(writeWait) }

func (s *Socket) writePump(ctx context.Context, ws *websocket.Conn, send <-chan core.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-send:
			if !ok {
				return
			}
			if err := ws.SetWriteDeadline(deadline()); err != nil {
				s.logger.Error().Err(err).Msg("writePump set deadline")
				go s.drop(0)
				return
			}
			if err := ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.logger.Error().Err(err).Msg("writePump write error")
				go s.drop(0)
				return
			}
		}
	}
}

func (s *Socket) readPump(ctx context.Context, ws *websocket.Conn) {
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				s.logger.Warn().Err(err).Msg("readPump read error")
				go s.drop(0)
			}
			return
		}
		s.handleMessage(kind, data)
	}
}

func (s *Socket) handleMessage(kind int, data []byte) {
	var (
		ev  events.Event
		err error
	)
	if kind == websocket.BinaryMessage {
		ev, err = decodeFrame(s.schema, data)
	} else {
		ev, err = decodeMessage(data)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("bad socket message")
		return
	}
	if !events.Known(ev.Type) {
		s.logger.Debug().Str("event_type", string(ev.Type)).Msg("unknown socket event type")
	}
	s.emit(ev)
}

// decodeMessage turns a JSON control message into an event keyed by its
// event_type.
func decodeMessage(data []byte) (events.Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return events.Event{}, err
	}
	typ, _ := raw["event_type"].(string)
	if typ == "" {
		return events.Event{}, errNoEventType
	}

	t := events.Type(typ)
	if t == events.UserSilence {
		d := events.SilenceDetail{Raw: raw}
		if n, ok := raw["silence_times"].(float64); ok {
			d.SilenceTimes = int(n)
		}
		d.CountDown, _ = raw["count_down"].(float64)
		return events.Event{Type: t, Detail: d}, nil
	}

	d := events.MessageDetail{Raw: raw}
	d.TaskID, _ = raw["task_id"].(string)
	d.Message, _ = raw["message"].(string)
	if d.Message == "" {
		d.Message, _ = raw["text"].(string)
	}
	return events.Event{Type: t, Detail: d}, nil
}

// decodeFrame republishes recognized speech carried in binary frames.
func decodeFrame(schema *frames.Schema, data []byte) (events.Event, error) {
	if schema == nil {
		return events.Event{}, errNoSchema
	}
	f, err := schema.Decode(data)
	if err != nil {
		return events.Event{}, err
	}
	switch f.Kind {
	case frames.KindTranscription, frames.KindText:
		return events.Event{
			Type:   events.UserTalkingMessage,
			Detail: events.MessageDetail{Message: f.Text},
		}, nil
	}
	return events.Event{}, errUnhandledFrame
}
