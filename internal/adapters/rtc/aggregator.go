package rtc

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/events"
)

// TrackAggregator folds subscribed tracks into one composite stream and
// publishes it once, the first time it holds both audio and video. Later
// subscriptions and removals mutate the same stream; there is no way back
// from ready.
type TrackAggregator struct {
	sid  core.SessionID
	emit func(events.Event)

	mu     sync.Mutex
	stream *core.MediaStream
	ready  bool
}

func NewTrackAggregator(sid core.SessionID, emit func(events.Event)) *TrackAggregator {
	return &TrackAggregator{
		sid:    sid,
		emit:   emit,
		stream: core.NewMediaStream(string(sid)),
	}
}

func (a *TrackAggregator) Subscribed(t core.Track) {
	if t.Kind() != core.TrackKindAudio && t.Kind() != core.TrackKindVideo {
		return
	}
	a.mu.Lock()
	a.stream.AddTrack(t)
	fire := !a.ready && a.stream.Complete()
	if fire {
		a.ready = true
	}
	a.mu.Unlock()

	log.Debug().Str("module", "webrtc").Str("sid", string(a.sid)).Str("kind", string(t.Kind())).Str("track_id", t.ID()).Bool("ready", fire).Msg("track subscribed")
	if fire {
		a.emit(events.Event{Type: events.StreamReady, Detail: events.StreamReadyDetail{Stream: a.stream}})
	}
}

func (a *TrackAggregator) Unsubscribed(id string) {
	a.mu.Lock()
	removed := a.stream.RemoveTrack(id)
	a.mu.Unlock()
	if removed {
		log.Debug().Str("module", "webrtc").Str("sid", string(a.sid)).Str("track_id", id).Msg("track unsubscribed")
	}
}

func (a *TrackAggregator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

func (a *TrackAggregator) Stream() *core.MediaStream { return a.stream }
