package core

import "sync"

// MediaStream is the composite stream handed to the host. It is mutated in
// place as tracks come and go.
type MediaStream struct {
	id     string
	mu     sync.RWMutex
	tracks []Track
}

func NewMediaStream(id string) *MediaStream {
	return &MediaStream{id: id}
}

func (s *MediaStream) ID() string { return s.id }

// AddTrack appends t unless a track with the same id is already present.
func (s *MediaStream) AddTrack(t Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.tracks {
		if cur.ID() == t.ID() {
			return false
		}
	}
	s.tracks = append(s.tracks, t)
	return true
}

func (s *MediaStream) RemoveTrack(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.tracks {
		if cur.ID() == id {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			return true
		}
	}
	return false
}

func (s *MediaStream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *MediaStream) HasKind(k TrackKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tracks {
		if t.Kind() == k {
			return true
		}
	}
	return false
}

// Complete reports whether both an audio and a video track are present.
func (s *MediaStream) Complete() bool {
	return s.HasKind(TrackKindAudio) && s.HasKind(TrackKindVideo)
}
