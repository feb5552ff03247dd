package session

import (
	"slices"
	"time"
)

// TrackHandle is the control surface of a track started by the player.
// The session only references it, the player owns the underlying stream.
type TrackHandle interface {
	Pause() error
	Resume() error
	Stop() error
	SeekTo(d time.Duration) error
	Position() time.Duration
	Duration() (time.Duration, bool)
	// OnEnd subscribes fn to the end of the track. fn runs once, on its own goroutine.
	OnEnd(fn func()) error
}

type QueueItem struct {
	Title       string        // Video title
	ChannelName string        // Uploader display name
	URL         string        // Watch URL handed to the player
	ExternalID  string        // Platform video ID
	Duration    time.Duration // Zero when unknown
}

// Record is the session state of a single guild
type Record struct {
	CurrentChannel string      // Voice channel the bot occupies, empty if none
	IsPlaying      bool        // True while a track is audible
	CurrentTrack   TrackHandle // Live track, nil when idle
	NowPlaying     *QueueItem  // Source of CurrentTrack
	Queue          []QueueItem // Upcoming items in play order
}

// NewRecord returns an idle record bound to channelID
func NewRecord(channelID string) Record {
	return Record{
		CurrentChannel: channelID,
		Queue:          []QueueItem{},
	}
}

// Equal reports whether both records reference the same voice channel.
// Playback state is ignored; use it for diagnostics only.
func (r Record) Equal(other Record) bool {
	return r.CurrentChannel == other.CurrentChannel
}

// Clone returns a copy that shares no mutable state with r
func (r Record) Clone() Record {
	c := r
	c.Queue = slices.Clone(r.Queue)
	if c.Queue == nil {
		c.Queue = []QueueItem{}
	}
	if r.NowPlaying != nil {
		np := *r.NowPlaying
		c.NowPlaying = &np
	}
	return c
}

// Idle clears the current track, keeping the channel and queue
func (r Record) Idle() Record {
	r.IsPlaying = false
	r.CurrentTrack = nil
	r.NowPlaying = nil
	return r
}

// Playing sets handle as the live track for item and drops any queued duplicates of item
func (r Record) Playing(handle TrackHandle, item QueueItem, queue []QueueItem) Record {
	r.IsPlaying = true
	r.CurrentTrack = handle
	r.NowPlaying = &item
	r.Queue = WithoutSource(queue, item.ExternalID)
	return r
}

// Enqueue appends items, skipping any that duplicate the playing item
func (r Record) Enqueue(items ...QueueItem) (Record, int) {
	queue := slices.Clone(r.Queue)
	added := 0
	for _, item := range items {
		if r.NowPlaying != nil && item.ExternalID != "" && item.ExternalID == r.NowPlaying.ExternalID {
			continue
		}
		queue = append(queue, item)
		added++
	}
	r.Queue = queue
	return r, added
}

// WithoutSource returns queue minus items whose ExternalID equals id
func WithoutSource(queue []QueueItem, id string) []QueueItem {
	out := make([]QueueItem, 0, len(queue))
	for _, item := range queue {
		if id != "" && item.ExternalID == id {
			continue
		}
		out = append(out, item)
	}
	return out
}
