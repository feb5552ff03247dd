package playback

import (
	"time"

	"Nocturne/session"

	"github.com/cockroachdb/errors"
)

var (
	ErrSessionMissing = errors.New("no active session in guild")
	ErrPlaybackFailed = errors.New("player could not start the track")
	ErrOtherChannel   = errors.New("bot is connected to another voice channel")
	ErrEmptySource    = errors.New("source has no playable items")
)

type PlayStatus int

const (
	StatusPlaying       PlayStatus = iota // First item started, nothing else queued
	StatusQueued                          // Items appended behind the live track
	StatusPlayAndQueued                   // First list item started, the rest queued
	StatusDuplicate                       // Every item was already playing, nothing changed
)

func (s PlayStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusQueued:
		return "queued"
	case StatusPlayAndQueued:
		return "play_and_queued"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// PlayResult describes what a play request did
type PlayResult struct {
	Status   PlayStatus
	Item     session.QueueItem  // Started item, or first queued item
	Playlist *session.QueueItem // Set for list sources
	Count    int                // Items started or queued, duplicates of the live track excluded
}

// Outcome is the user-visible result of a command. Anything other than OutcomeDone
// means a precondition did not hold and nothing changed.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeAlreadyPaused
	OutcomeNotPaused
	OutcomeNothingLoaded
	OutcomeNothingPlaying
	OutcomeOutOfRange
	OutcomeInvalidTimestamp
	OutcomeQueueEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeAlreadyPaused:
		return "already_paused"
	case OutcomeNotPaused:
		return "not_paused"
	case OutcomeNothingLoaded:
		return "nothing_loaded"
	case OutcomeNothingPlaying:
		return "nothing_playing"
	case OutcomeOutOfRange:
		return "out_of_range"
	case OutcomeInvalidTimestamp:
		return "invalid_timestamp"
	case OutcomeQueueEmpty:
		return "queue_empty"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome  Outcome
	Item     *session.QueueItem // Now playing for seek, next up for skip
	Position time.Duration      // Seek target
	Count    int                // Items removed by clear
}
