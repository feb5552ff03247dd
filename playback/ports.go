// Package playback coordinates what plays in each guild. Commands, track-end callbacks and
// voice transport events all mutate session records through the same guild-scoped protocol:
// take the guild lock, re-read the record, call out, commit.
package playback

import (
	"context"

	"Nocturne/session"
)

// Player starts tracks in a guild's voice connection
type Player interface {
	Play(ctx context.Context, guildID string, item session.QueueItem) (session.TrackHandle, error)
}

// Transport is the voice gateway as seen by the coordinator
type Transport interface {
	Join(ctx context.Context, guildID, channelID string) error
	Leave(ctx context.Context, guildID string) error
	// Occupancy counts the non-bot members in a voice channel
	Occupancy(guildID, channelID string) (int, error)
	// Connected returns the channel the bot is connected to in the guild, if any
	Connected(guildID string) (string, bool)
}

// Resolver turns a URL or search query into playable items
type Resolver interface {
	Resolve(ctx context.Context, query string) (Source, error)
}

// Recorder is notified of every track that starts playing
type Recorder interface {
	TrackStarted(ctx context.Context, guildID string, item session.QueueItem) error
}

// Source is a resolved play request. Playlist is set when Items came from a list.
type Source struct {
	Playlist *session.QueueItem
	Items    []session.QueueItem
}

// IsPlaylist reports whether the source carries playlist metadata
func (s Source) IsPlaylist() bool {
	return s.Playlist != nil
}
