// Package player plays queue items into Discord voice connections
package player

import (
	"context"
	"time"

	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

var ErrNotConnected = errors.New("bot has no voice connection in guild")

// StreamLocator finds the direct media URL of an item
type StreamLocator interface {
	StreamURL(ctx context.Context, item session.QueueItem) (string, error)
}

type Options struct {
	FFmpeg       string        // ffmpeg binary
	ReadyTimeout time.Duration // How long to wait for a voice connection to become ready
}

// Player starts AudioTracks on the bot's existing voice connections
type Player struct {
	session *discordgo.Session
	streams StreamLocator
	opts    Options
}

func New(s *discordgo.Session, streams StreamLocator, opts Options) *Player {
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}
	return &Player{session: s, streams: streams, opts: opts}
}

// Play starts item in the guild's voice connection. The returned track streams on its own goroutine.
func (p *Player) Play(ctx context.Context, guildID string, item session.QueueItem) (session.TrackHandle, error) {
	vc, err := p.connection(ctx, guildID)
	if err != nil {
		return nil, err
	}

	source, err := p.streams.StreamURL(ctx, item)
	if err != nil {
		return nil, errors.Wrapf(err, "locating stream for %s", item.ExternalID)
	}

	track := newAudioTrack(item, source, p.opts.FFmpeg)
	pcm, err := track.start(0)
	if err != nil {
		return nil, err
	}
	go track.run(vc, pcm)

	log.WithContext(ctx).WithFields(log.Fields{"video_id": item.ExternalID, "title": item.Title}).Info("Started track")
	return track, nil
}

// connection returns the guild's voice connection once it is ready
func (p *Player) connection(ctx context.Context, guildID string) (*discordgo.VoiceConnection, error) {
	p.session.RLock()
	vc, ok := p.session.VoiceConnections[guildID]
	p.session.RUnlock()
	if !ok || vc == nil {
		return nil, errors.Wrapf(ErrNotConnected, "guild %s", guildID)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return vc, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.New("voice connection never became ready")
		case <-ticker.C:
		}
	}
}
