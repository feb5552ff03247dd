package playback

import (
	"context"

	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/cockroachdb/errors"
)

// LifecycleManager keeps session records in step with voice connections the
// transport dropped or re-established on its own.
type LifecycleManager struct {
	deps
}

func NewLifecycleManager(store *session.Store, transport Transport, locks *Locks) *LifecycleManager {
	return &LifecycleManager{deps{store: store, transport: transport, locks: locks}}
}

// Disconnected discards the guild's session after an unexpected disconnect.
// Nothing happens if the session is already gone, or if a new session was opened
// while the event waited for the guild lock, as when a leave is followed by a play.
func (l *LifecycleManager) Disconnected(ctx context.Context, guildID string) {
	seen := l.store.Generation(guildID)

	unlock := l.locks.Lock(guildID)
	defer unlock()

	if _, ok := l.store.Get(guildID); !ok {
		return
	}
	if l.store.Generation(guildID) != seen {
		log.WithContext(ctx).Debug("Ignoring disconnect of a previous session")
		return
	}
	log.WithContext(ctx).Info("Voice connection dropped, discarding session")
	teardown(ctx, l.store, l.transport, guildID)
}

// Reconnected rebuilds a minimal idle session when the bot's voice connection came
// back in channelID without one. A session moved to an empty channel is torn down.
func (l *LifecycleManager) Reconnected(ctx context.Context, guildID, channelID string) {
	unlock := l.locks.Lock(guildID)
	defer unlock()

	if connected, ok := l.transport.Connected(guildID); !ok || connected != channelID {
		log.WithContext(ctx).WithFields(log.Fields{"channel_id": channelID}).Debug("Ignoring stale reconnect event")
		return
	}

	rec, ok := l.store.Get(guildID)
	if !ok {
		err := l.store.Reserve(guildID, session.NewRecord(channelID))
		if err != nil && !errors.Is(err, session.ErrAlreadyExists) {
			log.WithContext(ctx).WithError(err).Warn("Failed to rebuild session")
			return
		}
		log.WithContext(ctx).WithFields(log.Fields{"channel_id": channelID}).Info("Rebuilt session after reconnect")
		return
	}

	moved := session.NewRecord(channelID)
	if rec.Equal(moved) {
		return
	}
	log.WithContext(ctx).WithFields(log.Fields{
		"from_channel_id": rec.CurrentChannel,
		"channel_id":      channelID,
	}).Info("Bot was moved to another voice channel")

	err := l.store.Modify(guildID, func(r *session.Record) error {
		r.CurrentChannel = channelID
		return nil
	})
	if err != nil {
		log.WithContext(ctx).WithError(err).Warn("Failed to update session channel")
		return
	}
	// Nobody may be listening in the channel the bot was dragged into
	l.leaveIfEmpty(ctx, guildID, channelID)
}
