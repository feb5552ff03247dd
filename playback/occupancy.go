package playback

import (
	"context"

	"Nocturne/session"

	"github.com/Strum355/log"
)

// OccupancyMonitor tears a session down once no listeners remain in its voice channel
type OccupancyMonitor struct {
	deps
}

func NewOccupancyMonitor(store *session.Store, transport Transport, locks *Locks) *OccupancyMonitor {
	return &OccupancyMonitor{deps{store: store, transport: transport, locks: locks}}
}

// MembershipChanged re-counts the listeners of the guild's session channel.
// It reports whether the session was torn down.
func (m *OccupancyMonitor) MembershipChanged(ctx context.Context, guildID string) bool {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	rec, ok := m.store.Get(guildID)
	if !ok || rec.CurrentChannel == "" {
		return false
	}

	return m.leaveIfEmpty(ctx, guildID, rec.CurrentChannel)
}

// leaveIfEmpty tears the session down when channelID has no listeners left.
// The caller holds the guild lock.
func (d deps) leaveIfEmpty(ctx context.Context, guildID, channelID string) bool {
	listeners, err := d.transport.Occupancy(guildID, channelID)
	if err != nil {
		log.WithContext(ctx).WithError(err).Warn("Failed to count voice channel members")
		return false
	}
	if listeners > 0 {
		return false
	}

	log.WithContext(ctx).WithFields(log.Fields{"channel_id": channelID}).Info("Voice channel empty, leaving")
	teardown(ctx, d.store, d.transport, guildID)
	return true
}
