package playback

import (
	"testing"
	"time"

	"Nocturne/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_Disconnected(t *testing.T) {
	f := playingWithQueue(t, "a", "b")
	track := f.player.last()
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)

	lifecycle.Disconnected(ctx, "guild-1")

	_, ok := f.store.Get("guild-1")
	assert.False(t, ok)
	assert.True(t, track.isStopped())
	assert.Equal(t, 1, f.transport.leaveCount())

	lifecycle.Disconnected(ctx, "guild-1")
	assert.Equal(t, 1, f.transport.leaveCount())

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.player.started(), 1)
}

func TestLifecycle_ReconnectedRebuildsSession(t *testing.T) {
	f := newFixture()
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)
	require.NoError(t, f.transport.Join(ctx, "guild-1", "voice-3"))

	lifecycle.Reconnected(ctx, "guild-1", "voice-3")

	rec, ok := f.store.Get("guild-1")
	require.True(t, ok)
	assert.Equal(t, "voice-3", rec.CurrentChannel)
	assert.False(t, rec.IsPlaying)
	assert.Nil(t, rec.CurrentTrack)
	assert.Empty(t, rec.Queue)
}

func TestLifecycle_ReconnectedKeepsExistingSession(t *testing.T) {
	f := playingWithQueue(t, "a", "b")
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)

	lifecycle.Reconnected(ctx, "guild-1", "voice-1")

	rec := f.record()
	assert.True(t, rec.IsPlaying)
	assert.Equal(t, []string{"b"}, queueIDs(rec))
}

func TestLifecycle_ReconnectedAfterMove(t *testing.T) {
	f := playingWithQueue(t, "a")
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)
	require.NoError(t, f.transport.Join(ctx, "guild-1", "voice-2"))
	f.transport.setListeners("voice-2", 1)

	lifecycle.Reconnected(ctx, "guild-1", "voice-2")

	rec := f.record()
	assert.Equal(t, "voice-2", rec.CurrentChannel)
	assert.True(t, rec.IsPlaying)
	assert.Zero(t, f.transport.leaveCount())
}

func TestLifecycle_MovedIntoEmptyChannel(t *testing.T) {
	f := playingWithQueue(t, "a")
	track := f.player.last()
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)
	require.NoError(t, f.transport.Join(ctx, "guild-1", "voice-2"))

	lifecycle.Reconnected(ctx, "guild-1", "voice-2")

	_, ok := f.store.Get("guild-1")
	assert.False(t, ok)
	assert.True(t, track.isStopped())
	assert.Equal(t, 1, f.transport.leaveCount())
}

// waiters reports how many goroutines hold or wait on the guild's lock
func waiters(l *Locks, guildID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gl, ok := l.guilds[guildID]; ok {
		return gl.refs
	}
	return 0
}

func TestLifecycle_DisconnectOfPreviousSessionIgnored(t *testing.T) {
	f := playingWithQueue(t, "a")
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)

	// A leave followed by a summon holds the guild while the disconnect of the old connection waits
	unlock := f.locks.Lock("guild-1")
	done := make(chan struct{})
	go func() {
		lifecycle.Disconnected(ctx, "guild-1")
		close(done)
	}()
	require.Eventually(t, func() bool { return waiters(f.locks, "guild-1") == 2 }, time.Second, time.Millisecond)

	teardown(ctx, f.store, f.transport, "guild-1")
	require.NoError(t, f.transport.Join(ctx, "guild-1", "voice-1"))
	require.NoError(t, f.store.Reserve("guild-1", session.NewRecord("voice-1")))
	unlock()
	<-done

	rec, ok := f.store.Get("guild-1")
	require.True(t, ok)
	assert.Equal(t, "voice-1", rec.CurrentChannel)
	channel, connected := f.transport.Connected("guild-1")
	assert.True(t, connected)
	assert.Equal(t, "voice-1", channel)
	assert.Equal(t, 1, f.transport.leaveCount())
}

func TestLifecycle_StaleReconnectIgnored(t *testing.T) {
	f := newFixture()
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)

	lifecycle.Reconnected(ctx, "guild-1", "voice-1")

	_, ok := f.store.Get("guild-1")
	assert.False(t, ok)
}

func TestLifecycle_DisconnectRacingCommands(t *testing.T) {
	f := playingWithQueue(t, "a", "b", "c")
	lifecycle := NewLifecycleManager(f.store, f.transport, f.locks)

	done := make(chan struct{})
	go func() {
		lifecycle.Disconnected(ctx, "guild-1")
		close(done)
	}()
	_, _ = f.ctrl.Skip(ctx, "guild-1")
	<-done

	time.Sleep(20 * time.Millisecond)
	_, ok := f.store.Get("guild-1")
	assert.False(t, ok)
	for _, track := range f.player.started() {
		if !track.isStopped() {
			// A track started by the skip before the disconnect landed must have been stopped by teardown
			t.Errorf("track %s still live without a session", track.item.ExternalID)
		}
	}
}

var _ session.TrackHandle = (*fakeTrack)(nil)
