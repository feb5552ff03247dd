package playback

import (
	"context"
	"math/rand/v2"
	"slices"

	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/cockroachdb/errors"
)

// deps is what every handler in this package is built from
type deps struct {
	store     *session.Store
	player    Player
	transport Transport
	recorder  Recorder
	locks     *Locks
}

// Controller executes user commands against guild sessions
type Controller struct {
	deps
}

// NewController returns a Controller. locks must be shared with the
// OccupancyMonitor and LifecycleManager of the same store.
func NewController(store *session.Store, player Player, transport Transport, locks *Locks) *Controller {
	return &Controller{deps{
		store:     store,
		player:    player,
		transport: transport,
		locks:     locks,
	}}
}

// WithRecorder sets the recorder notified of started tracks
func (c *Controller) WithRecorder(r Recorder) *Controller {
	c.recorder = r
	return c
}

// Summon connects the bot to channelID and opens an idle session.
// It is a no-op when the guild already has a session in that channel.
func (c *Controller) Summon(ctx context.Context, guildID, channelID string) error {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	if rec, ok := c.store.Get(guildID); ok {
		if rec.CurrentChannel != channelID {
			return ErrOtherChannel
		}
		return nil
	}

	if err := c.transport.Join(ctx, guildID, channelID); err != nil {
		if leaveErr := c.transport.Leave(ctx, guildID); leaveErr != nil {
			log.WithContext(ctx).WithError(leaveErr).Warn("Failed to clean up after failed join")
		}
		return errors.Wrapf(err, "joining channel %s", channelID)
	}

	err := c.store.Reserve(guildID, session.NewRecord(channelID))
	if errors.Is(err, session.ErrAlreadyExists) {
		log.WithContext(ctx).Debug("Session was opened by the reconnect handler")
		return nil
	}
	return err
}

// Play starts the first item of src, or queues src behind the live track
func (c *Controller) Play(ctx context.Context, guildID string, src Source) (PlayResult, error) {
	if len(src.Items) == 0 {
		return PlayResult{}, ErrEmptySource
	}

	unlock := c.locks.Lock(guildID)
	defer unlock()

	rec, ok := c.store.Get(guildID)
	if !ok {
		return PlayResult{}, ErrSessionMissing
	}

	result := PlayResult{
		Item:     src.Items[0],
		Playlist: src.Playlist,
	}

	if rec.IsPlaying {
		var added []session.QueueItem
		err := c.store.Modify(guildID, func(r *session.Record) error {
			before := len(r.Queue)
			*r, _ = r.Enqueue(src.Items...)
			added = r.Queue[before:]
			return nil
		})
		if err != nil {
			return PlayResult{}, errors.Wrap(err, "queueing items")
		}
		if len(added) == 0 {
			result.Status = StatusDuplicate
			return result, nil
		}
		result.Status = StatusQueued
		result.Item = added[0]
		result.Count = len(added)
		log.WithContext(ctx).WithFields(log.Fields{"count": len(added)}).Info("Queued items behind the live track")
		return result, nil
	}

	// A paused track is replaced. Its advancer sees a different live track and stays quiet.
	if rec.CurrentTrack != nil {
		if err := rec.CurrentTrack.Stop(); err != nil {
			log.WithContext(ctx).WithError(err).Warn("Failed to stop paused track")
		}
	}

	first := src.Items[0]
	rest := session.WithoutSource(src.Items[1:], first.ExternalID)
	handle, err := c.start(ctx, guildID, first)
	if err != nil {
		log.WithContext(ctx).WithError(err).Error("Could not play the requested resource, resetting session")
		teardown(ctx, c.store, c.transport, guildID)
		return PlayResult{}, errors.Mark(err, ErrPlaybackFailed)
	}

	err = c.store.Modify(guildID, func(r *session.Record) error {
		*r = r.Playing(handle, first, append(slices.Clone(r.Queue), rest...))
		return nil
	})
	if err != nil {
		_ = handle.Stop()
		return PlayResult{}, errors.Wrap(err, "committing started track")
	}
	c.recordStart(ctx, guildID, first)

	result.Status = StatusPlaying
	result.Count = 1 + len(rest)
	if src.IsPlaylist() && len(rest) > 0 {
		result.Status = StatusPlayAndQueued
	}
	return result, nil
}

// Pause pauses the live track
func (c *Controller) Pause(ctx context.Context, guildID string) (Result, error) {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	rec, ok := c.store.Get(guildID)
	if !ok {
		return Result{}, ErrSessionMissing
	}
	switch {
	case rec.CurrentTrack == nil:
		return Result{Outcome: OutcomeNothingLoaded}, nil
	case !rec.IsPlaying:
		return Result{Outcome: OutcomeAlreadyPaused}, nil
	}

	if err := rec.CurrentTrack.Pause(); err != nil {
		return Result{}, errors.Wrap(err, "pausing track")
	}
	err := c.store.Modify(guildID, func(r *session.Record) error {
		r.IsPlaying = false
		return nil
	})
	return Result{Outcome: OutcomeDone, Item: rec.NowPlaying}, err
}

// Resume continues a paused track
func (c *Controller) Resume(ctx context.Context, guildID string) (Result, error) {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	rec, ok := c.store.Get(guildID)
	if !ok {
		return Result{}, ErrSessionMissing
	}
	switch {
	case rec.CurrentTrack == nil:
		return Result{Outcome: OutcomeNothingLoaded}, nil
	case rec.IsPlaying:
		return Result{Outcome: OutcomeNotPaused}, nil
	}

	if err := rec.CurrentTrack.Resume(); err != nil {
		return Result{}, errors.Wrap(err, "resuming track")
	}
	err := c.store.Modify(guildID, func(r *session.Record) error {
		r.IsPlaying = true
		return nil
	})
	return Result{Outcome: OutcomeDone, Item: rec.NowPlaying}, err
}

// Seek moves the live track to an absolute or relative timestamp
func (c *Controller) Seek(ctx context.Context, guildID, arg string) (Result, error) {
	ts, err := ParseTimestamp(arg)
	if err != nil {
		return Result{Outcome: OutcomeInvalidTimestamp}, nil
	}

	unlock := c.locks.Lock(guildID)
	defer unlock()

	rec, ok := c.store.Get(guildID)
	if !ok {
		return Result{}, ErrSessionMissing
	}
	if !rec.IsPlaying || rec.CurrentTrack == nil {
		return Result{Outcome: OutcomeNothingPlaying}, nil
	}

	length, known := rec.CurrentTrack.Duration()
	target, inRange := ts.Target(rec.CurrentTrack.Position(), length, known)
	if !inRange {
		return Result{Outcome: OutcomeOutOfRange, Item: rec.NowPlaying}, nil
	}

	if err := rec.CurrentTrack.SeekTo(target); err != nil {
		return Result{}, errors.Wrapf(err, "seeking to %s", target)
	}
	return Result{Outcome: OutcomeDone, Item: rec.NowPlaying, Position: target}, nil
}

// Skip stops the live track. The track's advancer starts whatever is queued next.
func (c *Controller) Skip(ctx context.Context, guildID string) (Result, error) {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	rec, ok := c.store.Get(guildID)
	if !ok {
		return Result{}, ErrSessionMissing
	}
	if rec.CurrentTrack == nil {
		return Result{Outcome: OutcomeNothingPlaying}, nil
	}

	if err := rec.CurrentTrack.Stop(); err != nil {
		return Result{}, errors.Wrap(err, "stopping track")
	}

	res := Result{Outcome: OutcomeDone}
	if len(rec.Queue) > 0 {
		next := rec.Queue[0]
		res.Item = &next
	}
	return res, nil
}

// Stop ends playback, leaves the voice channel and discards the session
func (c *Controller) Stop(ctx context.Context, guildID string) (Result, error) {
	return c.Leave(ctx, guildID)
}

// Leave disconnects from the voice channel and discards the session
func (c *Controller) Leave(ctx context.Context, guildID string) (Result, error) {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	if _, ok := c.store.Get(guildID); !ok {
		return Result{}, ErrSessionMissing
	}
	teardown(ctx, c.store, c.transport, guildID)
	return Result{Outcome: OutcomeDone}, nil
}

// Clear drops the first count queued items. count <= 0 clears the whole queue.
func (c *Controller) Clear(ctx context.Context, guildID string, count int) (Result, error) {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	res := Result{Outcome: OutcomeDone}
	err := c.store.Modify(guildID, func(r *session.Record) error {
		if len(r.Queue) == 0 {
			res.Outcome = OutcomeQueueEmpty
			return nil
		}
		n := count
		if n <= 0 || n > len(r.Queue) {
			n = len(r.Queue)
		}
		r.Queue = slices.Clone(r.Queue[n:])
		res.Count = n
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return Result{}, ErrSessionMissing
	}
	return res, err
}

// Shuffle randomly permutes the queue
func (c *Controller) Shuffle(ctx context.Context, guildID string) (Result, error) {
	unlock := c.locks.Lock(guildID)
	defer unlock()

	res := Result{Outcome: OutcomeDone}
	err := c.store.Modify(guildID, func(r *session.Record) error {
		if len(r.Queue) == 0 {
			res.Outcome = OutcomeQueueEmpty
			return nil
		}
		rand.Shuffle(len(r.Queue), func(i, j int) {
			r.Queue[i], r.Queue[j] = r.Queue[j], r.Queue[i]
		})
		res.Count = len(r.Queue)
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return Result{}, ErrSessionMissing
	}
	return res, err
}

// Snapshot returns the guild's current record
func (c *Controller) Snapshot(guildID string) (session.Record, bool) {
	return c.store.Get(guildID)
}

// Shutdown stops every live track and leaves every voice channel
func (c *Controller) Shutdown(ctx context.Context) {
	for guildID, rec := range c.store.Drain() {
		if rec.CurrentTrack != nil {
			if err := rec.CurrentTrack.Stop(); err != nil {
				log.WithError(err).Warn("Failed to stop track on shutdown")
			}
		}
		if err := c.transport.Leave(ctx, guildID); err != nil {
			log.WithError(err).Warn("Failed to leave voice channel on shutdown")
		}
	}
}

// start plays item and binds a fresh advancer to the returned handle
func (d deps) start(ctx context.Context, guildID string, item session.QueueItem) (session.TrackHandle, error) {
	handle, err := d.player.Play(ctx, guildID, item)
	if err != nil {
		return nil, errors.Wrapf(err, "playing %s", item.URL)
	}
	if err := newAdvancer(d, guildID, handle).attach(); err != nil {
		_ = handle.Stop()
		return nil, errors.Wrap(err, "registering track end listener")
	}
	return handle, nil
}

func (d deps) recordStart(ctx context.Context, guildID string, item session.QueueItem) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.TrackStarted(ctx, guildID, item); err != nil {
		log.WithContext(ctx).WithError(err).Warn("Failed to record started track")
	}
}

// teardown stops the live track, leaves the channel and removes the record. Every step is
// best effort; the next event re-evaluates from whatever state is left.
func teardown(ctx context.Context, store *session.Store, transport Transport, guildID string) {
	rec, ok := store.Get(guildID)
	if ok && rec.CurrentTrack != nil {
		if err := rec.CurrentTrack.Stop(); err != nil {
			log.WithContext(ctx).WithError(err).Warn("Failed to stop track during teardown")
		}
	}
	if err := transport.Leave(ctx, guildID); err != nil {
		log.WithContext(ctx).WithError(err).Warn("Failed to leave voice channel")
	}
	if err := store.Remove(guildID); err != nil {
		log.WithContext(ctx).WithError(err).Warn("Failed to remove session")
	}
}
