package playback

import (
	"context"
	"fmt"
	"sync"

	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/cockroachdb/errors"
)

// advancer starts the next queued item when the track it is bound to ends.
// Every started track gets a fresh advancer, so the chain is exactly as long as the queue.
type advancer struct {
	deps
	guildID string
	handle  session.TrackHandle
	once    sync.Once
}

func newAdvancer(d deps, guildID string, handle session.TrackHandle) *advancer {
	return &advancer{deps: d, guildID: guildID, handle: handle}
}

func (a *advancer) attach() error {
	return a.handle.OnEnd(a.fire)
}

// fire handles the end of the bound track. Repeated end notifications are ignored.
func (a *advancer) fire() {
	a.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{"guild_id": a.guildID}).WithError(fmt.Errorf("%v", r)).Error("Recovered from panic in queue advance")
			}
		}()

		ctx := context.WithValue(context.Background(), log.Key, log.Fields{
			"guild_id": a.guildID,
			"trigger":  "track_end",
		})
		a.advance(ctx)
	})
}

func (a *advancer) advance(ctx context.Context) {
	unlock := a.locks.Lock(a.guildID)
	defer unlock()

	rec, ok := a.store.Get(a.guildID)
	if !ok {
		log.WithContext(ctx).Debug("Session already torn down")
		return
	}
	// The track was replaced or the session went idle since this advancer was bound
	if rec.CurrentTrack != a.handle {
		return
	}

	queue := rec.Queue
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		handle, err := a.start(ctx, a.guildID, next)
		if err != nil {
			log.WithContext(ctx).WithError(err).Warn("Skipping queued item that failed to start")
			continue
		}

		err = a.store.Modify(a.guildID, func(r *session.Record) error {
			*r = r.Playing(handle, next, queue)
			return nil
		})
		if err != nil {
			_ = handle.Stop()
			log.WithContext(ctx).WithError(err).Warn("Session vanished while advancing")
			return
		}
		a.recordStart(ctx, a.guildID, next)
		log.WithContext(ctx).WithFields(log.Fields{"title": next.Title}).Info("Advanced to next queued item")
		return
	}

	err := a.store.Modify(a.guildID, func(r *session.Record) error {
		*r = r.Idle()
		r.Queue = []session.QueueItem{}
		return nil
	})
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		log.WithContext(ctx).WithError(err).Warn("Failed to mark session idle")
		return
	}
	log.WithContext(ctx).Info("Queue exhausted, session idle")
}
