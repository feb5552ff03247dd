package yt

import (
	"context"
	"time"

	"Nocturne/playback"
	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// lookupTimeout bounds a shared lookup once it no longer follows any caller's context
const lookupTimeout = 30 * time.Second

type Options struct {
	CacheTTL  time.Duration // Metadata lifetime in redis
	RateLimit float64       // Youtube lookups per second
	YtDlp     string        // yt-dlp binary
}

// Resolver turns play arguments into queue items. Identical lookups in flight are
// merged and cache misses are throttled.
type Resolver struct {
	source  source
	cache   Cache
	limiter *rate.Limiter
	group   singleflight.Group
}

// NewResolver returns a Resolver backed by youtube and a redis metadata cache
func NewResolver(rdb *redis.Client, opts Options) *Resolver {
	return newResolver(newClient(opts.YtDlp), NewRedisCache(rdb, opts.CacheTTL), opts.RateLimit)
}

func newResolver(src source, cache Cache, perSecond float64) *Resolver {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Resolver{
		source:  src,
		cache:   cache,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Resolve looks up a video link, playlist link or search terms
func (r *Resolver) Resolve(ctx context.Context, raw string) (playback.Source, error) {
	q, err := ParseQuery(raw)
	if err != nil {
		return playback.Source{}, err
	}

	if q.Kind == KindPlaylist {
		listing, err := r.playlist(ctx, q)
		if err == nil && len(listing.Items) > 0 {
			header := listing.Header
			return playback.Source{Playlist: &header, Items: listing.Items}, nil
		}
		// A watch link inside a list still plays its video when the list is unavailable
		if q.VideoID == "" {
			if err == nil {
				err = errors.Wrapf(ErrNotFound, "playlist %s is empty", q.PlaylistID)
			}
			return playback.Source{}, err
		}
		log.WithContext(ctx).WithError(err).Warn("Playlist lookup failed, falling back to video")
		q = Query{Kind: KindVideo, VideoID: q.VideoID}
	}

	item, err := r.item(ctx, q)
	if err != nil {
		return playback.Source{}, err
	}
	return playback.Source{Items: []session.QueueItem{item}}, nil
}

// StreamURL returns a direct media URL for item. These expire, so they are not cached.
func (r *Resolver) StreamURL(ctx context.Context, item session.QueueItem) (string, error) {
	v, err := r.do(ctx, "ytstream:"+item.ExternalID, func(ctx context.Context) (any, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return r.source.StreamURL(ctx, item.ExternalID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) item(ctx context.Context, q Query) (session.QueueItem, error) {
	key := q.cacheKey()
	v, err := r.do(ctx, key, func(ctx context.Context) (any, error) {
		var cached session.QueueItem
		if r.load(ctx, key, &cached) {
			return cached, nil
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return session.QueueItem{}, err
		}

		var item session.QueueItem
		var err error
		if q.Kind == KindVideo {
			item, err = r.source.Video(ctx, q.VideoID)
		} else {
			item, err = r.source.Search(ctx, q.Terms)
		}
		if err != nil {
			return session.QueueItem{}, err
		}
		r.store(ctx, key, item)
		if q.Kind == KindSearch {
			r.store(ctx, Query{Kind: KindVideo, VideoID: item.ExternalID}.cacheKey(), item)
		}
		return item, nil
	})
	if err != nil {
		return session.QueueItem{}, err
	}
	return v.(session.QueueItem), nil
}

func (r *Resolver) playlist(ctx context.Context, q Query) (Listing, error) {
	key := q.cacheKey()
	v, err := r.do(ctx, key, func(ctx context.Context) (any, error) {
		var cached Listing
		if r.load(ctx, key, &cached) {
			return cached, nil
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return Listing{}, err
		}
		listing, err := r.source.Playlist(ctx, q.PlaylistID)
		if err != nil {
			return Listing{}, err
		}
		r.store(ctx, key, listing)
		return listing, nil
	})
	if err != nil {
		return Listing{}, err
	}
	return v.(Listing), nil
}

// do merges concurrent lookups of key. The lookup runs detached from ctx so one caller
// giving up does not fail the others; that caller alone returns ctx's error.
func (r *Resolver) do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := r.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return fn(shared)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for %s", key)
	}
}

// load treats cache failures as misses
func (r *Resolver) load(ctx context.Context, key string, dst any) bool {
	if r.cache == nil {
		return false
	}
	ok, err := r.cache.Load(ctx, key, dst)
	if err != nil {
		log.WithContext(ctx).WithError(err).Warn("Metadata cache read failed")
		return false
	}
	return ok
}

func (r *Resolver) store(ctx context.Context, key string, v any) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Store(ctx, key, v); err != nil {
		log.WithContext(ctx).WithError(err).Warn("Metadata cache write failed")
	}
}
