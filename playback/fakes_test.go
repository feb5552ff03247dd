package playback

import (
	"context"
	"sync"
	"time"

	"Nocturne/session"

	"github.com/cockroachdb/errors"
)

type fakeTrack struct {
	item session.QueueItem

	mu        sync.Mutex
	paused    bool
	stopped   bool
	position  time.Duration
	length    time.Duration
	lengthOK  bool
	seeks     []time.Duration
	callbacks []func()
	failWith  error
}

func (t *fakeTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return t.failWith
	}
	t.paused = true
	return nil
}

func (t *fakeTrack) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return t.failWith
	}
	t.paused = false
	return nil
}

// Stop notifies end listeners asynchronously, like the real player
func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	t.stopped = true
	callbacks := t.callbacks
	t.mu.Unlock()

	for _, fn := range callbacks {
		go fn()
	}
	return nil
}

func (t *fakeTrack) SeekTo(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return t.failWith
	}
	t.seeks = append(t.seeks, d)
	t.position = d
	return nil
}

func (t *fakeTrack) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

func (t *fakeTrack) Duration() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.length, t.lengthOK
}

func (t *fakeTrack) OnEnd(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, fn)
	return nil
}

// finish runs the end listeners on the calling goroutine
func (t *fakeTrack) finish() {
	t.mu.Lock()
	callbacks := t.callbacks
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (t *fakeTrack) listeners() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.callbacks)
}

func (t *fakeTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTrack) isPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *fakeTrack) seekCalls() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.seeks...)
}

type fakePlayer struct {
	mu     sync.Mutex
	tracks []*fakeTrack
	fail   map[string]error // keyed by ExternalID
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{fail: make(map[string]error)}
}

func (p *fakePlayer) Play(_ context.Context, _ string, item session.QueueItem) (session.TrackHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.fail[item.ExternalID]; ok {
		return nil, err
	}
	track := &fakeTrack{item: item}
	p.tracks = append(p.tracks, track)
	return track, nil
}

func (p *fakePlayer) failOn(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[id] = errors.Newf("stream unavailable for %s", id)
}

func (p *fakePlayer) started() []*fakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeTrack(nil), p.tracks...)
}

func (p *fakePlayer) last() *fakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return nil
	}
	return p.tracks[len(p.tracks)-1]
}

type fakeTransport struct {
	mu        sync.Mutex
	connected map[string]string // guild -> channel
	listeners map[string]int    // channel -> non-bot members
	leaves    []string
	joinErr   error
	leaveErr  error
	countErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		connected: make(map[string]string),
		listeners: make(map[string]int),
	}
}

func (t *fakeTransport) Join(_ context.Context, guildID, channelID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joinErr != nil {
		return t.joinErr
	}
	t.connected[guildID] = channelID
	return nil
}

func (t *fakeTransport) Leave(_ context.Context, guildID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, guildID)
	delete(t.connected, guildID)
	return t.leaveErr
}

func (t *fakeTransport) Occupancy(_ string, channelID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.countErr != nil {
		return 0, t.countErr
	}
	return t.listeners[channelID], nil
}

func (t *fakeTransport) Connected(guildID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.connected[guildID]
	return ch, ok
}

func (t *fakeTransport) setListeners(channelID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners[channelID] = n
}

func (t *fakeTransport) leaveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.leaves)
}

type fakeRecorder struct {
	mu    sync.Mutex
	items []session.QueueItem
	err   error
}

func (r *fakeRecorder) TrackStarted(_ context.Context, _ string, item session.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	return r.err
}

func (r *fakeRecorder) recorded() []session.QueueItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.QueueItem(nil), r.items...)
}

func item(id string) session.QueueItem {
	return session.QueueItem{
		Title:       "title " + id,
		ChannelName: "uploader",
		URL:         "https://www.youtube.com/watch?v=" + id,
		ExternalID:  id,
	}
}

func single(id string) Source {
	return Source{Items: []session.QueueItem{item(id)}}
}

type fixture struct {
	store     *session.Store
	player    *fakePlayer
	transport *fakeTransport
	recorder  *fakeRecorder
	locks     *Locks
	ctrl      *Controller
}

func newFixture() *fixture {
	f := &fixture{
		store:     session.NewStore(),
		player:    newFakePlayer(),
		transport: newFakeTransport(),
		recorder:  &fakeRecorder{},
		locks:     NewLocks(),
	}
	f.ctrl = NewController(f.store, f.player, f.transport, f.locks).WithRecorder(f.recorder)
	return f
}

// summoned returns a fixture with an idle session for guild-1 in voice-1
func summoned() *fixture {
	f := newFixture()
	if err := f.ctrl.Summon(context.Background(), "guild-1", "voice-1"); err != nil {
		panic(err)
	}
	return f
}

func (f *fixture) record() session.Record {
	rec, _ := f.store.Get("guild-1")
	return rec
}

func queueIDs(rec session.Record) []string {
	ids := make([]string, 0, len(rec.Queue))
	for _, it := range rec.Queue {
		ids = append(ids, it.ExternalID)
	}
	return ids
}

// consistent checks that IsPlaying and CurrentTrack agree and that the queue holds no copy of the playing item
func consistent(rec session.Record) bool {
	if rec.IsPlaying && rec.CurrentTrack == nil {
		return false
	}
	if (rec.CurrentTrack == nil) != (rec.NowPlaying == nil) {
		return false
	}
	if rec.NowPlaying != nil {
		for _, it := range rec.Queue {
			if it.ExternalID == rec.NowPlaying.ExternalID {
				return false
			}
		}
	}
	return true
}
