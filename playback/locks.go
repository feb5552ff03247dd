package playback

import "sync"

type guildLock struct {
	mu   sync.Mutex
	refs int
}

// Locks serializes compound operations per guild. Guilds never share a mutex and
// a guild's mutex is dropped once nobody holds or waits on it.
type Locks struct {
	mu     sync.Mutex
	guilds map[string]*guildLock
}

func NewLocks() *Locks {
	return &Locks{guilds: make(map[string]*guildLock)}
}

// Lock blocks until the guild is free and returns the matching unlock
func (l *Locks) Lock(guildID string) (unlock func()) {
	l.mu.Lock()
	gl, ok := l.guilds[guildID]
	if !ok {
		gl = &guildLock{}
		l.guilds[guildID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			gl.mu.Unlock()

			l.mu.Lock()
			gl.refs--
			if gl.refs == 0 {
				delete(l.guilds, guildID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *Locks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.guilds)
}
