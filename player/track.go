package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"Nocturne/session"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"layeh.com/gopus"
)

const (
	sampleRate       = 48000
	channels         = 2
	frameSize        = 960
	maxOpusFrameSize = 4000
	frameDuration    = 20 * time.Millisecond
	sendTimeout      = 100 * time.Millisecond
	pausePoll        = 100 * time.Millisecond
)

var ErrTrackEnded = errors.New("track has already ended")

// AudioTrack streams one item through ffmpeg and opus into a voice connection
type AudioTrack struct {
	item   session.QueueItem
	source string // Direct media URL read by ffmpeg
	ffmpeg string // ffmpeg binary

	mu        sync.Mutex    // Guards the fields below
	paused    bool          // True while frames are held back
	ended     bool          // True once end listeners were notified
	cmd       *exec.Cmd     // Running ffmpeg process
	offset    time.Duration // Track position ffmpeg was started at
	listeners []func()      // End listeners not yet notified

	frames   atomic.Int64       // Frames sent since offset
	stop     chan struct{}      // Closed by Stop
	stopOnce sync.Once          // Guards close(stop)
	seek     chan time.Duration // Latest pending seek target
}

func newAudioTrack(item session.QueueItem, source, ffmpeg string) *AudioTrack {
	return &AudioTrack{
		item:   item,
		source: source,
		ffmpeg: ffmpeg,
		stop:   make(chan struct{}),
		seek:   make(chan time.Duration, 1),
	}
}

// Pause holds back frames until Resume
func (t *AudioTrack) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return ErrTrackEnded
	}
	t.paused = true
	return nil
}

// Resume continues sending frames
func (t *AudioTrack) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return ErrTrackEnded
	}
	t.paused = false
	return nil
}

// Stop ends the track. End listeners fire as if it finished naturally.
func (t *AudioTrack) Stop() error {
	t.stopOnce.Do(func() { close(t.stop) })

	t.mu.Lock()
	t.killLocked()
	t.mu.Unlock()
	return nil
}

// SeekTo restarts ffmpeg at d. Only the latest pending target is kept.
func (t *AudioTrack) SeekTo(d time.Duration) error {
	t.mu.Lock()
	ended := t.ended
	t.mu.Unlock()
	if ended {
		return ErrTrackEnded
	}

	for {
		select {
		case t.seek <- d:
			return nil
		default:
			select {
			case <-t.seek:
			default:
			}
		}
	}
}

// Position is the start offset plus the audio sent since
func (t *AudioTrack) Position() time.Duration {
	t.mu.Lock()
	offset := t.offset
	t.mu.Unlock()
	return offset + time.Duration(t.frames.Load())*frameDuration
}

func (t *AudioTrack) Duration() (time.Duration, bool) {
	return t.item.Duration, t.item.Duration > 0
}

// OnEnd registers fn to run on its own goroutine when the track ends
func (t *AudioTrack) OnEnd(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		go fn()
		return nil
	}
	t.listeners = append(t.listeners, fn)
	return nil
}

// finish marks the track ended and notifies end listeners once
func (t *AudioTrack) finish() {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.killLocked()
	listeners := t.listeners
	t.listeners = nil
	t.mu.Unlock()

	for _, fn := range listeners {
		go fn()
	}
}

func (t *AudioTrack) isPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *AudioTrack) killLocked() {
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
		_ = t.cmd.Wait()
		t.cmd = nil
	}
}

// ffmpegArgs decodes source from at into raw PCM on stdout
func ffmpegArgs(source string, at time.Duration) []string {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
	}
	if at > 0 {
		args = append(args, "-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64))
	}
	return append(args,
		"-i", source,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-loglevel", "error",
		"pipe:1",
	)
}

// start launches ffmpeg at the given track position and returns its PCM output
func (t *AudioTrack) start(at time.Duration) (io.Reader, error) {
	cmd := exec.Command(t.ffmpeg, ffmpegArgs(t.source, at)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "creating ffmpeg pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "starting ffmpeg")
	}

	t.mu.Lock()
	t.killLocked()
	t.cmd = cmd
	t.offset = at
	t.mu.Unlock()
	t.frames.Store(0)
	return stdout, nil
}

// run streams until the source is exhausted, the track is stopped or sending fails
func (t *AudioTrack) run(vc *discordgo.VoiceConnection, pcm io.Reader) {
	defer t.finish()

	logger := log.WithFields(log.Fields{"guild_id": vc.GuildID, "video_id": t.item.ExternalID})

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		logger.WithError(err).Error("Failed to create opus encoder")
		return
	}

	_ = vc.Speaking(true)
	defer func() { _ = vc.Speaking(false) }()

	for {
		target, seeking, err := t.pump(vc.OpusSend, pcm, encoder)
		if err != nil {
			logger.WithError(err).Warn("Playback ended with error")
			return
		}
		if !seeking {
			return
		}
		if pcm, err = t.start(target); err != nil {
			logger.WithError(err).Error("Failed to restart ffmpeg for seek")
			return
		}
	}
}

// pump encodes PCM frames and sends them until EOF, stop, or a seek request
func (t *AudioTrack) pump(out chan<- []byte, pcm io.Reader, encoder *gopus.Encoder) (time.Duration, bool, error) {
	buf := make([]int16, frameSize*channels)
	for {
		select {
		case <-t.stop:
			return 0, false, nil
		case target := <-t.seek:
			return target, true, nil
		default:
		}

		if t.isPaused() {
			select {
			case <-t.stop:
			case <-time.After(pausePoll):
			}
			continue
		}

		if err := binary.Read(pcm, binary.LittleEndian, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, false, nil
			}
			select {
			case <-t.stop:
				// Stop closed the pipe under us
				return 0, false, nil
			default:
			}
			return 0, false, errors.Wrap(err, "reading pcm")
		}

		opus, err := encoder.Encode(buf, frameSize, maxOpusFrameSize)
		if err != nil {
			return 0, false, errors.Wrap(err, "encoding opus frame")
		}
		if len(opus) == 0 {
			continue
		}

		select {
		case out <- opus:
			t.frames.Add(1)
		case <-time.After(sendTimeout):
			return 0, false, errors.New("timeout sending opus frame")
		case <-t.stop:
			return 0, false, nil
		}
	}
}
