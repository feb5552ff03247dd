package commands

import (
	"testing"
	"time"

	"Nocturne/history"
	"Nocturne/playback"
	"Nocturne/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stillTrack struct {
	position time.Duration
	length   time.Duration
}

func (t stillTrack) Pause() error                    { return nil }
func (t stillTrack) Resume() error                   { return nil }
func (t stillTrack) Stop() error                     { return nil }
func (t stillTrack) SeekTo(time.Duration) error      { return nil }
func (t stillTrack) Position() time.Duration         { return t.position }
func (t stillTrack) Duration() (time.Duration, bool) { return t.length, t.length > 0 }
func (t stillTrack) OnEnd(func()) error              { return nil }

func item(id string) session.QueueItem {
	return session.QueueItem{
		Title:       "song " + id,
		ChannelName: "artist",
		URL:         "https://www.youtube.com/watch?v=" + id,
		ExternalID:  id,
		Duration:    3*time.Minute + 5*time.Second,
	}
}

func TestRoomCheck(t *testing.T) {
	rec := session.NewRecord("c1")

	tests := []struct {
		name       string
		author     string
		inVoice    bool
		hasSession bool
		want       string
	}{
		{name: "not in voice", inVoice: false, hasSession: true, want: msgJoinVoice},
		{name: "no session", author: "c1", inVoice: true, hasSession: false, want: msgNotConnected},
		{name: "other room", author: "c2", inVoice: true, hasSession: true, want: msgOtherRoom},
		{name: "same room", author: "c1", inVoice: true, hasSession: true, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roomCheck(tt.author, tt.inVoice, rec, tt.hasSession))
		})
	}
}

func TestItemLine(t *testing.T) {
	got := itemLine(item("abc"))
	assert.Equal(t, "[song abc](https://www.youtube.com/watch?v=abc) by **artist** `03:05`", got)

	unknown := item("abc")
	unknown.Duration = 0
	assert.NotContains(t, itemLine(unknown), "`")
}

func TestDescribePlay(t *testing.T) {
	list := session.QueueItem{Title: "mix"}

	assert.Contains(t, describePlay(playback.PlayResult{Status: playback.StatusPlaying, Item: item("a"), Count: 1}), "🎵 Playing [song a]")
	assert.Contains(t, describePlay(playback.PlayResult{Status: playback.StatusQueued, Item: item("a"), Count: 1}), "➕ Queued [song a]")
	assert.Equal(t, "➕ Queued 4 tracks", describePlay(playback.PlayResult{Status: playback.StatusQueued, Item: item("a"), Count: 4}))

	assert.Contains(t, describePlay(playback.PlayResult{Status: playback.StatusDuplicate, Item: item("a")}), "🔁 Already playing [song a]")

	got := describePlay(playback.PlayResult{Status: playback.StatusPlayAndQueued, Item: item("a"), Playlist: &list, Count: 3})
	assert.Contains(t, got, "🎶 Playing [song a]")
	assert.Contains(t, got, "Queued 2 more from **mix**")
}

func TestDescribeOutcome(t *testing.T) {
	_, ok := describeOutcome(playback.Result{Outcome: playback.OutcomeDone})
	assert.False(t, ok)

	for _, o := range []playback.Outcome{
		playback.OutcomeAlreadyPaused,
		playback.OutcomeNotPaused,
		playback.OutcomeNothingLoaded,
		playback.OutcomeNothingPlaying,
		playback.OutcomeOutOfRange,
		playback.OutcomeInvalidTimestamp,
		playback.OutcomeQueueEmpty,
	} {
		msg, ok := describeOutcome(playback.Result{Outcome: o})
		assert.True(t, ok, o.String())
		assert.NotEmpty(t, msg, o.String())
	}
}

func TestDescribeSkipAndClear(t *testing.T) {
	next := item("b")
	assert.Contains(t, describeSkip(playback.Result{Item: &next}), "up next: [song b]")
	assert.Contains(t, describeSkip(playback.Result{}), "nothing left")

	assert.Equal(t, "🧹 Removed 1 track from the queue", describeClear(playback.Result{Count: 1}))
	assert.Equal(t, "🧹 Removed 3 tracks from the queue", describeClear(playback.Result{Count: 3}))
}

func TestQueueText(t *testing.T) {
	assert.Equal(t, "Nothing queued", queueText(nil))

	var queue []session.QueueItem
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		queue = append(queue, item(id))
	}
	got := queueText(queue)

	assert.Contains(t, got, "1. [song a]")
	assert.Contains(t, got, "5. [song e]")
	assert.NotContains(t, got, "song f")
	assert.Contains(t, got, "...and 2 more")
}

func TestNowPlayingEmbed(t *testing.T) {
	playing := item("a")
	rec := session.NewRecord("c1").Playing(stillTrack{position: 65 * time.Second, length: 3 * time.Minute}, playing, []session.QueueItem{item("b")})

	embed := nowPlayingEmbed(rec, 0x123456)

	assert.Equal(t, 0x123456, embed.Color)
	assert.Equal(t, "🎵 Now Playing: song a", embed.Title)
	assert.Equal(t, playing.URL, embed.URL)
	assert.Contains(t, embed.Description, "▶️ Playing")
	assert.Contains(t, embed.Description, "01:05/03:00")
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Up Next (1)", embed.Fields[0].Name)

	paused := rec
	paused.IsPlaying = false
	assert.Contains(t, nowPlayingEmbed(paused, 0).Description, "⏸️ Paused")

	idle := nowPlayingEmbed(session.NewRecord("c1"), 0)
	assert.Contains(t, idle.Title, "Nothing is playing")
	assert.Equal(t, "Nothing queued", idle.Fields[0].Value)
}

func TestHistoryText(t *testing.T) {
	assert.Equal(t, "Nothing has been played here yet", historyText(nil))

	at := time.Unix(1700000000, 0)
	got := historyText([]history.Play{{Title: "song a", ChannelName: "artist", URL: "u", VideoID: "a", PlayedAt: at}})
	assert.Equal(t, "1. [song a](u) by **artist** <t:1700000000:R>", got)
}
