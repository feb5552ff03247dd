package commands

import (
	"fmt"
	"strings"

	"Nocturne/history"
	"Nocturne/playback"
	"Nocturne/session"
	"Nocturne/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	queuePreview = 5
	titleWidth   = 60
)

// itemLine renders an item as a markdown link with its uploader and length
func itemLine(item session.QueueItem) string {
	line := fmt.Sprintf("[%s](%s) by **%s**", utils.Truncate(item.Title, titleWidth), item.URL, item.ChannelName)
	if item.Duration > 0 {
		line += fmt.Sprintf(" `%s`", utils.FormatTimestamp(item.Duration))
	}
	return line
}

func describePlay(res playback.PlayResult) string {
	switch res.Status {
	case playback.StatusQueued:
		if res.Count > 1 {
			return fmt.Sprintf("➕ Queued %d tracks", res.Count)
		}
		return "➕ Queued " + itemLine(res.Item)
	case playback.StatusDuplicate:
		return "🔁 Already playing " + itemLine(res.Item)
	case playback.StatusPlayAndQueued:
		return fmt.Sprintf("🎶 Playing %s\n➕ Queued %d more from **%s**", itemLine(res.Item), res.Count-1, res.Playlist.Title)
	default:
		return "🎵 Playing " + itemLine(res.Item)
	}
}

// describeOutcome renders the precondition outcomes shared by the track commands
func describeOutcome(res playback.Result) (string, bool) {
	switch res.Outcome {
	case playback.OutcomeAlreadyPaused:
		return "Already paused ⏸️", true
	case playback.OutcomeNotPaused:
		return "Already playing ▶️", true
	case playback.OutcomeNothingLoaded, playback.OutcomeNothingPlaying:
		return "Nothing is playing right now 😶", true
	case playback.OutcomeOutOfRange:
		return "That timestamp is outside the track ⏱️", true
	case playback.OutcomeInvalidTimestamp:
		return "Timestamps look like `1:30`, `90`, `+10` or `-0:15`", true
	case playback.OutcomeQueueEmpty:
		return "The queue is empty 📭", true
	}
	return "", false
}

func describeSkip(res playback.Result) string {
	if res.Item == nil {
		return "⏭️ Skipped, nothing left in the queue"
	}
	return "⏭️ Skipped, up next: " + itemLine(*res.Item)
}

func describeClear(res playback.Result) string {
	if res.Count == 1 {
		return "🧹 Removed 1 track from the queue"
	}
	return fmt.Sprintf("🧹 Removed %d tracks from the queue", res.Count)
}

// queueText lists the first few queued items
func queueText(queue []session.QueueItem) string {
	if len(queue) == 0 {
		return "Nothing queued"
	}
	var b strings.Builder
	for idx, item := range queue[:min(len(queue), queuePreview)] {
		fmt.Fprintf(&b, "%d. %s\n", idx+1, itemLine(item))
	}
	if len(queue) > queuePreview {
		fmt.Fprintf(&b, "...and %d more", len(queue)-queuePreview)
	}
	return strings.TrimRight(b.String(), "\n")
}

// nowPlayingEmbed shows the live track with its progress and the head of the queue
func nowPlayingEmbed(rec session.Record, theme int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Color: theme}
	if rec.NowPlaying == nil || rec.CurrentTrack == nil {
		embed.Title = "🎶 Nothing is playing right now 😶"
	} else {
		status := "▶️ Playing"
		if !rec.IsPlaying {
			status = "⏸️ Paused"
		}
		length, known := rec.CurrentTrack.Duration()
		embed.Title = "🎵 Now Playing: " + utils.Truncate(rec.NowPlaying.Title, titleWidth)
		embed.URL = rec.NowPlaying.URL
		embed.Description = fmt.Sprintf("By: %s\nStatus: %s\n`%s`",
			rec.NowPlaying.ChannelName, status,
			utils.FormatProgress(rec.CurrentTrack.Position(), length, known))
	}
	embed.Fields = []*discordgo.MessageEmbedField{{
		Name:  fmt.Sprintf("Up Next (%d)", len(rec.Queue)),
		Value: queueText(rec.Queue),
	}}
	return embed
}

func historyText(plays []history.Play) string {
	if len(plays) == 0 {
		return "Nothing has been played here yet"
	}
	var b strings.Builder
	for idx, play := range plays {
		fmt.Fprintf(&b, "%d. %s <t:%d:R>\n", idx+1, itemLine(play.Item()), play.PlayedAt.Unix())
	}
	return strings.TrimRight(b.String(), "\n")
}
