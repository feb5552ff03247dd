package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

var helpLines = []string{
	"`/summon` join your voice channel",
	"`/play <query>` play a Youtube link, playlist or search",
	"`/pause` `/resume` pause or resume the current track",
	"`/seek <timestamp>` jump to `1:30`, `90` or relative `+10`",
	"`/skip` play the next queued track",
	"`/stop` `/leave` stop playback and disconnect",
	"`/queue` `/np` show what's playing and up next",
	"`/clear [count]` remove tracks from the front of the queue",
	"`/shuffle` shuffle the queue",
	"`/history` recently played tracks",
}

// helpEmbed creates the embedding for the help menu
func helpEmbed(avatarURL string, theme int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Nocturne Help",
		Description: strings.Join(helpLines, "\n"),
		Color:       theme,
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: avatarURL,
		},
	}
}
