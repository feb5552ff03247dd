package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// queue shows the live track and what is queued after it
func (m *music) queue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	rec, ok := m.Controller.Snapshot(i.GuildID)
	if !ok {
		respond(s, i, msgNotConnected)
		return nil
	}
	respondEmbed(s, i, nowPlayingEmbed(rec, m.Theme))
	return nil
}

func (m *music) history(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if m.History == nil {
		respond(s, i, "Play history is turned off")
		return nil
	}
	plays, err := m.History.Recent(ctx, i.GuildID, 10)
	if err != nil {
		return &interactionError{err: err, message: "Couldn't load the play history"}
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🕘 Recently played",
		Description: historyText(plays),
		Color:       m.Theme,
	})
	return nil
}
