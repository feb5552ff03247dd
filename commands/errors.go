package commands

import (
	"context"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

type interactionError struct {
	err      error
	message  string
	deferred bool // The interaction was already acknowledged, reply with a followup
}

// Handle logs the error and whispers message to the invoking user
func (e *interactionError) Handle(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	log.WithContext(ctx).WithError(e.err).Error(e.message)

	if e.deferred {
		_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: e.message,
		})
		return
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral, // Whisper Flag
			Content: e.message,
		},
	})
}
