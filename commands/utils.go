package commands

import (
	"Nocturne/session"

	"github.com/bwmarrin/discordgo"
)

const (
	msgJoinVoice     = "Join a voice channel first 😉"
	msgNotConnected  = "I'm not in a voice channel, use `/summon` or `/play` first"
	msgOtherRoom     = "You need to be in my voice channel to do that 😅"
	msgBusyElsewhere = "I'm already in another voice channel 😅"
)

// authorVoiceChannel returns the voice channel the invoking member is in
func authorVoiceChannel(s *discordgo.Session, i *discordgo.InteractionCreate) (string, bool) {
	vs, err := s.State.VoiceState(i.GuildID, i.Member.User.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// roomCheck returns the refusal for a member in authorChannel controlling the session rec,
// or "" when the member shares the bot's room.
func roomCheck(authorChannel string, inVoice bool, rec session.Record, hasSession bool) string {
	switch {
	case !inVoice:
		return msgJoinVoice
	case !hasSession:
		return msgNotConnected
	case rec.CurrentChannel != authorChannel:
		return msgOtherRoom
	}
	return ""
}

// checkSharedRoom replies with a refusal unless the member shares the bot's voice channel
func (m *music) checkSharedRoom(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	channelID, inVoice := authorVoiceChannel(s, i)
	rec, hasSession := m.Controller.Snapshot(i.GuildID)
	if refusal := roomCheck(channelID, inVoice, rec, hasSession); refusal != "" {
		respond(s, i, refusal)
		return false
	}
	return true
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
}
