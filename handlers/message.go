package handlers

import (
	"strings"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

// MessageHandler handles prefix message commands
func MessageHandler(prefix string, theme int) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// If message is sent from the bot
		if m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}

		var err error
		switch command(prefix, m.Content) {
		case "":
			return
		case "help":
			_, err = s.ChannelMessageSendEmbed(m.ChannelID, helpEmbed(s.State.User.AvatarURL("64"), theme))
		default:
			_, err = s.ChannelMessageSend(m.ChannelID, "type `"+prefix+"help` to open help menu.")
		}
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"channel_id": m.ChannelID}).Warn("Failed to answer message command")
		}
	}
}

// command returns the first word after prefix, "" when content is not a command
func command(prefix, content string) string {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return ""
	}
	first, _, _ := strings.Cut(content[len(prefix):], " ")
	if first == "" {
		return "?"
	}
	return first
}
