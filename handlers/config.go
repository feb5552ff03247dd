package handlers

import "github.com/bwmarrin/discordgo"

// HandlerConfig handles configs for intents and handlers
func HandlerConfig(s *discordgo.Session, prefix string, theme int) {
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	s.AddHandler(MessageHandler(prefix, theme))
}
