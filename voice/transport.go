// Package voice adapts discordgo voice connections and voice state events to the playback coordinator
package voice

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// Transport joins and leaves voice channels through a discordgo session
type Transport struct {
	session *discordgo.Session
}

func NewTransport(s *discordgo.Session) *Transport {
	return &Transport{session: s}
}

// Join connects the bot to channelID, deafened
func (t *Transport) Join(ctx context.Context, guildID, channelID string) error {
	if _, err := t.session.ChannelVoiceJoin(guildID, channelID, false, true); err != nil {
		return errors.Wrapf(err, "joining voice channel %s", channelID)
	}
	return nil
}

// Leave disconnects the bot's voice connection in the guild, if any
func (t *Transport) Leave(ctx context.Context, guildID string) error {
	vc := t.connection(guildID)
	if vc == nil {
		return nil
	}
	if err := vc.Disconnect(); err != nil {
		return errors.Wrapf(err, "leaving voice in guild %s", guildID)
	}
	return nil
}

// Occupancy counts the humans in a voice channel, according to the state cache
func (t *Transport) Occupancy(guildID, channelID string) (int, error) {
	guild, err := t.session.State.Guild(guildID)
	if err != nil {
		return 0, errors.Wrapf(err, "looking up guild %s", guildID)
	}

	var selfID string
	if t.session.State.User != nil {
		selfID = t.session.State.User.ID
	}

	t.session.State.RLock()
	states := append([]*discordgo.VoiceState(nil), guild.VoiceStates...)
	t.session.State.RUnlock()

	return countListeners(states, channelID, selfID, t.isBot(guildID)), nil
}

// Connected returns the channel of the bot's voice connection in the guild
func (t *Transport) Connected(guildID string) (string, bool) {
	vc := t.connection(guildID)
	if vc == nil {
		return "", false
	}
	vc.RLock()
	defer vc.RUnlock()
	return vc.ChannelID, vc.ChannelID != ""
}

func (t *Transport) connection(guildID string) *discordgo.VoiceConnection {
	t.session.RLock()
	defer t.session.RUnlock()
	return t.session.VoiceConnections[guildID]
}

// isBot looks members up in the state cache when the voice state carries none
func (t *Transport) isBot(guildID string) func(vs *discordgo.VoiceState) bool {
	return func(vs *discordgo.VoiceState) bool {
		if vs.Member != nil && vs.Member.User != nil {
			return vs.Member.User.Bot
		}
		member, err := t.session.State.Member(guildID, vs.UserID)
		if err != nil || member.User == nil {
			return false
		}
		return member.User.Bot
	}
}

// countListeners counts voice states in channelID that belong to neither selfID nor a bot
func countListeners(states []*discordgo.VoiceState, channelID, selfID string, isBot func(*discordgo.VoiceState) bool) int {
	n := 0
	for _, vs := range states {
		if vs == nil || vs.ChannelID != channelID || vs.UserID == selfID {
			continue
		}
		if isBot(vs) {
			continue
		}
		n++
	}
	return n
}
