package commands

import (
	"context"
	"fmt"

	"Nocturne/playback"
	"Nocturne/utils"
	"Nocturne/yt"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// summon joins the member's voice channel without playing anything
func (m *music) summon(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	channelID, ok := authorVoiceChannel(s, i)
	if !ok {
		respond(s, i, msgJoinVoice)
		return nil
	}

	err := m.Controller.Summon(ctx, i.GuildID, channelID)
	switch {
	case errors.Is(err, playback.ErrOtherChannel):
		respond(s, i, msgBusyElsewhere)
		return nil
	case err != nil:
		return &interactionError{err: err, message: "Couldn't join your voice channel"}
	}

	respond(s, i, fmt.Sprintf("👋 Joined <#%s>", channelID))
	return nil
}

// play joins the member's channel if needed, resolves the query and plays or queues the result
func (m *music) play(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	channelID, ok := authorVoiceChannel(s, i)
	if !ok {
		respond(s, i, msgJoinVoice)
		return nil
	}

	deferResponse(s, i)

	err := m.Controller.Summon(ctx, i.GuildID, channelID)
	switch {
	case errors.Is(err, playback.ErrOtherChannel):
		followup(s, i, msgBusyElsewhere)
		return nil
	case err != nil:
		return &interactionError{err: err, message: "Couldn't join your voice channel", deferred: true}
	}

	query := i.ApplicationCommandData().Options[0].StringValue()
	src, err := m.Resolver.Resolve(ctx, query)
	switch {
	case errors.Is(err, yt.ErrNotFound):
		followup(s, i, "❌ Nothing found for that on Youtube")
		return nil
	case errors.Is(err, yt.ErrUnsupportedURL):
		followup(s, i, "❌ That link isn't a Youtube video or playlist")
		return nil
	case err != nil:
		return &interactionError{err: err, message: "❌ Could not fetch that from Youtube, try again", deferred: true}
	}

	res, err := m.Controller.Play(ctx, i.GuildID, src)
	switch {
	case errors.Is(err, playback.ErrPlaybackFailed):
		log.WithContext(ctx).WithError(err).Warn("Play failed, session was reset")
		followup(s, i, "❌ Could not play the requested resource. Resetting connection...")
		return nil
	case errors.Is(err, playback.ErrSessionMissing):
		followup(s, i, "I left the voice channel while loading that, try again")
		return nil
	case err != nil:
		return &interactionError{err: err, message: "Couldn't start playback, try again", deferred: true}
	}

	followup(s, i, describePlay(res))
	return nil
}

// trackCommand wraps a controller operation that needs the member in the bot's room
func (m *music) trackCommand(op func(ctx context.Context, guildID string) (playback.Result, error), done func(playback.Result) string) CommandHandler {
	return func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
		if !m.checkSharedRoom(s, i) {
			return nil
		}
		res, err := op(ctx, i.GuildID)
		return m.reply(s, i, res, err, done)
	}
}

func (m *music) seek(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if !m.checkSharedRoom(s, i) {
		return nil
	}
	arg := i.ApplicationCommandData().Options[0].StringValue()
	res, err := m.Controller.Seek(ctx, i.GuildID, arg)
	return m.reply(s, i, res, err, func(res playback.Result) string {
		return fmt.Sprintf("⏩ Seeked to `%s`", utils.FormatTimestamp(res.Position))
	})
}

func (m *music) clear(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if !m.checkSharedRoom(s, i) {
		return nil
	}
	count := 0
	if opts := i.ApplicationCommandData().Options; len(opts) > 0 {
		count = int(opts[0].IntValue())
	}
	res, err := m.Controller.Clear(ctx, i.GuildID, count)
	return m.reply(s, i, res, err, describeClear)
}

// reply renders a controller result, treating precondition outcomes as plain feedback
func (m *music) reply(s *discordgo.Session, i *discordgo.InteractionCreate, res playback.Result, err error, done func(playback.Result) string) *interactionError {
	switch {
	case errors.Is(err, playback.ErrSessionMissing):
		respond(s, i, msgNotConnected)
		return nil
	case err != nil:
		return &interactionError{err: err, message: "Something went wrong with playback, try again"}
	}
	if msg, ok := describeOutcome(res); ok {
		respond(s, i, msg)
		return nil
	}
	respond(s, i, done(res))
	return nil
}
