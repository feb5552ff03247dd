package commands

import (
	"context"
	"fmt"

	"Nocturne/history"
	"Nocturne/playback"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Deps is what the music commands operate on
type Deps struct {
	Controller *playback.Controller
	Resolver   playback.Resolver
	History    *history.Store // Nil when history is disabled
	Theme      int
}

type music struct {
	Deps
}

var minZero = 0.0

// RegisterSlashCommands adds all slash commands to the session. An empty guildID registers them globally.
func RegisterSlashCommands(s *discordgo.Session, appID, guildID string, deps Deps) error {
	m := &music{deps}
	commands := &Commands{}

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "summon",
			Description: "Join your voice channel.",
		},
		m.summon,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "play",
			Description: "Play a Youtube video, playlist or the top search result.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Youtube link or search terms",
					Required:    true,
				},
			},
		},
		m.play,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "pause",
			Description: "Pause the current track.",
		},
		m.trackCommand(m.Controller.Pause, func(playback.Result) string { return "⏸️ Paused" }),
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "resume",
			Description: "Resume the paused track.",
		},
		m.trackCommand(m.Controller.Resume, func(playback.Result) string { return "▶️ Resumed" }),
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "seek",
			Description: "Jump to a timestamp in the current track.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "timestamp",
					Description: "mm:ss or seconds, prefix with + or - to seek relative",
					Required:    true,
				},
			},
		},
		m.seek,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "skip",
			Description: "Skip the current track.",
		},
		m.trackCommand(m.Controller.Skip, describeSkip),
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "stop",
			Description: "Stop playback and disconnect.",
		},
		m.trackCommand(m.Controller.Stop, func(playback.Result) string { return "⏹️ Playback stopped and disconnected" }),
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "leave",
			Description: "Disconnect the bot from voice chat.",
		},
		m.trackCommand(m.Controller.Leave, func(playback.Result) string { return "👋 Left the voice channel" }),
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "clear",
			Description: "Remove tracks from the front of the queue.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many tracks to remove, the whole queue if omitted",
					MinValue:    &minZero,
				},
			},
		},
		m.clear,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "shuffle",
			Description: "Shuffle the queue.",
		},
		m.trackCommand(m.Controller.Shuffle, func(res playback.Result) string {
			return fmt.Sprintf("🔀 Shuffled %d tracks", res.Count)
		}),
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "queue",
			Description: "Show the current queue.",
		},
		m.queue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "np",
			Description: "Show the track that's now playing.",
		},
		m.queue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "history",
			Description: "Show recently played tracks in this server.",
		},
		m.history,
	)

	return commands.Register(s, appID, guildID)
}

type CommandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError

type Commands struct {
	commands []*discordgo.ApplicationCommand
	handlers map[string]CommandHandler
}

// Adds command to the slash commands.
func (c *Commands) Add(com *discordgo.ApplicationCommand, handler CommandHandler) {
	c.commands = append(c.commands, com)
	if c.handlers == nil {
		c.handlers = map[string]CommandHandler{}
	}
	c.handlers[com.Name] = handler
}

// Register routes interactions to their handlers and uploads the command list
func (c *Commands) Register(s *discordgo.Session, appID, guildID string) error {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type == discordgo.InteractionApplicationCommand {
			c.callCommandHandler(s, i)
		}
	})

	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, c.commands); err != nil {
		log.WithError(err).Error("Failed to create commands")
		return errors.Wrap(err, "registering slash commands")
	}
	return nil
}

// Cannot be an interaction through DMs
func checkDirectMessage(i *discordgo.InteractionCreate) (*discordgo.User, *interactionError) {
	if i.GuildID == "" || i.Member == nil {
		return nil, &interactionError{
			err:     errors.New("command invoked outside of valid guild"),
			message: "This command is only available in a valid server",
		}
	}
	return i.Member.User, nil
}

// Text or slash command interactions
func (c *Commands) callCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	commandAuthor, iError := checkDirectMessage(i)
	if iError != nil {
		iError.Handle(ctx, s, i)
		return
	}

	commandName := i.ApplicationCommandData().Name
	handler, ok := c.handlers[commandName]
	if !ok {
		return
	}

	ctx = context.WithValue(ctx, log.Key, log.Fields{
		"invocation_id":    uuid.NewString(),
		"author_id":        commandAuthor.ID,
		"channel_id":       i.ChannelID,
		"guild_id":         i.GuildID,
		"user":             commandAuthor.Username,
		"interaction_type": "application",
		"command":          commandName,
	})
	defer func() {
		if r := recover(); r != nil {
			iErr := &interactionError{err: fmt.Errorf("panic: %v", r), message: "Something went wrong, try again"}
			iErr.Handle(ctx, s, i)
		}
	}()

	log.WithContext(ctx).Info("Invoking application command")
	if iError = handler(ctx, s, i); iError != nil {
		iError.Handle(ctx, s, i)
	}
}
