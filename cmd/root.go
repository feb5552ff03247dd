package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Nocturne/commands"
	"Nocturne/config"
	"Nocturne/db_client"
	"Nocturne/handlers"
	"Nocturne/history"
	"Nocturne/playback"
	"Nocturne/player"
	"Nocturne/redis_client"
	"Nocturne/session"
	"Nocturne/voice"
	"Nocturne/yt"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var production bool

var rootCmd = &cobra.Command{
	Use:   "nocturne",
	Short: "Nocturne is a Discord music bot that plays Youtube in voice channels.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Sets logger to JSON in production
		if production {
			log.InitJSONLogger(&log.Config{Output: os.Stdout})
		} else {
			log.InitSimpleLogger(&log.Config{Output: os.Stdout})
		}

		// Sets up Configurations for Viper
		config.InitConfig()
		settings, err := config.Load()
		if err != nil {
			return err
		}
		return run(cmd.Context(), settings)
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&production, "production", "p", false, "enables production with json logging")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type bot struct {
	session    *discordgo.Session
	rdb        *redis.Client
	db         *gorm.DB
	controller *playback.Controller
}

func run(ctx context.Context, settings config.Settings) error {
	// Creates Discord Bot Session
	s, err := discordgo.New("Bot " + settings.Token)
	if err != nil {
		return errors.Wrap(err, "creating discord session")
	}

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("Bot has registered handlers")
	})

	rdb, err := redis_client.New(ctx, settings.RedisAddress)
	if err != nil {
		return err
	}
	b := &bot{session: s, rdb: rdb}

	resolver := yt.NewResolver(rdb, yt.Options{
		CacheTTL:  settings.YoutubeCache,
		RateLimit: settings.ResolverRate,
		YtDlp:     settings.YtDlp,
	})
	play := player.New(s, resolver, player.Options{
		FFmpeg:       settings.FFmpeg,
		ReadyTimeout: settings.VoiceReadyTimeout,
	})
	transport := voice.NewTransport(s)
	store := session.NewStore()
	locks := playback.NewLocks()

	b.controller = playback.NewController(store, play, transport, locks)

	var plays *history.Store
	if settings.HistoryEnabled {
		if b.db, err = db_client.Open(settings.PostgresDSN, settings.PostgresAttempts); err != nil {
			b.shutdown(ctx)
			return err
		}
		plays = history.NewStore(b.db)
		if err := plays.Migrate(); err != nil {
			b.shutdown(ctx)
			return err
		}
		b.controller = b.controller.WithRecorder(plays)
	}

	router := voice.NewRouter(
		playback.NewOccupancyMonitor(store, transport, locks),
		playback.NewLifecycleManager(store, transport, locks),
	)

	// Configuring Intents and Adding Handlers
	handlers.HandlerConfig(s, settings.Prefix, settings.Theme)
	s.AddHandler(router.OnVoiceStateUpdate)

	// Register Slash and Component Commands
	err = commands.RegisterSlashCommands(s, settings.AppID, settings.GuildID, commands.Deps{
		Controller: b.controller,
		Resolver:   resolver,
		History:    plays,
		Theme:      settings.Theme,
	})
	if err != nil {
		b.shutdown(ctx)
		return err
	}

	// Connecting to Discord Server Gateway
	if err := s.Open(); err != nil {
		b.shutdown(ctx)
		return errors.Wrap(err, "opening discord gateway")
	}
	log.Info("Bot is initialising")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc
	b.shutdown(ctx)
	return nil
}

// shutdown stops every session before closing the gateway and the stores
func (b *bot) shutdown(ctx context.Context) {
	log.Info("Starting graceful shutdown...")

	if b.controller != nil {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		b.controller.Shutdown(ctx)
		cancel()
	}

	if err := b.session.Close(); err != nil {
		log.WithError(err).Warn("Failed to close discord session")
	}
	if b.db != nil {
		if err := db_client.Close(b.db); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}
	if err := b.rdb.Close(); err != nil {
		log.WithError(err).Warn("Failed to close redis")
	}

	log.Info("Cleanly exiting")
}
