package config

import (
	"strings"
	"time"

	"github.com/Strum355/log"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func InitConfig() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, proceeding with defaults.")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	initDefaults()
	viper.AutomaticEnv()
}

// Settings is the typed view of the viper keys the bot runs with
type Settings struct {
	Token   string `validate:"required"`
	AppID   string `validate:"required,numeric"`
	GuildID string `validate:"omitempty,numeric"` // Registers commands in one guild instead of globally
	Prefix  string `validate:"required"`
	Theme   int    `validate:"gte=0,lte=16777215"`

	RedisAddress string        `validate:"required,hostname_port"`
	YoutubeCache time.Duration `validate:"gte=0"`
	ResolverRate float64       `validate:"gte=0"`
	YtDlp        string        `validate:"required"`

	PostgresDSN      string `validate:"required_if=HistoryEnabled true"`
	PostgresAttempts int    `validate:"gte=1,lte=60"`
	HistoryEnabled   bool

	FFmpeg            string        `validate:"required"`
	VoiceReadyTimeout time.Duration `validate:"gte=1s"`
}

// Load reads Settings from viper. InitConfig must have run.
func Load() (Settings, error) {
	s := Settings{
		Token:   viper.GetString("discord.token"),
		AppID:   viper.GetString("discord.app.id"),
		GuildID: viper.GetString("discord.guild.id"),
		Prefix:  viper.GetString("prefix"),
		Theme:   viper.GetInt("theme"),

		RedisAddress: viper.GetString("redis.address"),
		YoutubeCache: time.Duration(viper.GetInt("cache.youtube")) * time.Second,
		ResolverRate: viper.GetFloat64("resolver.rate"),
		YtDlp:        viper.GetString("resolver.ytdlp"),

		PostgresDSN:      viper.GetString("postgres.dsn"),
		PostgresAttempts: viper.GetInt("postgres.attempts"),
		HistoryEnabled:   viper.GetBool("history.enabled"),

		FFmpeg:            viper.GetString("player.ffmpeg"),
		VoiceReadyTimeout: time.Duration(viper.GetInt("player.ready.timeout")) * time.Second,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}
