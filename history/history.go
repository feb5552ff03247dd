// Package history keeps a per-guild log of started tracks in postgres
package history

import (
	"context"
	"time"

	"Nocturne/session"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

// Play is one started track
type Play struct {
	ID          uint          `gorm:"primaryKey"`
	GuildID     string        `gorm:"size:32;not null;index:idx_plays_guild_played,priority:1"`
	VideoID     string        `gorm:"size:32;not null"`
	Title       string        `gorm:"size:200;not null"`
	ChannelName string        `gorm:"size:100"`
	URL         string        `gorm:"size:255;not null"`
	Duration    time.Duration `gorm:"not null;default:0"`
	PlayedAt    time.Time     `gorm:"not null;index:idx_plays_guild_played,priority:2,sort:desc"`
}

func newPlay(guildID string, item session.QueueItem, at time.Time) *Play {
	return &Play{
		GuildID:     guildID,
		VideoID:     item.ExternalID,
		Title:       item.Title,
		ChannelName: item.ChannelName,
		URL:         item.URL,
		Duration:    item.Duration,
		PlayedAt:    at.UTC(),
	}
}

// Item converts the row back into a queue item
func (p Play) Item() session.QueueItem {
	return session.QueueItem{
		Title:       p.Title,
		ChannelName: p.ChannelName,
		URL:         p.URL,
		ExternalID:  p.VideoID,
		Duration:    p.Duration,
	}
}

// Store records started tracks and lists a guild's recent plays
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the plays table
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Play{}); err != nil {
		return errors.Wrap(err, "migrating plays")
	}
	return nil
}

// TrackStarted records item as started in the guild
func (s *Store) TrackStarted(ctx context.Context, guildID string, item session.QueueItem) error {
	if err := s.db.WithContext(ctx).Create(newPlay(guildID, item, s.now())).Error; err != nil {
		return errors.Wrapf(err, "recording play of %s", item.ExternalID)
	}
	return nil
}

// Recent returns the guild's latest plays, newest first
func (s *Store) Recent(ctx context.Context, guildID string, limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 10
	}
	var plays []Play
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("played_at DESC").
		Limit(limit).
		Find(&plays).Error
	if err != nil {
		return nil, errors.Wrapf(err, "listing plays for guild %s", guildID)
	}
	return plays, nil
}
