package yt

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"Nocturne/session"
	"Nocturne/utils"

	"github.com/cockroachdb/errors"
	"github.com/kkdai/youtube/v2"
)

// Listing is a playlist header plus its entries
type Listing struct {
	Header session.QueueItem
	Items  []session.QueueItem
}

// source talks to youtube. Resolver layers caching and throttling over it.
type source interface {
	Video(ctx context.Context, id string) (session.QueueItem, error)
	Playlist(ctx context.Context, id string) (Listing, error)
	Search(ctx context.Context, terms string) (session.QueueItem, error)
	StreamURL(ctx context.Context, id string) (string, error)
}

// client fetches metadata with kkdai/youtube and falls back to yt-dlp
type client struct {
	yt    *youtube.Client
	ytdlp string
}

func newClient(ytdlp string) *client {
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	return &client{yt: &youtube.Client{}, ytdlp: ytdlp}
}

func (c *client) Video(ctx context.Context, id string) (session.QueueItem, error) {
	video, err := c.yt.GetVideoContext(ctx, id)
	if err != nil {
		return session.QueueItem{}, errors.Wrapf(err, "fetching video %s", id)
	}
	return session.QueueItem{
		Title:       utils.CleanTitle(video.Title),
		ChannelName: video.Author,
		URL:         watchURI + video.ID,
		ExternalID:  video.ID,
		Duration:    video.Duration,
	}, nil
}

func (c *client) Playlist(ctx context.Context, id string) (Listing, error) {
	playlist, err := c.yt.GetPlaylistContext(ctx, playlistURI+id)
	if err != nil {
		return Listing{}, errors.Wrapf(err, "fetching playlist %s", id)
	}

	listing := Listing{
		Header: session.QueueItem{
			Title:       utils.CleanTitle(playlist.Title),
			ChannelName: playlist.Author,
			URL:         playlistURI + playlist.ID,
			ExternalID:  playlist.ID,
		},
		Items: make([]session.QueueItem, 0, len(playlist.Videos)),
	}
	for _, entry := range playlist.Videos {
		listing.Items = append(listing.Items, session.QueueItem{
			Title:       utils.CleanTitle(entry.Title),
			ChannelName: entry.Author,
			URL:         watchURI + entry.ID,
			ExternalID:  entry.ID,
			Duration:    entry.Duration,
		})
		listing.Header.Duration += entry.Duration
	}
	return listing, nil
}

// ytdlpEntry is one line of yt-dlp -j output
type ytdlpEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Channel  string  `json:"channel"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
}

func (e ytdlpEntry) item() session.QueueItem {
	channel := e.Channel
	if channel == "" {
		channel = e.Uploader
	}
	return session.QueueItem{
		Title:       utils.CleanTitle(e.Title),
		ChannelName: channel,
		URL:         watchURI + e.ID,
		ExternalID:  e.ID,
		Duration:    time.Duration(e.Duration * float64(time.Second)),
	}
}

// parseEntries reads newline separated yt-dlp JSON, skipping lines that do not parse
func parseEntries(out []byte) []ytdlpEntry {
	var entries []ytdlpEntry
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry ytdlpEntry
		if err := json.Unmarshal(line, &entry); err != nil || entry.ID == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func (c *client) Search(ctx context.Context, terms string) (session.QueueItem, error) {
	out, err := c.run(ctx, "-j", "--flat-playlist", "ytsearch1:"+terms)
	if err != nil {
		return session.QueueItem{}, err
	}
	entries := parseEntries(out)
	if len(entries) == 0 {
		return session.QueueItem{}, errors.Wrapf(ErrNotFound, "%q", terms)
	}
	return entries[0].item(), nil
}

// StreamURL picks the best audio format kkdai offers, or asks yt-dlp when kkdai fails
func (c *client) StreamURL(ctx context.Context, id string) (string, error) {
	if url, err := c.kkdaiStreamURL(ctx, id); err == nil {
		return url, nil
	}

	out, err := c.run(ctx, "-f", "bestaudio/best", "-g", watchURI+id)
	if err != nil {
		return "", err
	}
	url := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if url == "" {
		return "", errors.Wrapf(ErrNotFound, "no stream for %s", id)
	}
	return url, nil
}

func (c *client) kkdaiStreamURL(ctx context.Context, id string) (string, error) {
	video, err := c.yt.GetVideoContext(ctx, id)
	if err != nil {
		return "", err
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", errors.New("no audio formats found for video")
	}
	best := formats[0]
	for _, f := range formats[1:] {
		audioOnly := strings.HasPrefix(f.MimeType, "audio/")
		bestAudioOnly := strings.HasPrefix(best.MimeType, "audio/")
		if (audioOnly && !bestAudioOnly) || (audioOnly == bestAudioOnly && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	return c.yt.GetStreamURLContext(ctx, video, &best)
}

func (c *client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.ytdlp, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "yt-dlp: %s", strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
