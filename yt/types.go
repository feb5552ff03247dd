package yt

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kkdai/youtube/v2"
)

const (
	watchURI    = "https://www.youtube.com/watch?v="
	playlistURI = "https://www.youtube.com/playlist?list="
)

var (
	ErrNotFound       = errors.New("no results on youtube")
	ErrUnsupportedURL = errors.New("not a youtube video or playlist link")
)

type Kind int

const (
	KindSearch Kind = iota
	KindVideo
	KindPlaylist
)

// Query is a parsed play argument. VideoID is also set for watch links carrying a list.
type Query struct {
	Kind       Kind
	VideoID    string
	PlaylistID string
	Terms      string
}

// ParseQuery classifies raw as a playlist link, a video link or free-text search terms
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, ErrNotFound
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Query{Kind: KindSearch, Terms: raw}, nil
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "music.")

	switch {
	case host == "youtu.be":
		id, err := youtube.ExtractVideoID(raw)
		if err != nil {
			return Query{}, errors.Wrap(ErrUnsupportedURL, err.Error())
		}
		return Query{Kind: KindVideo, VideoID: id}, nil

	case host == "youtube.com" && u.Path == "/playlist":
		list := u.Query().Get("list")
		if list == "" {
			return Query{}, ErrUnsupportedURL
		}
		return Query{Kind: KindPlaylist, PlaylistID: list}, nil

	case host == "youtube.com" && (u.Path == "/watch" || strings.HasPrefix(u.Path, "/shorts/")):
		id, err := youtube.ExtractVideoID(raw)
		if err != nil {
			return Query{}, errors.Wrap(ErrUnsupportedURL, err.Error())
		}
		q := Query{Kind: KindVideo, VideoID: id}
		if list := u.Query().Get("list"); list != "" {
			q.Kind = KindPlaylist
			q.PlaylistID = list
		}
		return q, nil
	}

	return Query{}, ErrUnsupportedURL
}

func (q Query) cacheKey() string {
	switch q.Kind {
	case KindVideo:
		return "ytmeta:" + q.VideoID
	case KindPlaylist:
		return "ytlist:" + q.PlaylistID
	default:
		return "ytsearch:" + strings.ToLower(q.Terms)
	}
}
