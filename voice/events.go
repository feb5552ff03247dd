package voice

import (
	"context"
	"fmt"

	"Nocturne/playback"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

type EventKind int

const (
	EventIgnored EventKind = iota
	EventMembershipChanged
	EventDisconnected
	EventReconnected
)

func (k EventKind) String() string {
	switch k {
	case EventMembershipChanged:
		return "membership_changed"
	case EventDisconnected:
		return "disconnected"
	case EventReconnected:
		return "reconnected"
	default:
		return "ignored"
	}
}

type Event struct {
	Kind      EventKind
	GuildID   string
	ChannelID string // Channel the bot is now in, for EventReconnected
}

// Classify maps a voice state update to the event the coordinator cares about.
// Updates about the bot itself are lifecycle events; a user leaving a channel is a membership change.
func Classify(botID string, vs *discordgo.VoiceStateUpdate) Event {
	if vs == nil || vs.VoiceState == nil {
		return Event{Kind: EventIgnored}
	}
	ev := Event{GuildID: vs.GuildID}

	if vs.UserID == botID {
		if vs.ChannelID == "" {
			ev.Kind = EventDisconnected
			return ev
		}
		ev.Kind = EventReconnected
		ev.ChannelID = vs.ChannelID
		return ev
	}

	if vs.BeforeUpdate != nil && vs.BeforeUpdate.ChannelID != "" && vs.BeforeUpdate.ChannelID != vs.ChannelID {
		ev.Kind = EventMembershipChanged
		return ev
	}
	ev.Kind = EventIgnored
	return ev
}

// Router dispatches voice state updates to the occupancy monitor and lifecycle manager
type Router struct {
	monitor   *playback.OccupancyMonitor
	lifecycle *playback.LifecycleManager
}

func NewRouter(monitor *playback.OccupancyMonitor, lifecycle *playback.LifecycleManager) *Router {
	return &Router{monitor: monitor, lifecycle: lifecycle}
}

// OnVoiceStateUpdate is registered with discordgo.Session.AddHandler
func (r *Router) OnVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	var botID string
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	r.Dispatch(Classify(botID, vs))
}

// Dispatch runs the handler for ev. Panics are recovered so one guild cannot take the process down.
func (r *Router) Dispatch(ev Event) {
	if ev.Kind == EventIgnored {
		return
	}

	ctx := context.WithValue(context.Background(), log.Key, log.Fields{
		"guild_id": ev.GuildID,
		"trigger":  ev.Kind.String(),
	})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithContext(ctx).WithError(fmt.Errorf("%v", rec)).Error("Recovered from panic in voice event handler")
		}
	}()

	switch ev.Kind {
	case EventMembershipChanged:
		r.monitor.MembershipChanged(ctx, ev.GuildID)
	case EventDisconnected:
		r.lifecycle.Disconnected(ctx, ev.GuildID)
	case EventReconnected:
		r.lifecycle.Reconnected(ctx, ev.GuildID, ev.ChannelID)
	}
}
