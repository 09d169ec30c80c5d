package discord

import "github.com/bwmarrin/discordgo"

// TopologyHandlers returns event handlers that report the guild of every
// channel or role change to fn.
func TopologyHandlers(fn func(guildID string)) []interface{} {
	report := func(guildID string) {
		if guildID != "" {
			fn(guildID)
		}
	}
	return []interface{}{
		func(s *discordgo.Session, c *discordgo.ChannelCreate) {
			report(c.GuildID)
		},
		func(s *discordgo.Session, c *discordgo.ChannelUpdate) {
			report(c.GuildID)
		},
		func(s *discordgo.Session, c *discordgo.ChannelDelete) {
			report(c.GuildID)
		},
		func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
			report(r.GuildID)
		},
		func(s *discordgo.Session, r *discordgo.GuildRoleUpdate) {
			report(r.GuildID)
		},
		func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
			report(r.GuildID)
		},
	}
}

// ReadyHandler tracks the session of every shard that becomes ready.
func ReadyHandler(g *Gateway) func(*discordgo.Session, *discordgo.Ready) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		g.Track(s)
	}
}
