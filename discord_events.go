package cogs

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func disconnectHandler(b *Bot) func(*discordgo.Session, *discordgo.Disconnect) {
	return func(s *discordgo.Session, d *discordgo.Disconnect) {
		b.logger.Info("disconnected", zap.Int("shard", s.ShardID))
	}
}

// messageCreateHandler feeds guild messages to the mass mention tracker.
func messageCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" {
			return
		}
		if err := b.lastPing.Observe(m.GuildID, m.MentionEveryone, time.Now()); err != nil {
			b.logger.Error("failed to observe message", zap.String("guild", m.GuildID), zap.Error(err))
		}
	}
}

// reconcileLists brings the channel lists of a guild up to date after its
// channels or roles changed.
func (b *Bot) reconcileLists(guildID string) {
	report, err := b.channelLists.Reconcile(guildID)
	if err != nil {
		b.logger.Error("failed to reconcile channel lists", zap.String("guild", guildID), zap.Error(err))
		return
	}
	if report.Edited > 0 || report.Skipped > 0 {
		b.logger.Debug("reconciled channel lists",
			zap.String("guild", guildID),
			zap.Int("edited", report.Edited),
			zap.Int("skipped", report.Skipped),
		)
	}
}
