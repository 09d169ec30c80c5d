package cogs

import (
	"fmt"

	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/kvstore"
)

var debugChannelKey = kvstore.GlobalKey("debug:channel")

func logApplicationCommandRan(b *Bot) func(cmd *bot.ApplicationCommandRan) {
	return func(cmd *bot.ApplicationCommandRan) {
		b.logger.Info("Slash",
			zap.String("name", cmd.Interaction.Name()),
			zap.String("id", cmd.Interaction.ID()),
			zap.String("guildID", cmd.Interaction.GuildID()),
			zap.String("channelID", cmd.Interaction.ChannelID()),
			zap.String("userID", cmd.Interaction.AuthorID()),
		)
	}
}

func logApplicationCommandPanicked(b *Bot) func(cmd *bot.ApplicationCommandPanicked) {
	return func(cmd *bot.ApplicationCommandPanicked) {
		b.logger.Error("Slash panic",
			zap.String("name", cmd.Interaction.Name()),
			zap.Any("interaction", cmd.Interaction),
			zap.Any("reason", cmd.Reason),
		)

		channelID, err := kvstore.Load[string](b.store, debugChannelKey)
		if err != nil {
			b.logger.Error("failed to get debug channel", zap.Error(err))
			return
		}
		if channelID == "" {
			return
		}
		msg := panicReport(cmd.Interaction.Name(), cmd.Interaction.GuildID(), cmd.Interaction.ChannelID(), cmd.Reason)
		if _, err := b.gw.Send(channelID, msg); err != nil {
			b.logger.Warn("failed to post panic", zap.String("channel", channelID), zap.Error(err))
		}
	}
}

// panicReport formats a command panic for the debug channel and keeps it
// within one message.
func panicReport(command, guildID, channelID string, reason any) string {
	msg := fmt.Sprintf("```ini\n[Panic in a command!]\nCommand = %v\nGuild   = %v\nChannel = %v\n```"+
		"```\n%v\n", command, guildID, channelID, reason)
	if r := []rune(msg); len(r) > 1997 {
		msg = string(r[:1997])
	}
	return msg + "```"
}
