package cogs

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/kvstore"
)

type module struct {
	*bot.ModuleBase
	startTime time.Time
	store     kvstore.Store
	logger    mio.Logger
}

func NewModule(b *bot.Bot, store kvstore.Store, logger mio.Logger) *module {
	logger = logger.Named("commands")
	return &module{
		ModuleBase: bot.NewModule(b, "commands", logger),
		store:      store,
		startTime:  time.Now(),
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	if err := m.RegisterApplicationCommands(
		newInfoSlash(m),
		newHelpSlash(m),
		newDebugChannelSlash(m),
	); err != nil {
		return err
	}

	return nil
}

func newHelpSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "help").
		Type(discordgo.ChatApplicationCommand).
		Description("Get help on how to use the bot")

	run := func(d *discord.DiscordApplicationCommand) {
		text := strings.Builder{}
		text.WriteString("What I can do:\n")
		text.WriteString("1. `/blinder` roles that hide other roles while enabled\n")
		text.WriteString("1. `/channellist` channel lists that update themselves\n")
		text.WriteString("1. `/quote` save and view quotes\n")
		text.WriteString("1. `/tellme` custom commands for this server\n")
		text.WriteString("1. `/lovecalc` how compatible two people are\n")
		text.WriteString("1. `/lastping` days without a mass mention\n")
		text.WriteString("1. `/listmaker` lists of anything\n")
		text.WriteString("\n")
		text.WriteString("Bot owners can also use `/globalban`, `/globalunban` and `/debugchannel`\n")

		embed := builders.NewEmbedBuilder().
			WithTitle("Help").
			WithOkColor().
			WithDescription(text.String())
		d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func newInfoSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "info").
		Type(discordgo.ChatApplicationCommand).
		Description("Get information about the bot")

	run := func(d *discord.DiscordApplicationCommand) {
		embed := builders.NewEmbedBuilder().
			WithTitle("Info").
			WithOkColor().
			AddField("Golang version", runtime.Version(), false).
			AddField("Running since", fmt.Sprintf("<t:%v:R>", m.startTime.Unix()), false).
			AddField("Total guilds", fmt.Sprintf("%v", d.Discord.GuildCount()), false)
		d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func newDebugChannelSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "debugchannel").
		Type(discordgo.ChatApplicationCommand).
		Description("Set the channel command errors are posted to").
		AddOption(&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "The channel, leave empty to stop posting",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		if !m.Bot.IsOwner(d.AuthorID()) {
			d.Respond("Only the bot owners can do that.")
			return
		}
		channelID := ""
		if opt, ok := d.Options("channel"); ok {
			channelID = opt.ChannelValue(nil).ID
		}
		err := kvstore.Mutate(m.store, debugChannelKey, func(v *string) error {
			*v = channelID
			return nil
		})
		if err != nil {
			m.logger.Error("failed to set debug channel", zap.Error(err))
			d.Respond("Something went wrong, try again later.")
			return
		}
		if channelID == "" {
			d.RespondEphemeral("Errors will no longer be posted.")
			return
		}
		d.RespondEphemeral(fmt.Sprintf("Errors will be posted to <#%v>.", channelID))
	}

	return cmd.Execute(run).Build()
}
