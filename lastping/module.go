package lastping

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
)

type Owners interface {
	GuildOwner(guildID string) (string, error)
}

type module struct {
	*bot.ModuleBase
	service *Service
	owners  Owners
	logger  mio.Logger
}

func NewModule(b *bot.Bot, service *Service, owners Owners, logger mio.Logger) *module {
	logger = logger.Named("lastping")
	return &module{
		ModuleBase: bot.NewModule(b, "lastping", logger),
		service:    service,
		owners:     owners,
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newLastPingSlash(m),
		newLastPingAutoSlash(m),
	)
}

func newLastPingSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "lastping").
		Type(discordgo.ChatApplicationCommand).
		Description("View how long this server has lasted without a mass mention").
		NoDM()

	run := func(d *discord.DiscordApplicationCommand) {
		r, err := m.service.Status(d.GuildID())
		if err != nil {
			m.logger.Error("failed to get status", zap.Error(err))
			d.Respond("Something went wrong, try again later.")
			return
		}
		d.Respond(Text(r, time.Now()))
	}

	return cmd.Execute(run).Build()
}

func newLastPingAutoSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "lastpingauto").
		Type(discordgo.ChatApplicationCommand).
		Description("Manage the auto updating mass mention message").
		NoDM().
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "create",
			Description: "Create an auto updating message in this channel",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "remove",
			Description: "Stop updating the current message",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()
		owner, err := m.owners.GuildOwner(gid)
		if err != nil || owner != d.AuthorID() {
			d.Respond("Only the server owner can do that.")
			return
		}

		if _, ok := d.Options("remove"); ok {
			if err := m.service.RemoveAuto(gid); err != nil {
				m.logger.Error("failed to remove auto message", zap.Error(err))
				d.Respond("Something went wrong, try again later.")
				return
			}
			d.Respond("Done.")
			return
		}

		_, err = m.service.CreateAuto(gid, d.ChannelID(), time.Now())
		switch {
		case errors.Is(err, guild.ErrAlreadyExists):
			d.Respond("One already exists.")
		case errors.Is(err, guild.ErrForbidden):
			d.Respond("I cannot send messages in this channel.")
		case err != nil:
			m.logger.Error("failed to create auto message", zap.Error(err))
			d.Respond("Something went wrong, try again later.")
		default:
			d.Respond("Done.")
		}
	}

	return cmd.Execute(run).Build()
}
