package globalban

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
)

type module struct {
	*bot.ModuleBase
	service *Service
}

func NewModule(b *bot.Bot, service *Service, logger mio.Logger) *module {
	logger = logger.Named("globalban")
	return &module{
		ModuleBase: bot.NewModule(b, "globalban", logger),
		service:    service,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newGlobalSlash(m, "globalban", "Ban a user in every server", "banned", m.service.Ban),
		newGlobalSlash(m, "globalunban", "Unban a user in every server", "unbanned", m.service.Unban),
	)
}

func newGlobalSlash(m *module, name, description, verb string, action func(context.Context, string, string) Tally) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, name).
		Type(discordgo.ChatApplicationCommand).
		Description(description).
		AddOption(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "user",
			Description: "ID or mention of the user",
			Required:    true,
		}).
		AddOption(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the audit log",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		if !m.Bot.IsOwner(d.AuthorID()) {
			d.Respond("Only the bot owners can do that.")
			return
		}
		opt, _ := d.Options("user")
		ids := guild.ParseIDs(opt.StringValue())
		if len(ids) == 0 {
			d.Respond("User not found.")
			return
		}
		reason := ""
		if opt, ok := d.Options("reason"); ok {
			reason = opt.StringValue()
		}

		author := d.AuthorID()
		if u, err := d.Sess.Real().User(d.AuthorID()); err == nil {
			author = u.String()
		}

		// going through every guild outlasts the interaction deadline
		err := d.RespondComplex(&discordgo.InteractionResponseData{}, discordgo.InteractionResponseDeferredChannelMessageWithSource)
		if err != nil {
			m.Logger.Error("failed to defer response", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		tally := action(ctx, ids[0], AuditReason(author, d.AuthorID(), reason))
		msg := tally.Message(verb)
		if _, err := d.Sess.Real().InteractionResponseEdit(d.Interaction, &discordgo.WebhookEdit{Content: &msg}); err != nil {
			m.Logger.Error("failed to edit response", zap.Error(err))
		}
	}

	return cmd.Execute(run).Build()
}
