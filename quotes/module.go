package quotes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
)

// Members looks up who said a quote.
type Members interface {
	Member(guildID, userID string) (*discordgo.Member, error)
}

type module struct {
	*bot.ModuleBase
	service *Service
	members Members
	logger  mio.Logger
}

func NewModule(b *bot.Bot, service *Service, members Members, logger mio.Logger) *module {
	logger = logger.Named("quotes")
	return &module{
		ModuleBase: bot.NewModule(b, "quotes", logger),
		service:    service,
		members:    members,
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newQuoteSlash(m),
	)
}

func newQuoteSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "quote").
		Type(discordgo.ChatApplicationCommand).
		Description("Store and display quotes").
		NoDM().
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "view",
			Description: "View a quote, a random one if no number is given",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "number",
					Description: "Number of the quote",
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Pick a random quote by this member",
				},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "add",
			Description: "Add a new quote",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "What was said",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Who said it",
					Required:    true,
				},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "delete",
			Description: "Delete a quote",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "number",
				Description: "Number of the quote",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "all",
			Description: "Get every quote as a file",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()

		switch {
		case has(d, "view"):
			m.view(d, gid)

		case has(d, "add"):
			text, _ := d.Options("add:text")
			author, _ := d.Options("add:member")
			index, err := m.service.Add(gid, text.StringValue(), author.UserValue(nil).ID)
			if err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(fmt.Sprintf("Quote added as #%v.", index))

		case has(d, "delete"):
			if d.Interaction.Member == nil || d.Interaction.Member.Permissions&discordgo.PermissionManageMessages == 0 {
				d.Respond("You need the manage messages permission to do that.")
				return
			}
			opt, _ := d.Options("delete:number")
			index := int(opt.IntValue())
			if err := m.service.Delete(gid, index); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(fmt.Sprintf("Quote #%v was deleted successfully.", index))

		case has(d, "all"):
			all, err := m.service.All(gid)
			if err != nil {
				d.Respond(m.errorText(err))
				return
			}
			if len(all) == 0 {
				d.Respond("There are no saved quotes.")
				return
			}
			var sb strings.Builder
			for _, q := range all {
				sb.WriteString(fmt.Sprintf("%v. \"%v\" -%v\n", q.Index, q.Text, m.name(gid, q.AuthorID)))
			}
			d.RespondFile(fmt.Sprintf("%v quotes:", len(all)), "quotes.txt", strings.NewReader(sb.String()))
		}
	}

	return cmd.Execute(run).Build()
}

func (m *module) view(d *discord.DiscordApplicationCommand, gid string) {
	var (
		q   Quote
		err error
	)
	if opt, ok := d.Options("view:number"); ok {
		q, err = m.service.Get(gid, int(opt.IntValue()))
	} else if opt, ok := d.Options("view:member"); ok {
		q, err = m.service.Random(gid, opt.UserValue(nil).ID)
		if errors.Is(err, guild.ErrNotFound) {
			d.Respond("That member does not have any quotes.")
			return
		}
	} else {
		q, err = m.service.Random(gid, "")
		if errors.Is(err, guild.ErrNotFound) {
			d.Respond("There are no saved quotes.")
			return
		}
	}
	if err != nil {
		d.Respond(m.errorText(err))
		return
	}

	embed := builders.NewEmbedBuilder().
		WithTitle(fmt.Sprintf("Quote #%v", q.Index)).
		WithDescription(fmt.Sprintf("\"%v\"", q.Text)).
		WithOkColor()
	if member, err := m.members.Member(gid, q.AuthorID); err == nil {
		embed.WithFooter(member.DisplayName(), member.AvatarURL("64"))
	}
	d.RespondEmbed(embed.Build())
}

func (m *module) name(gid, uid string) string {
	member, err := m.members.Member(gid, uid)
	if err != nil {
		return "Unknown"
	}
	return member.DisplayName()
}

func has(d *discord.DiscordApplicationCommand, sub string) bool {
	_, ok := d.Options(sub)
	return ok
}

func (m *module) errorText(err error) string {
	if errors.Is(err, guild.ErrNotFound) {
		return "That quote could not be found."
	}
	m.logger.Error("quote command failed", zap.Error(err))
	return "Something went wrong, try again later."
}
