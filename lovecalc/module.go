package lovecalc

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
)

type Members interface {
	Member(guildID, userID string) (*discordgo.Member, error)
}

type module struct {
	*bot.ModuleBase
	members Members
}

func NewModule(b *bot.Bot, members Members, logger mio.Logger) *module {
	logger = logger.Named("lovecalc")
	return &module{
		ModuleBase: bot.NewModule(b, "lovecalc", logger),
		members:    members,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newLoveCalcSlash(m),
	)
}

func newLoveCalcSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "lovecalc").
		Type(discordgo.ChatApplicationCommand).
		Description("Calculate the love between two people").
		NoDM().
		AddOption(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "first",
			Description: "The first person",
			Required:    true,
		}).
		AddOption(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "second",
			Description: "The second person, defaults to you",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		first, _ := d.Options("first")
		a := first.UserValue(nil).ID
		b := d.AuthorID()
		if second, ok := d.Options("second"); ok {
			b = second.UserValue(nil).ID
		}
		love := Compatibility(a, b)
		d.Respond(Message(m.name(d.GuildID(), a), m.name(d.GuildID(), b), love))
	}

	return cmd.Execute(run).Build()
}

func (m *module) name(gid, uid string) string {
	member, err := m.members.Member(gid, uid)
	if err != nil {
		return "<@" + uid + ">"
	}
	return member.DisplayName()
}
