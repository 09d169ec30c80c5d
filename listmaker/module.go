package listmaker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
)

const messageLength = 2000

type module struct {
	*bot.ModuleBase
	service *Service
	logger  mio.Logger
}

func NewModule(b *bot.Bot, service *Service, logger mio.Logger) *module {
	logger = logger.Named("listmaker")
	return &module{
		ModuleBase: bot.NewModule(b, "listmaker", logger),
		service:    service,
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newListMakerSlash(m),
	)
}

func listOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "list",
		Description: "Name of the list",
		Required:    true,
	}
}

func valuesOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

func newListMakerSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "listmaker").
		Type(discordgo.ChatApplicationCommand).
		Description("Make lists to store data").
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "create",
			Description: "Create a new list",
			Options: []*discordgo.ApplicationCommandOption{listOption(),
				valuesOption("columns", `Column names separated by spaces, like: name "favorite food"`)},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "add",
			Description: "Add a row to a list you own",
			Options: []*discordgo.ApplicationCommandOption{listOption(),
				valuesOption("values", `One value per column separated by spaces, like: "Robert Smith" 26`)},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "remove",
			Description: "Remove a row from a list you own",
			Options: []*discordgo.ApplicationCommandOption{listOption(), {
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "row",
				Description: "Number of the row",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "show",
			Description: "View the data of a list",
			Options:     []*discordgo.ApplicationCommandOption{listOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "delete",
			Description: "Delete a list you own and all of its contents",
			Options:     []*discordgo.ApplicationCommandOption{listOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "list",
			Description: "List the existing lists",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		uid := d.AuthorID()
		str := func(key string) string {
			opt, _ := d.Options(key)
			return strings.TrimSpace(opt.StringValue())
		}

		switch {
		case has(d, "create"):
			name := str("create:list")
			columns, err := SplitValues(str("create:columns"))
			if err != nil {
				d.Respond("Could not read the column names, check your quotes.")
				return
			}
			if err := m.service.Create(name, uid, columns); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(fmt.Sprintf("List `%v` created.", name))

		case has(d, "add"):
			values, err := SplitValues(str("add:values"))
			if err != nil {
				d.Respond("Could not read the values, check your quotes.")
				return
			}
			if err := m.service.AddRow(str("add:list"), uid, values); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Data added.")

		case has(d, "remove"):
			opt, _ := d.Options("remove:row")
			if err := m.service.RemoveRow(str("remove:list"), uid, int(opt.IntValue())); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Data removed.")

		case has(d, "show"):
			name := str("show:list")
			table, err := m.service.Show(name)
			if err != nil {
				d.Respond(m.errorText(err))
				return
			}
			m.respondTable(d, name, table)

		case has(d, "delete"):
			name := str("delete:list")
			if err := m.service.Delete(name, uid); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(fmt.Sprintf("List `%v` deleted.", name))

		case has(d, "list"):
			lists, err := m.service.Lists()
			if err != nil {
				d.Respond(m.errorText(err))
				return
			}
			if len(lists) == 0 {
				d.Respond("There are currently no lists.")
				return
			}
			rows := make([][]string, len(lists))
			for i, l := range lists {
				rows[i] = []string{l.Name, l.Author}
			}
			m.respondTable(d, "lists", Table([]string{"List Name", "Author ID"}, rows))
		}
	}

	return cmd.Execute(run).Build()
}

// respondTable replies with the table in a code block, or as a file when it
// does not fit in a message.
func (m *module) respondTable(d *discord.DiscordApplicationCommand, name, table string) {
	block := "```\n" + table + "```"
	if len([]rune(block)) <= messageLength {
		d.Respond(block)
		return
	}
	d.RespondFile(fmt.Sprintf("`%v` is too long for a message:", name), "list.txt", strings.NewReader(table))
}

func has(d *discord.DiscordApplicationCommand, sub string) bool {
	_, ok := d.Options(sub)
	return ok
}

func (m *module) errorText(err error) string {
	switch {
	case errors.Is(err, guild.ErrNotFound):
		return "That list does not exist."
	case errors.Is(err, guild.ErrAlreadyExists):
		return "That list name is already taken."
	case errors.Is(err, ErrNotOwner):
		return "You do not own that list."
	case errors.Is(err, ErrColumnMismatch):
		return "The number of values provided does not match the number of columns in the list."
	case errors.Is(err, ErrBadRow):
		return "That row does not exist."
	}
	m.logger.Error("listmaker command failed", zap.Error(err))
	return "Something went wrong, try again later."
}
