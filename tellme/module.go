package tellme

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

type Messenger interface {
	DM(userID, content string) error
}

type module struct {
	*bot.ModuleBase
	service *Service
	gw      Messenger
	logger  mio.Logger
}

func NewModule(b *bot.Bot, service *Service, gw Messenger, logger mio.Logger) *module {
	logger = logger.Named("tellme")
	return &module{
		ModuleBase: bot.NewModule(b, "tellme", logger),
		service:    service,
		gw:         gw,
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newTellMeSlash(m),
	)
}

func nameOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Name of the command",
		Required:    true,
	}
}

func textOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "text",
		Description: description,
	}
}

func newTellMeSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "tellme").
		Type(discordgo.ChatApplicationCommand).
		Description("Custom commands that reply in the server and in DMs").
		NoDM().
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "run",
			Description: "Run a command",
			Options:     []*discordgo.ApplicationCommandOption{nameOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "list",
			Description: "List the commands of this server",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "create",
			Description: "Create a new command",
			Options:     []*discordgo.ApplicationCommandOption{nameOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "delete",
			Description: "Delete a command",
			Options:     []*discordgo.ApplicationCommandOption{nameOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "dm",
			Description: "Set the text sent in DMs",
			Options:     []*discordgo.ApplicationCommandOption{nameOption(), textOption("Leave empty to remove it")},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Name:        "server",
			Description: "Set the text sent in the server",
			Options:     []*discordgo.ApplicationCommandOption{nameOption(), textOption("Leave empty to remove it")},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()
		name := func(sub string) string {
			opt, _ := d.Options(sub + ":name")
			return strings.ToLower(strings.TrimSpace(opt.StringValue()))
		}
		text := func(sub string) string {
			if opt, ok := d.Options(sub + ":text"); ok {
				return opt.StringValue()
			}
			return ""
		}

		switch {
		case has(d, "run"):
			d.Respond(m.run(gid, d.AuthorID(), name("run")))
			return
		case has(d, "list"):
			d.Respond(m.list(gid))
			return
		}

		if !isAdmin(d) {
			d.Respond("You need to be an administrator to do that.")
			return
		}

		switch {
		case has(d, "create"):
			n := name("create")
			if err := m.service.Create(gid, n); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(fmt.Sprintf("`%v` added.\nSet what it will do with `/tellme dm` and `/tellme server`.", n))
		case has(d, "delete"):
			n := name("delete")
			if err := m.service.Delete(gid, n); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(fmt.Sprintf("`%v` removed.", n))
		case has(d, "dm"):
			t := text("dm")
			d.Respond(m.setText(m.service.SetDM(gid, name("dm"), t), t))
		case has(d, "server"):
			t := text("server")
			d.Respond(m.setText(m.service.SetServer(gid, name("server"), t), t))
		}
	}

	return cmd.Execute(run).Build()
}

func (m *module) run(gid, uid, name string) string {
	c, err := m.service.Get(gid, name)
	if err != nil {
		return m.errorText(err)
	}
	reply := c.Server
	if c.DM != "" {
		if err := m.gw.DM(uid, c.DM); err != nil {
			m.logger.Debug("failed to send dm", zap.String("user", uid), zap.Error(err))
			reply = strings.TrimSpace(reply + "\n\nI couldn't DM you. Make sure I am not blocked and that you allow DMs from server members.")
		} else if reply == "" {
			reply = "Check your DMs."
		}
	}
	if reply == "" {
		return "That command does not do anything yet."
	}
	return reply
}

func (m *module) list(gid string) string {
	names, err := m.service.List(gid)
	if err != nil {
		return m.errorText(err)
	}
	if len(names) == 0 {
		return "There are not any commands in this server."
	}
	return fmt.Sprintf("Commands:```\n%v```", strings.Join(names, "\n"))
}

func (m *module) setText(err error, text string) string {
	if err != nil {
		return m.errorText(err)
	}
	if text == "" {
		return "Text removed."
	}
	return "Text set."
}

func isAdmin(d *discord.DiscordApplicationCommand) bool {
	member := d.Interaction.Member
	return member != nil && member.Permissions&discordgo.PermissionAdministrator != 0
}

func has(d *discord.DiscordApplicationCommand, sub string) bool {
	_, ok := d.Options(sub)
	return ok
}

func (m *module) errorText(err error) string {
	switch {
	case errors.Is(err, ErrReservedName):
		return "That command name cannot be used."
	case errors.Is(err, guild.ErrAlreadyExists):
		return "That command already exists."
	case errors.Is(err, guild.ErrNotFound):
		return "That command does not exist."
	}
	m.logger.Error("tellme command failed", zap.Error(err))
	return "Something went wrong, try again later."
}
