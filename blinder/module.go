package blinder

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

// ModuleGateway is the gateway the commands need on top of the manager's.
type ModuleGateway interface {
	Gateway
	GuildOwner(guildID string) (string, error)
}

// Disabling needs the rule, so removing it strands members who have it enabled.
const ruleRemovedReply = "Role removed. Members who had it enabled do not get their hidden roles back; " +
	"add the role again and disable it for them first if they should."

type module struct {
	*bot.ModuleBase
	manager *Manager
	gw      ModuleGateway
	logger  mio.Logger
}

func NewModule(b *bot.Bot, manager *Manager, gw ModuleGateway, logger mio.Logger) *module {
	logger = logger.Named("blinder")
	return &module{
		ModuleBase: bot.NewModule(b, "blinder", logger),
		manager:    manager,
		gw:         gw,
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newBlinderSlash(m),
	)
}

func roleOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

func memberOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: "The member to change",
		Required:    true,
	}
}

func suppressOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "remove",
		Description: "Roles to remove while the role is enabled, as mentions or ids",
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

func newBlinderSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "blinder").
		Type(discordgo.ChatApplicationCommand).
		Description("Roles that hide other roles while they are enabled").
		NoDM().
		AddSubcommand(subcommand("add", "Add a role to be managed by blinder",
			roleOption("role", "The role to manage"), suppressOption())).
		AddSubcommand(subcommand("edit", "Edit what roles are removed by a managed role",
			roleOption("role", "The managed role"), suppressOption())).
		AddSubcommand(subcommand("suppressall", "Remove every other role when this role is enabled",
			roleOption("role", "The managed role"))).
		AddSubcommand(subcommand("remove", "Stop a role from being managed by blinder",
			roleOption("role", "The managed role"))).
		AddSubcommand(subcommand("list", "List the roles managed by blinder")).
		AddSubcommand(subcommand("enable", "Enable a blinder for yourself",
			roleOption("role", "The managed role"))).
		AddSubcommand(subcommand("disable", "Disable a blinder for yourself",
			roleOption("role", "The managed role"))).
		AddSubcommand(subcommand("forceenable", "Enable a blinder for a member",
			memberOption(), roleOption("role", "The managed role"))).
		AddSubcommand(subcommand("forcedisable", "Disable a blinder for a member",
			memberOption(), roleOption("role", "The managed role")))

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()
		role := func(sub string) string {
			opt, ok := d.Options(sub + ":role")
			if !ok {
				return ""
			}
			return opt.RoleValue(nil, "").ID
		}
		suppressed := func(sub string) []string {
			opt, ok := d.Options(sub + ":remove")
			if !ok {
				return nil
			}
			return guild.ParseIDs(opt.StringValue())
		}
		member := func(sub string) string {
			opt, ok := d.Options(sub + ":member")
			if !ok {
				return ""
			}
			return opt.UserValue(nil).ID
		}

		if _, ok := d.Options("enable"); ok {
			d.Respond(m.enable(gid, d.AuthorID(), role("enable")))
			return
		}
		if _, ok := d.Options("disable"); ok {
			d.Respond(m.disable(gid, d.AuthorID(), role("disable")))
			return
		}

		if !m.isOwner(gid, d.AuthorID()) {
			d.Respond("Only the server owner can do that.")
			return
		}

		switch {
		case has(d, "add"):
			if err := m.manager.DefineRule(gid, role("add"), suppressed("add")); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Role added.")
		case has(d, "edit"):
			if err := m.manager.EditRule(gid, role("edit"), suppressed("edit")); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Role edited.")
		case has(d, "suppressall"):
			if _, err := m.manager.SuppressAll(gid, role("suppressall")); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Role edited.")
		case has(d, "remove"):
			if err := m.manager.RemoveRule(gid, role("remove")); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond(ruleRemovedReply)
		case has(d, "list"):
			d.Respond(m.list(gid))
		case has(d, "forceenable"):
			d.Respond(m.enable(gid, member("forceenable"), role("forceenable")))
		case has(d, "forcedisable"):
			d.Respond(m.disable(gid, member("forcedisable"), role("forcedisable")))
		}
	}

	return cmd.Execute(run).Build()
}

func has(d *discord.DiscordApplicationCommand, sub string) bool {
	_, ok := d.Options(sub)
	return ok
}

func (m *module) isOwner(gid, uid string) bool {
	owner, err := m.gw.GuildOwner(gid)
	if err != nil {
		m.logger.Error("failed to get guild owner", zap.String("guild", gid), zap.Error(err))
		return false
	}
	return owner == uid
}

func (m *module) enable(gid, uid, trigger string) string {
	res, err := m.manager.Activate(gid, uid, trigger)
	if err != nil {
		return m.errorText(err)
	}
	return "Successfully enabled the role." + m.blockedText(gid, res.Blocked)
}

func (m *module) disable(gid, uid, trigger string) string {
	res, err := m.manager.Deactivate(gid, uid, trigger)
	if err != nil {
		return m.errorText(err)
	}
	return "Successfully disabled the role." + m.blockedText(gid, res.Blocked)
}

func (m *module) blockedText(gid string, blocked []string) string {
	if len(blocked) == 0 {
		return ""
	}
	names := m.roleNames(gid)
	for i, id := range blocked {
		blocked[i] = nameOr(names, id)
	}
	return fmt.Sprintf("\n\nThe following roles could not be managed because they are higher than my highest role:\n`%v`",
		humanizeList(blocked))
}

func (m *module) list(gid string) string {
	rules, err := m.manager.Rules(gid)
	if err != nil {
		return m.errorText(err)
	}
	if len(rules) == 0 {
		return "Blinder is currently not managing any roles."
	}
	names := m.roleNames(gid)
	var sb strings.Builder
	for _, r := range rules {
		sb.WriteString(fmt.Sprintf("[%v]\n", nameOr(names, r.Trigger)))
		for _, id := range r.Suppressed {
			sb.WriteString(nameOr(names, id) + "\n")
		}
		sb.WriteString("\n")
	}
	return fmt.Sprintf("Roles currently managed by blinder:\n```ini\n%v```", strings.TrimRight(sb.String(), "\n"))
}

func (m *module) roleNames(gid string) map[string]string {
	names := make(map[string]string)
	roles, err := m.gw.Roles(gid)
	if err != nil {
		m.logger.Warn("failed to get roles", zap.String("guild", gid), zap.Error(err))
		return names
	}
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	return names
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("<unknown role %v>", id)
}

func humanizeList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

func (m *module) errorText(err error) string {
	switch {
	case errors.Is(err, guild.ErrPermissionDenied):
		return "I do not have permission to manage roles in this server."
	case errors.Is(err, guild.ErrNotFound):
		return "That role is not managed by blinder."
	case errors.Is(err, guild.ErrAlreadyExists):
		return "That role is already managed by blinder."
	case errors.Is(err, guild.ErrAlreadyActive):
		return "That role is already enabled."
	case errors.Is(err, guild.ErrNotActive):
		return "That role is not enabled."
	case errors.Is(err, guild.ErrHierarchy):
		return "That role is higher than my highest role."
	case errors.Is(err, guild.ErrGatewayDenied):
		return "Discord refused to change the roles, canceling."
	}
	m.logger.Error("blinder command failed", zap.Error(err))
	return "Something went wrong, try again later."
}
