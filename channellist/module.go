package channellist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/meido/pkg/mio"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
)

type module struct {
	*bot.ModuleBase
	service *Service
	logger  mio.Logger
}

func NewModule(b *bot.Bot, service *Service, logger mio.Logger) *module {
	logger = logger.Named("channellist")
	return &module{
		ModuleBase: bot.NewModule(b, "channellist", logger),
		service:    service,
		logger:     logger,
	}
}

func (m *module) Hook() error {
	if err := m.RegisterCommands(); err != nil {
		return err
	}
	return m.RegisterApplicationCommands(
		newChannelListSlash(m),
	)
}

func newChannelListSlash(m *module) *bot.ModuleApplicationCommand {
	channelOpt := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  "The channel to send the list to, defaults to this one",
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
	}
	roleOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "Only list what this role can see",
	}

	cmd := bot.NewModuleApplicationCommandBuilder(m, "channellist").
		Type(discordgo.ChatApplicationCommand).
		Description("Create dynamically updating channel lists").
		NoDM().
		Permissions(discordgo.PermissionManageChannels).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "generate",
			Description: "Generate a one-time channel list",
			Options:     []*discordgo.ApplicationCommandOption{channelOpt, roleOpt},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "createauto",
			Description: "Create an automatically updating channel list",
			Options: []*discordgo.ApplicationCommandOption{channelOpt, roleOpt, {
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "ignore_blacklist",
				Description: "List blacklisted channels and categories too",
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "removeauto",
			Description: "Stop a channel list from updating, the message is kept",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "Link or id of the message",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "reloadauto",
			Description: "Reload all automatically updating channel lists",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "color",
			Description: "Set the color to use for embeds",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "color",
				Description: "Hex color, like #e74c3c",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "header",
			Description: "Set the header of all channel lists, leave empty to clear",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "The header",
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "categoryblacklist",
			Description: "Toggle a category on the blacklist, or show the blacklist",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "category",
				Description:  "The category to toggle",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "channelblacklist",
			Description: "Toggle a channel on the blacklist, or show the blacklist",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "The channel to toggle",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
					discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice,
				},
			}},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()
		target := func(sub string) string {
			if opt, ok := d.Options(sub + ":channel"); ok {
				return opt.ChannelValue(nil).ID
			}
			return d.ChannelID()
		}
		viewer := func(sub string) string {
			if opt, ok := d.Options(sub + ":role"); ok {
				return opt.RoleValue(nil, "").ID
			}
			return ""
		}

		switch {
		case has(d, "generate"):
			if err := m.service.Generate(gid, target("generate"), viewer("generate")); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Done.")

		case has(d, "createauto"):
			ignore := false
			if opt, ok := d.Options("createauto:ignore_blacklist"); ok {
				ignore = opt.BoolValue()
			}
			inst, err := m.service.Publish(gid, target("createauto"), viewer("createauto"), ignore, true)
			if err != nil && inst != nil {
				m.logger.Error("failed to record channel list", zap.Error(err))
				d.Respond(fmt.Sprintf("The list was sent but will not update, delete it and try again: %v",
					messageLink(gid, inst.ChannelID, inst.MessageID)))
				return
			}
			if err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Done.")

		case has(d, "removeauto"):
			opt, _ := d.Options("removeauto:message")
			ids := guild.ParseIDs(opt.StringValue())
			if len(ids) == 0 {
				d.Respond("That is not a message link.")
				return
			}
			if err := m.service.Unpublish(gid, ids[len(ids)-1]); err != nil {
				if errors.Is(err, guild.ErrNotFound) {
					d.Respond("That message is not a dynamic channel list.")
					return
				}
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Done.")

		case has(d, "reloadauto"):
			report, err := m.service.Reconcile(gid)
			if err != nil {
				d.Respond(m.errorText(err))
				return
			}
			embed := builders.NewEmbedBuilder().
				WithTitle("Reloaded channel lists").
				WithOkColor().
				AddField("Edited", strconv.Itoa(report.Edited), true).
				AddField("Unchanged", strconv.Itoa(report.Unchanged), true).
				AddField("Skipped", strconv.Itoa(report.Skipped), true)
			d.RespondEmbed(embed.Build())

		case has(d, "color"):
			opt, _ := d.Options("color:color")
			color, err := parseColor(opt.StringValue())
			if err != nil {
				d.Respond("That is not a valid color.")
				return
			}
			if err := m.service.SetColor(gid, color); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Color set.")

		case has(d, "header"):
			text := ""
			if opt, ok := d.Options("header:text"); ok {
				text = opt.StringValue()
			}
			if err := m.service.SetHeader(gid, text); err != nil {
				d.Respond(m.errorText(err))
				return
			}
			d.Respond("Header set.")

		case has(d, "categoryblacklist"):
			opt, ok := d.Options("categoryblacklist:category")
			if !ok {
				d.Respond(m.blacklist(gid, func(s Settings) []string { return s.IgnoredCategories }, "categories"))
				return
			}
			d.Respond(m.toggle(gid, opt.ChannelValue(d.Sess.Real()), "Category", m.service.ToggleCategory))

		case has(d, "channelblacklist"):
			opt, ok := d.Options("channelblacklist:channel")
			if !ok {
				d.Respond(m.blacklist(gid, func(s Settings) []string { return s.IgnoredChannels }, "channels"))
				return
			}
			d.Respond(m.toggle(gid, opt.ChannelValue(d.Sess.Real()), "Channel", m.service.ToggleChannel))
		}
	}

	return cmd.Execute(run).Build()
}

func messageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%v/%v/%v", guildID, channelID, messageID)
}

func has(d *discord.DiscordApplicationCommand, sub string) bool {
	_, ok := d.Options(sub)
	return ok
}

func (m *module) toggle(gid string, ch *discordgo.Channel, kind string, fn func(guildID, id string) (bool, error)) string {
	added, err := fn(gid, ch.ID)
	if err != nil {
		return m.errorText(err)
	}
	name := ch.Name
	if name == "" {
		name = ch.ID
	}
	if added {
		return fmt.Sprintf("%v %v is now blacklisted.", kind, name)
	}
	return fmt.Sprintf("%v %v is no longer blacklisted.", kind, name)
}

func (m *module) blacklist(gid string, field func(Settings) []string, what string) string {
	settings, err := m.service.Settings(gid)
	if err != nil {
		return m.errorText(err)
	}
	ids := field(settings)
	if len(ids) == 0 {
		return fmt.Sprintf("There are no blacklisted %v.", what)
	}
	return "```\n" + strings.Join(ids, "\n") + "```"
}

// parseColor accepts #rrggbb, 0xrrggbb, rrggbb and plain decimal values.
func parseColor(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"):
		s = s[2:]
	default:
		if v, err := strconv.ParseInt(s, 10, 32); err == nil && len(s) != 6 {
			return checkColor(v)
		}
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return checkColor(v)
}

func checkColor(v int64) (int, error) {
	if v < 0 || v > 0xffffff {
		return 0, fmt.Errorf("color %v out of range", v)
	}
	return int(v), nil
}

func (m *module) errorText(err error) string {
	switch {
	case errors.Is(err, guild.ErrNotFound):
		return "That role does not exist."
	case errors.Is(err, guild.ErrGatewayDenied):
		return "I cannot send messages to that channel."
	}
	m.logger.Error("channellist command failed", zap.Error(err))
	return "Something went wrong, try again later."
}
