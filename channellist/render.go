package channellist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/intrntsrfr/cogs/guild"
)

const (
	DefaultColor = 15158332

	embedLength = 6000
	sliceLength = 1024
	emptyList   = "There are no channels to list."
)

// Render lays out the categories of a guild and their channels as embeds.
// If viewer is not nil, only what that role can see is listed. The output
// only depends on its arguments.
func Render(channels []*discordgo.Channel, settings Settings, viewer *discordgo.Role, ignoreBlacklist bool) []*discordgo.MessageEmbed {
	color := settings.Color
	if color == 0 {
		color = DefaultColor
	}

	upper := cases.Upper(language.Und)
	var sb strings.Builder
	for _, cat := range categories(channels) {
		if !ignoreBlacklist && contains(settings.IgnoredCategories, cat.ID) {
			continue
		}
		if viewer != nil && !canSee(viewer, cat) {
			continue
		}

		var lines []string
		text, voice := children(channels, cat.ID)
		for _, ch := range text {
			if !listed(ch, settings, viewer, ignoreBlacklist) {
				continue
			}
			line := ch.Mention()
			if ch.Topic != "" {
				line += " - " + ch.Topic
			}
			lines = append(lines, line)
		}
		for _, ch := range voice {
			if !listed(ch, settings, viewer, ignoreBlacklist) {
				continue
			}
			lines = append(lines, ch.Mention())
		}
		if len(lines) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("\n**%v**\n", upper.String(cat.Name)))
		for _, l := range lines {
			sb.WriteString(l + "\n")
		}
	}

	msg := strings.TrimSpace(sb.String())
	if settings.Header != "" {
		msg = settings.Header + "\n\n" + msg
	}

	pages := pagify(msg, embedLength)
	if len(pages) == 0 {
		return []*discordgo.MessageEmbed{{Description: emptyList, Color: color}}
	}
	embeds := make([]*discordgo.MessageEmbed, 0, len(pages))
	for _, p := range pages {
		embeds = append(embeds, buildEmbed(p, color))
	}
	return embeds
}

// buildEmbed puts the first two parts of page in the description and every
// other part in a field of its own.
func buildEmbed(page string, color int) *discordgo.MessageEmbed {
	parts := pagify(page, sliceLength)
	embed := &discordgo.MessageEmbed{Color: color}
	if len(parts) == 0 {
		return embed
	}
	embed.Description = parts[0]
	if len(parts) > 1 {
		embed.Description += parts[1]
	}
	for _, s := range parts[min(len(parts), 2):] {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "\u200b",
			Value: s,
		})
	}
	return embed
}

func listed(ch *discordgo.Channel, settings Settings, viewer *discordgo.Role, ignoreBlacklist bool) bool {
	if !ignoreBlacklist && contains(settings.IgnoredChannels, ch.ID) {
		return false
	}
	return viewer == nil || canSee(viewer, ch)
}

// canSee reports whether role can view ch, going by the role's overwrite on
// the channel and else by the role's own permissions. Administrator is not
// taken into account.
func canSee(role *discordgo.Role, ch *discordgo.Channel) bool {
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type != discordgo.PermissionOverwriteTypeRole || ow.ID != role.ID {
			continue
		}
		if ow.Deny&discordgo.PermissionViewChannel != 0 {
			return false
		}
		if ow.Allow&discordgo.PermissionViewChannel != 0 {
			return true
		}
	}
	return role.Permissions&discordgo.PermissionViewChannel != 0
}

func categories(channels []*discordgo.Channel) []*discordgo.Channel {
	var cats []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			cats = append(cats, ch)
		}
	}
	sortChannels(cats)
	return cats
}

// children returns the text-like and the voice-like channels of a category.
func children(channels []*discordgo.Channel, parentID string) (text, voice []*discordgo.Channel) {
	for _, ch := range channels {
		if ch.ParentID != parentID {
			continue
		}
		switch ch.Type {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
			text = append(text, ch)
		case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
			voice = append(voice, ch)
		}
	}
	sortChannels(text)
	sortChannels(voice)
	return text, voice
}

func sortChannels(channels []*discordgo.Channel) {
	sort.SliceStable(channels, func(i, j int) bool {
		a, b := channels[i], channels[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return guild.CompareIDs(a.ID, b.ID) < 0
	})
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// pagify splits text into pages of at most limit runes, preferring to cut
// right before a newline. Pages made only of whitespace are dropped.
func pagify(text string, limit int) []string {
	var pages []string
	rest := []rune(text)
	for len(rest) > limit {
		cut := limit
		for i := limit - 1; i >= 1; i-- {
			if rest[i] == '\n' {
				cut = i
				break
			}
		}
		if page := string(rest[:cut]); strings.TrimSpace(page) != "" {
			pages = append(pages, page)
		}
		rest = rest[cut:]
	}
	if page := string(rest); strings.TrimSpace(page) != "" {
		pages = append(pages, page)
	}
	return pages
}
