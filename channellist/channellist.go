// Package channellist renders the channels of a guild as embeds and keeps
// published renderings up to date as the guild changes.
package channellist

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

// Settings of the channel lists of a guild.
type Settings struct {
	IgnoredCategories []string
	IgnoredChannels   []string
	Header            string
	Color             int
}

// Instance is a published list that is kept up to date.
type Instance struct {
	ChannelID       string
	MessageID       string
	ViewerRoleID    string
	IgnoreBlacklist bool
}

type instanceList struct {
	Instances []Instance
}

// ReconcileReport counts what happened to each instance during a reconcile.
type ReconcileReport struct {
	Edited    int
	Unchanged int
	Skipped   int
}

type Gateway interface {
	Channels(guildID string) ([]*discordgo.Channel, error)
	Role(guildID, roleID string) (*discordgo.Role, error)
	Message(channelID, messageID string) (*discordgo.Message, error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
}

type Service struct {
	store  kvstore.Store
	gw     Gateway
	logger *zap.Logger
	locks  kvstore.Locks
}

func NewService(store kvstore.Store, gw Gateway, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		gw:     gw,
		logger: logger,
	}
}

func settingsKey(guildID string) string {
	return kvstore.GuildKey(guildID, "channellist:settings")
}

func instancesKey(guildID string) string {
	return kvstore.GuildKey(guildID, "channellist:instances")
}

func (s *Service) Settings(guildID string) (Settings, error) {
	settings, err := kvstore.Load[Settings](s.store, settingsKey(guildID))
	if err != nil {
		return settings, err
	}
	if settings.Color == 0 {
		settings.Color = DefaultColor
	}
	return settings, nil
}

func (s *Service) Instances(guildID string) ([]Instance, error) {
	list, err := kvstore.Load[instanceList](s.store, instancesKey(guildID))
	return list.Instances, err
}

// Render renders the lists of a guild with its current settings.
func (s *Service) Render(guildID, viewerRoleID string, ignoreBlacklist bool) ([]*discordgo.MessageEmbed, error) {
	settings, err := s.Settings(guildID)
	if err != nil {
		return nil, err
	}
	channels, err := s.gw.Channels(guildID)
	if err != nil {
		return nil, err
	}
	var viewer *discordgo.Role
	if viewerRoleID != "" {
		viewer, err = s.gw.Role(guildID, viewerRoleID)
		if errors.Is(err, guild.ErrUnknown) {
			return nil, fmt.Errorf("%w: role %v", guild.ErrNotFound, viewerRoleID)
		}
		if err != nil {
			return nil, err
		}
	}
	return Render(channels, settings, viewer, ignoreBlacklist), nil
}

// Generate sends every embed of a list to a channel once.
func (s *Service) Generate(guildID, channelID, viewerRoleID string) error {
	embeds, err := s.Render(guildID, viewerRoleID, false)
	if err != nil {
		return err
	}
	for _, e := range embeds {
		if _, err := s.gw.SendEmbed(channelID, e); err != nil {
			return gatewayErr(err)
		}
	}
	return nil
}

// Publish sends the first embed of a list to a channel. If auto is set the
// message is recorded and kept up to date by Reconcile. If recording fails the
// sent message is still returned along with the error.
func (s *Service) Publish(guildID, channelID, viewerRoleID string, ignoreBlacklist, auto bool) (*Instance, error) {
	embeds, err := s.Render(guildID, viewerRoleID, ignoreBlacklist)
	if err != nil {
		return nil, err
	}
	msg, err := s.gw.SendEmbed(channelID, embeds[0])
	if err != nil {
		return nil, gatewayErr(err)
	}
	inst := &Instance{
		ChannelID:       channelID,
		MessageID:       msg.ID,
		ViewerRoleID:    viewerRoleID,
		IgnoreBlacklist: ignoreBlacklist,
	}
	if !auto {
		return inst, nil
	}
	err = kvstore.Mutate(s.store, instancesKey(guildID), func(l *instanceList) error {
		l.Instances = append(l.Instances, *inst)
		return nil
	})
	if err != nil {
		s.logger.Warn("list sent but not recorded, it will not be updated",
			zap.String("guild", guildID),
			zap.String("channel", channelID),
			zap.String("message", msg.ID),
			zap.Error(err),
		)
		return inst, fmt.Errorf("record list %v in channel %v: %w", msg.ID, channelID, err)
	}
	return inst, nil
}

// Unpublish stops keeping a message up to date. The message is left as is.
func (s *Service) Unpublish(guildID, messageID string) error {
	return kvstore.Mutate(s.store, instancesKey(guildID), func(l *instanceList) error {
		for i, inst := range l.Instances {
			if inst.MessageID == messageID {
				l.Instances = append(l.Instances[:i], l.Instances[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: message %v is not a channel list", guild.ErrNotFound, messageID)
	})
}

// Reconcile re-renders every instance of a guild and edits the messages that
// are out of date. Instances that cannot be rendered, fetched or edited are
// skipped and stay recorded.
func (s *Service) Reconcile(guildID string) (ReconcileReport, error) {
	unlock := s.locks.Lock(guildID)
	defer unlock()

	var report ReconcileReport
	instances, err := s.Instances(guildID)
	if err != nil || len(instances) == 0 {
		return report, err
	}
	settings, err := s.Settings(guildID)
	if err != nil {
		return report, err
	}
	channels, err := s.gw.Channels(guildID)
	if err != nil {
		return report, err
	}

	logger := s.logger.With(zap.String("guild", guildID))
	for _, inst := range instances {
		var viewer *discordgo.Role
		if inst.ViewerRoleID != "" {
			viewer, err = s.gw.Role(guildID, inst.ViewerRoleID)
			if err != nil {
				logger.Debug("skipping list, viewer role unavailable",
					zap.String("message", inst.MessageID), zap.Error(err))
				report.Skipped++
				continue
			}
		}
		embed := Render(channels, settings, viewer, inst.IgnoreBlacklist)[0]

		msg, err := s.gw.Message(inst.ChannelID, inst.MessageID)
		if err != nil {
			logger.Debug("skipping list, message unavailable",
				zap.String("message", inst.MessageID), zap.Error(err))
			report.Skipped++
			continue
		}
		if len(msg.Embeds) > 0 && sameEmbed(msg.Embeds[0], embed) {
			report.Unchanged++
			continue
		}
		if err := s.gw.EditEmbed(inst.ChannelID, inst.MessageID, embed); err != nil {
			logger.Warn("skipping list, edit failed",
				zap.String("message", inst.MessageID), zap.Error(err))
			report.Skipped++
			continue
		}
		report.Edited++
	}
	return report, nil
}

// ToggleCategory adds or removes a category from the blacklist and reports
// whether it is blacklisted now.
func (s *Service) ToggleCategory(guildID, categoryID string) (bool, error) {
	return s.toggle(guildID, categoryID, func(st *Settings) *[]string { return &st.IgnoredCategories })
}

// ToggleChannel adds or removes a channel from the blacklist and reports
// whether it is blacklisted now.
func (s *Service) ToggleChannel(guildID, channelID string) (bool, error) {
	return s.toggle(guildID, channelID, func(st *Settings) *[]string { return &st.IgnoredChannels })
}

func (s *Service) toggle(guildID, id string, field func(*Settings) *[]string) (bool, error) {
	var added bool
	err := s.updateSettings(guildID, func(st *Settings) {
		ids := field(st)
		for i, v := range *ids {
			if v == id {
				*ids = append((*ids)[:i], (*ids)[i+1:]...)
				added = false
				return
			}
		}
		*ids = append(*ids, id)
		added = true
	})
	return added, err
}

func (s *Service) SetHeader(guildID, header string) error {
	return s.updateSettings(guildID, func(st *Settings) {
		st.Header = header
	})
}

func (s *Service) SetColor(guildID string, color int) error {
	return s.updateSettings(guildID, func(st *Settings) {
		st.Color = color
	})
}

// updateSettings stores the change and brings published lists up to date.
func (s *Service) updateSettings(guildID string, fn func(*Settings)) error {
	err := kvstore.Mutate(s.store, settingsKey(guildID), func(st *Settings) error {
		fn(st)
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := s.Reconcile(guildID); err != nil {
		s.logger.Warn("failed to reconcile lists", zap.String("guild", guildID), zap.Error(err))
	}
	return nil
}

func sameEmbed(live, want *discordgo.MessageEmbed) bool {
	if live.Description != want.Description || live.Color != want.Color {
		return false
	}
	if len(live.Fields) != len(want.Fields) {
		return false
	}
	for i, f := range live.Fields {
		w := want.Fields[i]
		if f.Name != w.Name || f.Value != w.Value || f.Inline != w.Inline {
			return false
		}
	}
	return true
}

func gatewayErr(err error) error {
	if errors.Is(err, guild.ErrForbidden) {
		return fmt.Errorf("%w: %w", guild.ErrGatewayDenied, err)
	}
	return err
}
