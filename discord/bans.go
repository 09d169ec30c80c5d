package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/intrntsrfr/cogs/guild"
)

func (g *Gateway) CanBan(gid string) (bool, error) {
	perms, err := g.botPermissions(gid)
	if err != nil {
		return false, err
	}
	return perms&discordgo.PermissionBanMembers != 0, nil
}

func (g *Gateway) Ban(gid, uid, reason string) error {
	s, err := g.session(gid)
	if err != nil {
		return err
	}
	return mapErr(s.GuildBanCreateWithReason(gid, uid, reason, 0))
}

func (g *Gateway) Unban(gid, uid, reason string) error {
	s, err := g.session(gid)
	if err != nil {
		return err
	}
	return mapErr(s.GuildBanDelete(gid, uid, discordgo.WithAuditLogReason(reason)))
}

// Banned reports whether uid is on the ban list of gid.
func (g *Gateway) Banned(gid, uid string) (bool, error) {
	s, err := g.session(gid)
	if err != nil {
		return false, err
	}
	_, err = s.GuildBan(gid, uid)
	err = mapErr(err)
	if errors.Is(err, guild.ErrUnknown) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
