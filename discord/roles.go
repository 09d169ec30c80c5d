package discord

import (
	"math"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/intrntsrfr/cogs/guild"
)

// guildPermissions resolves the guild level permissions of a member from the
// @everyone role and the member's roles.
func guildPermissions(gd *discordgo.Guild, roles []*discordgo.Role, uid string, memberRoles []string) int64 {
	if gd.OwnerID == uid {
		return discordgo.PermissionAll
	}
	var perms int64
	for _, r := range roles {
		if r.ID == gd.ID || slices.Contains(memberRoles, r.ID) {
			perms |= r.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func (g *Gateway) botPermissions(gid string) (int64, error) {
	s, gd, err := g.guild(gid)
	if err != nil {
		return 0, err
	}
	uid := g.botID(s)
	_, m, err := g.member(gid, uid)
	if err != nil {
		return 0, err
	}
	roles, err := g.roles(gid)
	if err != nil {
		return 0, err
	}
	return guildPermissions(gd, roles, uid, m.Roles), nil
}

func (g *Gateway) CanManageRoles(gid string) (bool, error) {
	perms, err := g.botPermissions(gid)
	if err != nil {
		return false, err
	}
	return perms&discordgo.PermissionManageRoles != 0, nil
}

func highestRank(gid string, roles []*discordgo.Role, memberRoles []string) guild.Rank {
	top := guild.Rank{ID: gid}
	for _, r := range roles {
		if !slices.Contains(memberRoles, r.ID) {
			continue
		}
		if rank := guild.RankOf(r); rank.Above(top) {
			top = rank
		}
	}
	return top
}

// MemberRank is the rank of the highest role of a member. A member without
// roles ranks as @everyone and the guild owner ranks above every role.
func (g *Gateway) MemberRank(gid, uid string) (guild.Rank, error) {
	_, gd, err := g.guild(gid)
	if err != nil {
		return guild.Rank{}, err
	}
	_, m, err := g.member(gid, uid)
	if err != nil {
		return guild.Rank{}, err
	}
	if gd.OwnerID == uid {
		return guild.Rank{Position: math.MaxInt, ID: "0"}, nil
	}
	roles, err := g.roles(gid)
	if err != nil {
		return guild.Rank{}, err
	}
	return highestRank(gid, roles, m.Roles), nil
}

// TopRank is the rank of the bot's highest role. Ownership is ignored since
// discord checks role positions for role edits.
func (g *Gateway) TopRank(gid string) (guild.Rank, error) {
	s, err := g.session(gid)
	if err != nil {
		return guild.Rank{}, err
	}
	_, m, err := g.member(gid, g.botID(s))
	if err != nil {
		return guild.Rank{}, err
	}
	roles, err := g.roles(gid)
	if err != nil {
		return guild.Rank{}, err
	}
	return highestRank(gid, roles, m.Roles), nil
}

func (g *Gateway) RoleRank(gid, rid string) (guild.Rank, error) {
	r, err := g.role(gid, rid)
	if err != nil {
		return guild.Rank{}, err
	}
	return guild.RankOf(r), nil
}

func (g *Gateway) Role(gid, rid string) (*discordgo.Role, error) {
	return g.role(gid, rid)
}

func (g *Gateway) Roles(gid string) ([]*discordgo.Role, error) {
	return g.roles(gid)
}

func (g *Gateway) MemberRoles(gid, uid string) ([]string, error) {
	_, m, err := g.member(gid, uid)
	if err != nil {
		return nil, err
	}
	return slices.Clone(m.Roles), nil
}

// AddRoles grants roleIDs in a single member edit.
func (g *Gateway) AddRoles(gid, uid string, roleIDs []string, reason string) error {
	return g.editRoles(gid, uid, reason, func(roles []string) []string {
		for _, r := range roleIDs {
			if !slices.Contains(roles, r) {
				roles = append(roles, r)
			}
		}
		return roles
	})
}

// RemoveRoles takes roleIDs away in a single member edit.
func (g *Gateway) RemoveRoles(gid, uid string, roleIDs []string, reason string) error {
	return g.editRoles(gid, uid, reason, func(roles []string) []string {
		return slices.DeleteFunc(roles, func(r string) bool {
			return slices.Contains(roleIDs, r)
		})
	})
}

func (g *Gateway) editRoles(gid, uid, reason string, fn func([]string) []string) error {
	s, m, err := g.member(gid, uid)
	if err != nil {
		return err
	}
	roles := fn(slices.Clone(m.Roles))
	updated, err := s.GuildMemberEdit(gid, uid, &discordgo.GuildMemberParams{Roles: &roles},
		discordgo.WithAuditLogReason(reason))
	if err != nil {
		return mapErr(err)
	}
	// keep the state in step until the member update event arrives
	if updated != nil && updated.User != nil {
		updated.GuildID = gid
		_ = s.State.MemberAdd(updated)
	}
	return nil
}
