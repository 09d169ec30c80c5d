package discord

import (
	"github.com/bwmarrin/discordgo"
)

func (g *Gateway) guild(gid string) (*discordgo.Session, *discordgo.Guild, error) {
	s, err := g.session(gid)
	if err != nil {
		return nil, nil, err
	}
	if gd, err := s.State.Guild(gid); err == nil {
		return s, gd, nil
	}
	gd, err := s.Guild(gid)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	return s, gd, nil
}

func (g *Gateway) member(gid, uid string) (*discordgo.Session, *discordgo.Member, error) {
	s, err := g.session(gid)
	if err != nil {
		return nil, nil, err
	}
	if m, err := s.State.Member(gid, uid); err == nil {
		return s, m, nil
	}
	m, err := s.GuildMember(gid, uid)
	if err != nil {
		return nil, nil, mapErr(err)
	}
	return s, m, nil
}

// roles returns a copy of the role list of a guild.
func (g *Gateway) roles(gid string) ([]*discordgo.Role, error) {
	s, gd, err := g.guild(gid)
	if err != nil {
		return nil, err
	}
	s.State.RLock()
	roles := make([]*discordgo.Role, len(gd.Roles))
	copy(roles, gd.Roles)
	s.State.RUnlock()
	if len(roles) > 0 {
		return roles, nil
	}
	roles, err = s.GuildRoles(gid)
	if err != nil {
		return nil, mapErr(err)
	}
	return roles, nil
}

func (g *Gateway) role(gid, rid string) (*discordgo.Role, error) {
	roles, err := g.roles(gid)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == rid {
			return r, nil
		}
	}
	return nil, mapErr(discordgo.ErrStateNotFound)
}

func (g *Gateway) botID(s *discordgo.Session) string {
	if s.State.User != nil {
		return s.State.User.ID
	}
	return ""
}

// GuildOwner returns the id of the owner of a guild.
func (g *Gateway) GuildOwner(gid string) (string, error) {
	_, gd, err := g.guild(gid)
	if err != nil {
		return "", err
	}
	return gd.OwnerID, nil
}

// Member returns a member of a guild, or guild.ErrUnknown if the user is not
// in it.
func (g *Gateway) Member(gid, uid string) (*discordgo.Member, error) {
	_, m, err := g.member(gid, uid)
	return m, err
}
