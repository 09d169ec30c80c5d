package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Channels returns a copy of the channel list of a guild.
func (g *Gateway) Channels(gid string) ([]*discordgo.Channel, error) {
	s, gd, err := g.guild(gid)
	if err != nil {
		return nil, err
	}
	s.State.RLock()
	channels := make([]*discordgo.Channel, len(gd.Channels))
	copy(channels, gd.Channels)
	s.State.RUnlock()
	if len(channels) > 0 {
		return channels, nil
	}
	channels, err = s.GuildChannels(gid)
	if err != nil {
		return nil, mapErr(err)
	}
	return channels, nil
}

// Message always asks the REST API so deleted messages are noticed.
func (g *Gateway) Message(cid, mid string) (*discordgo.Message, error) {
	s, err := g.session("")
	if err != nil {
		return nil, err
	}
	msg, err := s.ChannelMessage(cid, mid)
	if err != nil {
		return nil, mapErr(err)
	}
	return msg, nil
}

func (g *Gateway) Send(cid, content string) (*discordgo.Message, error) {
	s, err := g.session("")
	if err != nil {
		return nil, err
	}
	msg, err := s.ChannelMessageSend(cid, content)
	if err != nil {
		return nil, mapErr(err)
	}
	return msg, nil
}

func (g *Gateway) Edit(cid, mid, content string) error {
	s, err := g.session("")
	if err != nil {
		return err
	}
	_, err = s.ChannelMessageEdit(cid, mid, content)
	return mapErr(err)
}

func (g *Gateway) SendEmbed(cid string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	s, err := g.session("")
	if err != nil {
		return nil, err
	}
	msg, err := s.ChannelMessageSendEmbed(cid, embed)
	if err != nil {
		return nil, mapErr(err)
	}
	return msg, nil
}

func (g *Gateway) EditEmbed(cid, mid string, embed *discordgo.MessageEmbed) error {
	s, err := g.session("")
	if err != nil {
		return err
	}
	_, err = s.ChannelMessageEditEmbed(cid, mid, embed)
	return mapErr(err)
}

// DM sends content to a user in a direct message.
func (g *Gateway) DM(uid, content string) error {
	s, err := g.session("")
	if err != nil {
		return err
	}
	ch, err := s.UserChannelCreate(uid)
	if err != nil {
		return mapErr(err)
	}
	_, err = s.ChannelMessageSend(ch.ID, content)
	return mapErr(err)
}
