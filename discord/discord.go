// Package discord implements the gateways the cogs depend on with one or
// more discordgo sessions. Reads go through the session state first and fall
// back to the REST API, writes always use the REST API.
package discord

import (
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Gateway struct {
	mu       sync.RWMutex
	sessions map[int]*discordgo.Session
	log      *zap.Logger
}

// NewGateway returns a gateway over the given sessions. More sessions can be
// added later with Track, one per shard.
func NewGateway(log *zap.Logger, sessions ...*discordgo.Session) *Gateway {
	g := &Gateway{
		sessions: make(map[int]*discordgo.Session),
		log:      log,
	}
	for _, s := range sessions {
		g.Track(s)
	}
	return g
}

// Track adds the session of a shard, replacing an earlier session of the
// same shard.
func (g *Gateway) Track(s *discordgo.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ShardID] = s
}

func (g *Gateway) all() []*discordgo.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sessions := make([]*discordgo.Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ShardID < sessions[j].ShardID
	})
	return sessions
}

// session returns the session whose state holds gid, or any session when no
// state does. REST calls work from every session.
func (g *Gateway) session(gid string) (*discordgo.Session, error) {
	sessions := g.all()
	if len(sessions) == 0 {
		return nil, ErrNoSession
	}
	for _, s := range sessions {
		if _, err := s.State.Guild(gid); err == nil {
			return s, nil
		}
	}
	return sessions[0], nil
}

// Guilds returns the ids of every guild in the state of any session.
func (g *Gateway) Guilds() []string {
	var ids []string
	for _, s := range g.all() {
		s.State.RLock()
		for _, gd := range s.State.Guilds {
			ids = append(ids, gd.ID)
		}
		s.State.RUnlock()
	}
	return ids
}
