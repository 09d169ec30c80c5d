// Package lastping tracks how long a guild has gone without a mass mention
// and keeps an optional message showing it up to date.
package lastping

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

const day = 24 * time.Hour

type MessageRef struct {
	ChannelID string
	MessageID string
}

type Record struct {
	LastPing   time.Time
	LastUpdate time.Time
	Auto       *MessageRef
}

type Gateway interface {
	Send(channelID, content string) (*discordgo.Message, error)
	Edit(channelID, messageID, content string) error
}

type Service struct {
	store  kvstore.Store
	gw     Gateway
	logger *zap.Logger
	locks  kvstore.Locks

	mu    sync.Mutex
	cache map[string]Record
}

func NewService(store kvstore.Store, gw Gateway, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		gw:     gw,
		logger: logger,
		cache:  make(map[string]Record),
	}
}

func recordKey(guildID string) string {
	return kvstore.GuildKey(guildID, "lastping")
}

// Text describes the time since the last mass mention.
func Text(r Record, now time.Time) string {
	if r.LastPing.IsZero() {
		return "I have never seen a mass mention in this server."
	}
	days := int(now.Sub(r.LastPing) / day)
	return fmt.Sprintf("This server has lasted **%v** days without a mass mention.", days)
}

func (s *Service) Status(guildID string) (Record, error) {
	return s.load(guildID)
}

// Observe is called for every guild message. A mass mention resets the
// count; otherwise the auto message is refreshed once per UTC day.
func (s *Service) Observe(guildID string, mentionEveryone bool, now time.Time) error {
	r, err := s.load(guildID)
	if err != nil {
		return err
	}
	if !mentionEveryone && (r.LastUpdate.IsZero() || sameDay(r.LastUpdate, now)) {
		return nil
	}

	unlock := s.locks.Lock(guildID)
	defer unlock()
	if r, err = s.load(guildID); err != nil {
		return err
	}
	if !mentionEveryone && sameDay(r.LastUpdate, now) {
		return nil
	}
	r, err = s.save(guildID, func(r *Record) {
		if mentionEveryone {
			r.LastPing = now
		}
		r.LastUpdate = now
	})
	if err != nil {
		return err
	}
	s.refresh(guildID, r, now)
	return nil
}

// CreateAuto sends a message to channelID that is kept up to date. A guild
// has at most one.
func (s *Service) CreateAuto(guildID, channelID string, now time.Time) (*MessageRef, error) {
	unlock := s.locks.Lock(guildID)
	defer unlock()

	r, err := s.load(guildID)
	if err != nil {
		return nil, err
	}
	if r.Auto != nil {
		return nil, fmt.Errorf("%w: auto message", guild.ErrAlreadyExists)
	}
	msg, err := s.gw.Send(channelID, Text(r, now))
	if err != nil {
		return nil, err
	}
	ref := &MessageRef{ChannelID: channelID, MessageID: msg.ID}
	_, err = s.save(guildID, func(r *Record) {
		r.Auto = ref
		r.LastUpdate = now
	})
	return ref, err
}

// RemoveAuto stops updating the auto message. The message itself is kept.
func (s *Service) RemoveAuto(guildID string) error {
	unlock := s.locks.Lock(guildID)
	defer unlock()
	_, err := s.save(guildID, func(r *Record) {
		r.Auto = nil
	})
	return err
}

func (s *Service) refresh(guildID string, r Record, now time.Time) {
	if r.Auto == nil || r.LastPing.IsZero() {
		return
	}
	if err := s.gw.Edit(r.Auto.ChannelID, r.Auto.MessageID, Text(r, now)); err != nil {
		s.logger.Debug("failed to update auto message", zap.String("guild", guildID), zap.Error(err))
	}
}

func (s *Service) load(guildID string) (Record, error) {
	s.mu.Lock()
	r, ok := s.cache[guildID]
	s.mu.Unlock()
	if ok {
		return r, nil
	}
	r, err := kvstore.Load[Record](s.store, recordKey(guildID))
	if err != nil {
		return r, err
	}
	s.mu.Lock()
	s.cache[guildID] = r
	s.mu.Unlock()
	return r, nil
}

// save must be called with the guild lock held.
func (s *Service) save(guildID string, fn func(*Record)) (Record, error) {
	var saved Record
	err := kvstore.Mutate(s.store, recordKey(guildID), func(r *Record) error {
		fn(r)
		saved = *r
		return nil
	})
	if err != nil {
		return saved, err
	}
	s.mu.Lock()
	s.cache[guildID] = saved
	s.mu.Unlock()
	return saved, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
