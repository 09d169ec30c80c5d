// Package tellme keeps custom text commands per guild. A command replies in
// the channel, in a direct message or both.
package tellme

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

var ErrReservedName = errors.New("reserved command name")

var reserved = []string{"dm", "server", "create", "delete"}

type Command struct {
	Server string
	DM     string
}

type commandSet struct {
	Commands map[string]Command
}

type Service struct {
	store  kvstore.Store
	logger *zap.Logger
}

func NewService(store kvstore.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func commandsKey(guildID string) string {
	return kvstore.GuildKey(guildID, "tellme")
}

// Create adds a command that does nothing until its texts are set.
func (s *Service) Create(guildID, name string) error {
	for _, r := range reserved {
		if name == r {
			return fmt.Errorf("%w: %v", ErrReservedName, name)
		}
	}
	return kvstore.Mutate(s.store, commandsKey(guildID), func(cs *commandSet) error {
		if _, ok := cs.Commands[name]; ok {
			return fmt.Errorf("%w: command %v", guild.ErrAlreadyExists, name)
		}
		if cs.Commands == nil {
			cs.Commands = make(map[string]Command)
		}
		cs.Commands[name] = Command{}
		return nil
	})
}

func (s *Service) Delete(guildID, name string) error {
	return s.update(guildID, name, func(cs *commandSet) {
		delete(cs.Commands, name)
	})
}

// SetServer sets the text sent in the channel. An empty text clears it.
func (s *Service) SetServer(guildID, name, text string) error {
	return s.update(guildID, name, func(cs *commandSet) {
		c := cs.Commands[name]
		c.Server = text
		cs.Commands[name] = c
	})
}

// SetDM sets the text sent in a direct message. An empty text clears it.
func (s *Service) SetDM(guildID, name, text string) error {
	return s.update(guildID, name, func(cs *commandSet) {
		c := cs.Commands[name]
		c.DM = text
		cs.Commands[name] = c
	})
}

func (s *Service) update(guildID, name string, fn func(*commandSet)) error {
	return kvstore.Mutate(s.store, commandsKey(guildID), func(cs *commandSet) error {
		if _, ok := cs.Commands[name]; !ok {
			return fmt.Errorf("%w: command %v", guild.ErrNotFound, name)
		}
		fn(cs)
		return nil
	})
}

func (s *Service) Get(guildID, name string) (Command, error) {
	cs, err := kvstore.Load[commandSet](s.store, commandsKey(guildID))
	if err != nil {
		return Command{}, err
	}
	c, ok := cs.Commands[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: command %v", guild.ErrNotFound, name)
	}
	return c, nil
}

// List returns the names of every command, sorted.
func (s *Service) List(guildID string) ([]string, error) {
	cs, err := kvstore.Load[commandSet](s.store, commandsKey(guildID))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cs.Commands))
	for name := range cs.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
