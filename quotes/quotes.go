// Package quotes stores quotes per guild under increasing numbers.
package quotes

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

type Quote struct {
	Index    int
	Text     string
	AuthorID string
}

type book struct {
	NextIndex int
	Quotes    map[int]Quote
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

func bookKey(guildID string) string {
	return kvstore.GuildKey(guildID, "quotes")
}

// Add saves a quote and returns its number. Numbers are never reused.
func (s *Service) Add(guildID, text, authorID string) (int, error) {
	var index int
	err := kvstore.Mutate(s.store, bookKey(guildID), func(b *book) error {
		if b.NextIndex < 1 {
			b.NextIndex = 1
		}
		if b.Quotes == nil {
			b.Quotes = make(map[int]Quote)
		}
		index = b.NextIndex
		b.Quotes[index] = Quote{Index: index, Text: text, AuthorID: authorID}
		b.NextIndex++
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("quote added", zap.String("guild", guildID), zap.Int("index", index))
	return index, nil
}

func (s *Service) Delete(guildID string, index int) error {
	return kvstore.Mutate(s.store, bookKey(guildID), func(b *book) error {
		if _, ok := b.Quotes[index]; !ok {
			return fmt.Errorf("%w: quote %v", guild.ErrNotFound, index)
		}
		delete(b.Quotes, index)
		return nil
	})
}

func (s *Service) Get(guildID string, index int) (Quote, error) {
	b, err := kvstore.Load[book](s.store, bookKey(guildID))
	if err != nil {
		return Quote{}, err
	}
	q, ok := b.Quotes[index]
	if !ok {
		return Quote{}, fmt.Errorf("%w: quote %v", guild.ErrNotFound, index)
	}
	return q, nil
}

// Random picks a quote at random. If authorID is set only quotes by that
// member are considered.
func (s *Service) Random(guildID, authorID string) (Quote, error) {
	all, err := s.All(guildID)
	if err != nil {
		return Quote{}, err
	}
	var pool []Quote
	for _, q := range all {
		if authorID == "" || q.AuthorID == authorID {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return Quote{}, fmt.Errorf("%w: no quotes", guild.ErrNotFound)
	}
	return pool[rand.IntN(len(pool))], nil
}

// All returns every quote ordered by number.
func (s *Service) All(guildID string) ([]Quote, error) {
	b, err := kvstore.Load[book](s.store, bookKey(guildID))
	if err != nil {
		return nil, err
	}
	quotes := make([]Quote, 0, len(b.Quotes))
	for _, q := range b.Quotes {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Index < quotes[j].Index
	})
	return quotes, nil
}
