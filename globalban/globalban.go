// Package globalban bans and unbans a user in every guild the bot is in.
package globalban

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
)

const maxReasonLength = 512

type Outcome int

const (
	Succeeded Outcome = iota
	NoPerms
	HigherRole
	NotBanned
	Failed
)

// Tally counts the outcome of a global action per guild.
type Tally struct {
	Succeeded  int
	NoPerms    int
	HigherRole int
	NotBanned  int
	Failed     int
}

func (t *Tally) add(o Outcome) {
	switch o {
	case Succeeded:
		t.Succeeded++
	case NoPerms:
		t.NoPerms++
	case HigherRole:
		t.HigherRole++
	case NotBanned:
		t.NotBanned++
	default:
		t.Failed++
	}
}

type Gateway interface {
	Guilds() []string
	CanBan(guildID string) (bool, error)
	// MemberRank fails with guild.ErrUnknown if the user is not a member.
	MemberRank(guildID, userID string) (guild.Rank, error)
	TopRank(guildID string) (guild.Rank, error)
	Ban(guildID, userID, reason string) error
	Unban(guildID, userID, reason string) error
	Banned(guildID, userID string) (bool, error)
}

type Service struct {
	gw      Gateway
	logger  *zap.Logger
	workers int
}

func NewService(gw Gateway, logger *zap.Logger) *Service {
	return &Service{
		gw:      gw,
		logger:  logger,
		workers: 8,
	}
}

// AuditReason formats the audit log reason of an action requested by a user.
func AuditReason(authorName, authorID, reason string) string {
	text := fmt.Sprintf("Action requested by %v (ID %v).", authorName, authorID)
	if reason != "" {
		text = fmt.Sprintf("Action requested by %v (ID %v). Reason: %v", authorName, authorID, reason)
	}
	if r := []rune(text); len(r) > maxReasonLength {
		text = string(r[:maxReasonLength-3]) + "..."
	}
	return text
}

// Ban bans userID in every guild.
func (s *Service) Ban(ctx context.Context, userID, reason string) Tally {
	return s.each(ctx, "ban", func(gid string) Outcome {
		if o, ok := s.checkPerms(gid); !ok {
			return o
		}
		rank, err := s.gw.MemberRank(gid, userID)
		switch {
		case errors.Is(err, guild.ErrUnknown):
		case err != nil:
			s.logger.Warn("failed to get member", zap.String("guild", gid), zap.Error(err))
			return Failed
		default:
			top, err := s.gw.TopRank(gid)
			if err != nil {
				s.logger.Warn("failed to get top role", zap.String("guild", gid), zap.Error(err))
				return Failed
			}
			if !rank.Below(top) {
				return HigherRole
			}
		}
		if err := s.gw.Ban(gid, userID, reason); err != nil {
			s.logger.Warn("failed to ban", zap.String("guild", gid), zap.String("user", userID), zap.Error(err))
			return Failed
		}
		return Succeeded
	})
}

// Unban lifts the ban of userID in every guild.
func (s *Service) Unban(ctx context.Context, userID, reason string) Tally {
	return s.each(ctx, "unban", func(gid string) Outcome {
		if o, ok := s.checkPerms(gid); !ok {
			return o
		}
		banned, err := s.gw.Banned(gid, userID)
		if err != nil {
			s.logger.Warn("failed to get ban", zap.String("guild", gid), zap.Error(err))
			return Failed
		}
		if !banned {
			return NotBanned
		}
		if err := s.gw.Unban(gid, userID, reason); err != nil {
			s.logger.Warn("failed to unban", zap.String("guild", gid), zap.String("user", userID), zap.Error(err))
			return Failed
		}
		return Succeeded
	})
}

func (s *Service) checkPerms(gid string) (Outcome, bool) {
	ok, err := s.gw.CanBan(gid)
	if err != nil {
		s.logger.Warn("failed to get permissions", zap.String("guild", gid), zap.Error(err))
		return Failed, false
	}
	if !ok {
		return NoPerms, false
	}
	return Succeeded, true
}

func (s *Service) each(ctx context.Context, action string, fn func(gid string) Outcome) Tally {
	guilds := s.gw.Guilds()
	outcomes := make([]Outcome, len(guilds))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.workers)
	for i, gid := range guilds {
		p.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				outcomes[i] = Failed
				return nil
			}
			outcomes[i] = fn(gid)
			return nil
		})
	}
	_ = p.Wait()

	var t Tally
	for _, o := range outcomes {
		t.add(o)
	}
	s.logger.Info("global action done", zap.String("action", action), zap.Int("guilds", len(guilds)),
		zap.Int("succeeded", t.Succeeded), zap.Int("failed", t.Failed))
	return t
}

// Message describes a tally as a chat reply. verb is "banned" or "unbanned".
func (t Tally) Message(verb string) string {
	msg := ""
	if t.Succeeded > 0 {
		msg += fmt.Sprintf("Successfully %v the user in **%v** guilds.\n", verb, t.Succeeded)
	}
	if t.NoPerms > 0 {
		msg += fmt.Sprintf("I do not have ban perms in **%v** guilds.\n", t.NoPerms)
	}
	if t.HigherRole > 0 {
		msg += fmt.Sprintf("The user has a higher role than me in **%v** guilds.\n", t.HigherRole)
	}
	if t.NotBanned > 0 {
		msg += fmt.Sprintf("The user was not banned in **%v** guilds.\n", t.NotBanned)
	}
	if t.Failed > 0 {
		msg += fmt.Sprintf("An unknown error occurred in **%v** guilds.\n", t.Failed)
	}
	if msg == "" {
		return "Couldn't find any guilds? This should not happen..."
	}
	return msg
}
