// Package blinder manages role bundles: a trigger role that, while a member
// has it enabled, withholds a set of suppressed roles from that member.
//
// The manager keeps a per-member ledger of the roles it removed so that
// overlapping bundles compose: a role suppressed by several enabled triggers
// is restored only once none of them still needs it suppressed.
package blinder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

const auditReason = "Blinder"

// Gateway is what the manager needs from discord.
type Gateway interface {
	CanManageRoles(guildID string) (bool, error)
	// TopRank is the rank of the bot's highest role.
	TopRank(guildID string) (guild.Rank, error)
	// RoleRank fails with guild.ErrUnknown if the role does not exist.
	RoleRank(guildID, roleID string) (guild.Rank, error)
	Roles(guildID string) ([]*discordgo.Role, error)
	MemberRoles(guildID, userID string) ([]string, error)
	AddRoles(guildID, userID string, roleIDs []string, reason string) error
	RemoveRoles(guildID, userID string, roleIDs []string, reason string) error
}

// Rule is a trigger role and the roles it suppresses.
type Rule struct {
	Trigger    string
	Suppressed []string
}

// Ledger is the per-member state: the triggers the member has enabled, in
// order, and the suppressed roles the manager removed and must give back.
type Ledger struct {
	Enabled []string
	Owned   []string
}

// Result of an activation or deactivation. Blocked lists the roles that
// could not be touched because they are not below the bot's highest role.
type Result struct {
	Blocked []string
}

type ruleTable struct {
	Rules map[string][]string
}

type Manager struct {
	store  kvstore.Store
	gw     Gateway
	logger *zap.Logger
	locks  kvstore.Locks
}

func NewManager(store kvstore.Store, gw Gateway, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		gw:     gw,
		logger: logger,
	}
}

func rulesKey(guildID string) string {
	return kvstore.GuildKey(guildID, "blinder:rules")
}

func ledgerKey(guildID, userID string) string {
	return kvstore.MemberKey(guildID, userID, "blinder:ledger")
}

// DefineRule creates a rule for trigger. It fails with guild.ErrAlreadyExists
// if trigger is already managed.
func (m *Manager) DefineRule(guildID, trigger string, suppressed []string) error {
	return kvstore.Mutate(m.store, rulesKey(guildID), func(t *ruleTable) error {
		if _, ok := t.Rules[trigger]; ok {
			return fmt.Errorf("%w: role %v is already managed", guild.ErrAlreadyExists, trigger)
		}
		if t.Rules == nil {
			t.Rules = make(map[string][]string)
		}
		t.Rules[trigger] = normalize(trigger, suppressed)
		return nil
	})
}

// EditRule overwrites the suppressed set of an existing rule.
func (m *Manager) EditRule(guildID, trigger string, suppressed []string) error {
	return kvstore.Mutate(m.store, rulesKey(guildID), func(t *ruleTable) error {
		if _, ok := t.Rules[trigger]; !ok {
			return fmt.Errorf("%w: role %v is not managed", guild.ErrNotFound, trigger)
		}
		t.Rules[trigger] = normalize(trigger, suppressed)
		return nil
	})
}

// SuppressAll makes trigger suppress every role of the guild except
// @everyone and the roles that are triggers themselves.
func (m *Manager) SuppressAll(guildID, trigger string) ([]string, error) {
	roles, err := m.gw.Roles(guildID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(roles, func(a, b *discordgo.Role) int {
		return guild.RankOf(a).Compare(guild.RankOf(b))
	})

	var suppressed []string
	err = kvstore.Mutate(m.store, rulesKey(guildID), func(t *ruleTable) error {
		if _, ok := t.Rules[trigger]; !ok {
			return fmt.Errorf("%w: role %v is not managed", guild.ErrNotFound, trigger)
		}
		suppressed = suppressed[:0]
		for _, r := range roles {
			if _, isTrigger := t.Rules[r.ID]; isTrigger || r.ID == guildID {
				continue
			}
			suppressed = append(suppressed, r.ID)
		}
		t.Rules[trigger] = suppressed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return suppressed, nil
}

// RemoveRule stops managing trigger. Members that have it enabled keep
// their ledger; disabling it afterwards fails with guild.ErrNotFound.
func (m *Manager) RemoveRule(guildID, trigger string) error {
	return kvstore.Mutate(m.store, rulesKey(guildID), func(t *ruleTable) error {
		if _, ok := t.Rules[trigger]; !ok {
			return fmt.Errorf("%w: role %v is not managed", guild.ErrNotFound, trigger)
		}
		delete(t.Rules, trigger)
		return nil
	})
}

// Rules returns every rule of the guild ordered by trigger id.
func (m *Manager) Rules(guildID string) ([]Rule, error) {
	t, err := kvstore.Load[ruleTable](m.store, rulesKey(guildID))
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(t.Rules))
	for trigger, suppressed := range t.Rules {
		rules = append(rules, Rule{Trigger: trigger, Suppressed: suppressed})
	}
	slices.SortFunc(rules, func(a, b Rule) int {
		return guild.CompareIDs(a.Trigger, b.Trigger)
	})
	return rules, nil
}

// Ledger returns the stored ledger of a member.
func (m *Manager) Ledger(guildID, userID string) (Ledger, error) {
	return kvstore.Load[Ledger](m.store, ledgerKey(guildID, userID))
}

// normalize drops duplicates and the trigger itself, keeping the given order.
func normalize(trigger string, roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == trigger || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func gatewayErr(err error) error {
	if errors.Is(err, guild.ErrForbidden) {
		return fmt.Errorf("%w: %w", guild.ErrGatewayDenied, err)
	}
	return err
}
