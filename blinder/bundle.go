package blinder

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

// Activate grants trigger to a member and withholds every role its rule
// suppresses that the member holds and the bot is able to remove.
func (m *Manager) Activate(guildID, userID, trigger string) (*Result, error) {
	unlock := m.locks.Lock(guildID + ":" + userID)
	defer unlock()

	if err := m.checkCanManage(guildID); err != nil {
		return nil, err
	}
	table, err := kvstore.Load[ruleTable](m.store, rulesKey(guildID))
	if err != nil {
		return nil, err
	}
	suppressed, ok := table.Rules[trigger]
	if !ok {
		return nil, fmt.Errorf("%w: role %v is not managed", guild.ErrNotFound, trigger)
	}
	ledger, err := m.Ledger(guildID, userID)
	if err != nil {
		return nil, err
	}
	held, err := m.gw.MemberRoles(guildID, userID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(held, trigger) || slices.Contains(ledger.Enabled, trigger) {
		return nil, guild.ErrAlreadyActive
	}
	top, err := m.checkHierarchy(guildID, trigger)
	if err != nil {
		return nil, err
	}

	if err := m.gw.AddRoles(guildID, userID, []string{trigger}, auditReason); err != nil {
		return nil, gatewayErr(err)
	}

	var candidates []string
	for _, r := range held {
		if slices.Contains(suppressed, r) {
			candidates = append(candidates, r)
		}
	}
	removable, blocked, _ := m.partition(guildID, top, candidates)
	if len(removable) > 0 {
		if err := m.gw.RemoveRoles(guildID, userID, removable, auditReason); err != nil {
			m.logger.Warn("trigger granted but suppression failed",
				zap.String("guild", guildID), zap.String("member", userID),
				zap.String("trigger", trigger), zap.Error(err))
			return nil, gatewayErr(err)
		}
	}

	err = kvstore.Mutate(m.store, ledgerKey(guildID, userID), func(l *Ledger) error {
		for _, r := range removable {
			if !slices.Contains(l.Owned, r) {
				l.Owned = append(l.Owned, r)
			}
		}
		if !slices.Contains(l.Enabled, trigger) {
			l.Enabled = append(l.Enabled, trigger)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Blocked: blocked}, nil
}

// Deactivate takes trigger away from a member and gives back the suppressed
// roles that no other enabled trigger still withholds.
func (m *Manager) Deactivate(guildID, userID, trigger string) (*Result, error) {
	unlock := m.locks.Lock(guildID + ":" + userID)
	defer unlock()

	if err := m.checkCanManage(guildID); err != nil {
		return nil, err
	}
	table, err := kvstore.Load[ruleTable](m.store, rulesKey(guildID))
	if err != nil {
		return nil, err
	}
	suppressed, ok := table.Rules[trigger]
	if !ok {
		return nil, fmt.Errorf("%w: role %v is not managed", guild.ErrNotFound, trigger)
	}
	ledger, err := m.Ledger(guildID, userID)
	if err != nil {
		return nil, err
	}
	held, err := m.gw.MemberRoles(guildID, userID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(held, trigger) || !slices.Contains(ledger.Enabled, trigger) {
		return nil, guild.ErrNotActive
	}
	top, err := m.checkHierarchy(guildID, trigger)
	if err != nil {
		return nil, err
	}

	if err := m.gw.RemoveRoles(guildID, userID, []string{trigger}, auditReason); err != nil {
		return nil, gatewayErr(err)
	}

	var candidates []string
	err = kvstore.Mutate(m.store, ledgerKey(guildID, userID), func(l *Ledger) error {
		l.Enabled = slices.DeleteFunc(l.Enabled, func(r string) bool { return r == trigger })
		stillNeeded := make(map[string]struct{})
		for _, t := range l.Enabled {
			for _, r := range table.Rules[t] {
				stillNeeded[r] = struct{}{}
			}
		}
		candidates = candidates[:0]
		for _, r := range suppressed {
			if _, ok := stillNeeded[r]; ok {
				continue
			}
			if slices.Contains(l.Owned, r) {
				candidates = append(candidates, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	restorable, blocked, gone := m.partition(guildID, top, candidates)
	// roles the member got back by other means are no longer ours to restore
	var alreadyHeld []string
	restorable = slices.DeleteFunc(restorable, func(r string) bool {
		if slices.Contains(held, r) {
			alreadyHeld = append(alreadyHeld, r)
			return true
		}
		return false
	})
	if len(restorable) > 0 {
		if err := m.gw.AddRoles(guildID, userID, restorable, auditReason); err != nil {
			m.logger.Warn("trigger removed but restoration failed",
				zap.String("guild", guildID), zap.String("member", userID),
				zap.String("trigger", trigger), zap.Error(err))
			return nil, gatewayErr(err)
		}
	}

	drop := slices.Concat(restorable, gone, alreadyHeld)
	if len(drop) > 0 {
		err = kvstore.Mutate(m.store, ledgerKey(guildID, userID), func(l *Ledger) error {
			l.Owned = slices.DeleteFunc(l.Owned, func(r string) bool { return slices.Contains(drop, r) })
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return &Result{Blocked: blocked}, nil
}

func (m *Manager) checkCanManage(guildID string) error {
	ok, err := m.gw.CanManageRoles(guildID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing manage roles", guild.ErrPermissionDenied)
	}
	return nil
}

// checkHierarchy fails if trigger ranks above the bot's top role, and
// returns that top role.
func (m *Manager) checkHierarchy(guildID, trigger string) (guild.Rank, error) {
	top, err := m.gw.TopRank(guildID)
	if err != nil {
		return guild.Rank{}, err
	}
	rank, err := m.gw.RoleRank(guildID, trigger)
	if errors.Is(err, guild.ErrUnknown) {
		return guild.Rank{}, fmt.Errorf("%w: role %v does not exist", guild.ErrNotFound, trigger)
	}
	if err != nil {
		return guild.Rank{}, err
	}
	if rank.Above(top) {
		return guild.Rank{}, guild.ErrHierarchy
	}
	return top, nil
}

// partition splits roles into the ones ranked below top and the ones at or
// above it. Roles that no longer exist are returned in gone.
func (m *Manager) partition(guildID string, top guild.Rank, roles []string) (below, blocked, gone []string) {
	for _, r := range roles {
		rank, err := m.gw.RoleRank(guildID, r)
		if errors.Is(err, guild.ErrUnknown) {
			gone = append(gone, r)
			continue
		}
		if err != nil {
			blocked = append(blocked, r)
			continue
		}
		if rank.Below(top) {
			below = append(below, r)
		} else {
			blocked = append(blocked, r)
		}
	}
	return below, blocked, gone
}
