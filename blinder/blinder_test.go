package blinder

import (
	"fmt"
	"slices"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

const testGuild = "100"

type fakeGateway struct {
	canManage bool
	top       guild.Rank
	roles     map[string]guild.Rank
	members   map[string][]string

	denyRemove bool
	denyAdd    bool
	calls      []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		canManage: true,
		top:       guild.Rank{Position: 50, ID: "999"},
		roles:     make(map[string]guild.Rank),
		members:   make(map[string][]string),
	}
}

func (f *fakeGateway) role(id string, pos int) {
	f.roles[id] = guild.Rank{Position: pos, ID: id}
}

func (f *fakeGateway) CanManageRoles(string) (bool, error) {
	return f.canManage, nil
}

func (f *fakeGateway) TopRank(string) (guild.Rank, error) {
	return f.top, nil
}

func (f *fakeGateway) RoleRank(_, roleID string) (guild.Rank, error) {
	r, ok := f.roles[roleID]
	if !ok {
		return guild.Rank{}, guild.ErrUnknown
	}
	return r, nil
}

func (f *fakeGateway) Roles(guildID string) ([]*discordgo.Role, error) {
	roles := []*discordgo.Role{{ID: guildID, Position: 0}}
	for id, r := range f.roles {
		roles = append(roles, &discordgo.Role{ID: id, Position: r.Position})
	}
	return roles, nil
}

func (f *fakeGateway) MemberRoles(_, userID string) ([]string, error) {
	return slices.Clone(f.members[userID]), nil
}

func (f *fakeGateway) AddRoles(_, userID string, roleIDs []string, _ string) error {
	f.calls = append(f.calls, fmt.Sprintf("add %v", roleIDs))
	if f.denyAdd {
		return guild.ErrForbidden
	}
	for _, r := range roleIDs {
		if !slices.Contains(f.members[userID], r) {
			f.members[userID] = append(f.members[userID], r)
		}
	}
	return nil
}

func (f *fakeGateway) RemoveRoles(_, userID string, roleIDs []string, _ string) error {
	f.calls = append(f.calls, fmt.Sprintf("remove %v", roleIDs))
	if f.denyRemove {
		return guild.ErrForbidden
	}
	f.members[userID] = slices.DeleteFunc(f.members[userID], func(r string) bool {
		return slices.Contains(roleIDs, r)
	})
	return nil
}

func newTestManager(t *testing.T, gw *fakeGateway) *Manager {
	t.Helper()
	store, err := kvstore.Open(t.TempDir(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewManager(store, gw, zap.NewNop())
}

// overlapSetup builds trigger A suppressing {X, Y} and trigger B
// suppressing {Y, Z} for a member holding X, Y and Z.
func overlapSetup(t *testing.T) (*Manager, *fakeGateway) {
	gw := newFakeGateway()
	m := newTestManager(t, gw)
	for i, id := range []string{"A", "B", "X", "Y", "Z"} {
		gw.role(id, 10+i)
	}
	gw.members["u"] = []string{"X", "Y", "Z"}
	require.NoError(t, m.DefineRule(testGuild, "A", []string{"X", "Y"}))
	require.NoError(t, m.DefineRule(testGuild, "B", []string{"Y", "Z"}))
	return m, gw
}

func assertOwnedNotHeld(t *testing.T, m *Manager, gw *fakeGateway, user string) {
	t.Helper()
	l, err := m.Ledger(testGuild, user)
	require.NoError(t, err)
	for _, r := range l.Owned {
		assert.NotContains(t, gw.members[user], r, "owned role %v is held", r)
	}
}

func TestOverlappingBundles(t *testing.T) {
	m, gw := overlapSetup(t)

	_, err := m.Activate(testGuild, "u", "A")
	require.NoError(t, err)
	l, _ := m.Ledger(testGuild, "u")
	assert.ElementsMatch(t, []string{"X", "Y"}, l.Owned)
	assert.ElementsMatch(t, []string{"Z", "A"}, gw.members["u"])
	assertOwnedNotHeld(t, m, gw, "u")

	_, err = m.Activate(testGuild, "u", "B")
	require.NoError(t, err)
	l, _ = m.Ledger(testGuild, "u")
	assert.ElementsMatch(t, []string{"X", "Y", "Z"}, l.Owned)
	assert.Equal(t, []string{"A", "B"}, l.Enabled)
	assertOwnedNotHeld(t, m, gw, "u")

	_, err = m.Deactivate(testGuild, "u", "A")
	require.NoError(t, err)
	l, _ = m.Ledger(testGuild, "u")
	assert.ElementsMatch(t, []string{"Y", "Z"}, l.Owned)
	assert.ElementsMatch(t, []string{"B", "X"}, gw.members["u"])
	assertOwnedNotHeld(t, m, gw, "u")

	_, err = m.Deactivate(testGuild, "u", "B")
	require.NoError(t, err)
	l, _ = m.Ledger(testGuild, "u")
	assert.Empty(t, l.Owned)
	assert.Empty(t, l.Enabled)
	assert.ElementsMatch(t, []string{"X", "Y", "Z"}, gw.members["u"])
}

func TestActivateTwice(t *testing.T) {
	m, gw := overlapSetup(t)

	_, err := m.Activate(testGuild, "u", "A")
	require.NoError(t, err)
	calls := len(gw.calls)
	before, _ := m.Ledger(testGuild, "u")

	_, err = m.Activate(testGuild, "u", "A")
	assert.ErrorIs(t, err, guild.ErrAlreadyActive)
	assert.Len(t, gw.calls, calls)
	after, _ := m.Ledger(testGuild, "u")
	assert.Equal(t, before, after)
}

func TestActivateChecks(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(gw *fakeGateway)
		trigger string
		want    error
	}{
		{"no permission", func(gw *fakeGateway) { gw.canManage = false }, "A", guild.ErrPermissionDenied},
		{"no rule", func(gw *fakeGateway) {}, "X", guild.ErrNotFound},
		{"already held", func(gw *fakeGateway) { gw.members["u"] = append(gw.members["u"], "A") }, "A", guild.ErrAlreadyActive},
		{"above bot", func(gw *fakeGateway) { gw.role("A", 60) }, "A", guild.ErrHierarchy},
		{"same position smaller id", func(gw *fakeGateway) { gw.roles["A"] = guild.Rank{Position: 50, ID: "1"} }, "A", guild.ErrHierarchy},
		{"trigger deleted", func(gw *fakeGateway) { delete(gw.roles, "A") }, "A", guild.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, gw := overlapSetup(t)
			tt.setup(gw)
			_, err := m.Activate(testGuild, "u", tt.trigger)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, gw.calls)
		})
	}
}

func TestDeactivateChecks(t *testing.T) {
	m, gw := overlapSetup(t)

	_, err := m.Deactivate(testGuild, "u", "A")
	assert.ErrorIs(t, err, guild.ErrNotActive)

	// held but not enabled through the manager
	gw.members["u"] = append(gw.members["u"], "A")
	_, err = m.Deactivate(testGuild, "u", "A")
	assert.ErrorIs(t, err, guild.ErrNotActive)

	_, err = m.Deactivate(testGuild, "u", "Q")
	assert.ErrorIs(t, err, guild.ErrNotFound)
	assert.Empty(t, gw.calls)
}

func TestBlockedRoles(t *testing.T) {
	m, gw := overlapSetup(t)
	gw.role("Y", 70)

	res, err := m.Activate(testGuild, "u", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, res.Blocked)
	l, _ := m.Ledger(testGuild, "u")
	assert.Equal(t, []string{"X"}, l.Owned)
	assert.ElementsMatch(t, []string{"Y", "Z", "A"}, gw.members["u"])
	assertOwnedNotHeld(t, m, gw, "u")
}

func TestGatewayDeniedKeepsTrigger(t *testing.T) {
	m, gw := overlapSetup(t)
	gw.denyRemove = true

	_, err := m.Activate(testGuild, "u", "A")
	assert.ErrorIs(t, err, guild.ErrGatewayDenied)
	assert.ErrorIs(t, err, guild.ErrForbidden)
	assert.Contains(t, gw.members["u"], "A")

	l, _ := m.Ledger(testGuild, "u")
	assert.Empty(t, l.Enabled)
	assert.Empty(t, l.Owned)
}

func TestGatewayDeniedOnRestore(t *testing.T) {
	m, gw := overlapSetup(t)
	_, err := m.Activate(testGuild, "u", "A")
	require.NoError(t, err)

	gw.denyAdd = true
	_, err = m.Deactivate(testGuild, "u", "A")
	assert.ErrorIs(t, err, guild.ErrGatewayDenied)
	assert.NotContains(t, gw.members["u"], "A")

	l, _ := m.Ledger(testGuild, "u")
	assert.Empty(t, l.Enabled)
	assert.ElementsMatch(t, []string{"X", "Y"}, l.Owned)
	assertOwnedNotHeld(t, m, gw, "u")
}

func TestDeactivateDropsDeletedRoles(t *testing.T) {
	m, gw := overlapSetup(t)
	_, err := m.Activate(testGuild, "u", "A")
	require.NoError(t, err)

	delete(gw.roles, "X")
	_, err = m.Deactivate(testGuild, "u", "A")
	require.NoError(t, err)
	l, _ := m.Ledger(testGuild, "u")
	assert.Empty(t, l.Owned)
	assert.ElementsMatch(t, []string{"Y", "Z"}, gw.members["u"])
}

func TestPartition(t *testing.T) {
	gw := newFakeGateway()
	m := newTestManager(t, gw)
	gw.role("low", 10)
	gw.role("high", 60)
	gw.role("same", 50)

	tests := []struct {
		name    string
		roles   []string
		below   []string
		blocked []string
		gone    []string
	}{
		{"empty", nil, nil, nil, nil},
		{"below top", []string{"low"}, []string{"low"}, nil, nil},
		{"above top", []string{"high"}, nil, []string{"high"}, nil},
		{"same position newer id", []string{"same"}, []string{"same"}, nil, nil},
		{"deleted role", []string{"missing"}, nil, nil, []string{"missing"}},
		{"mixed", []string{"high", "low", "missing"}, []string{"low"}, []string{"high"}, []string{"missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			below, blocked, gone := m.partition(testGuild, gw.top, tt.roles)
			assert.Equal(t, tt.below, below)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.gone, gone)
		})
	}
}

func TestRules(t *testing.T) {
	m := newTestManager(t, newFakeGateway())
	require.NoError(t, m.DefineRule(testGuild, "30", []string{"1", "1", "30", "2"}))
	require.NoError(t, m.DefineRule(testGuild, "200", nil))
	assert.ErrorIs(t, m.DefineRule(testGuild, "30", nil), guild.ErrAlreadyExists)
	assert.ErrorIs(t, m.EditRule(testGuild, "31", nil), guild.ErrNotFound)

	rules, err := m.Rules(testGuild)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "30", rules[0].Trigger)
	assert.Equal(t, []string{"1", "2"}, rules[0].Suppressed)
	assert.Equal(t, "200", rules[1].Trigger)

	require.NoError(t, m.EditRule(testGuild, "200", []string{"5"}))
	require.NoError(t, m.RemoveRule(testGuild, "30"))
	assert.ErrorIs(t, m.RemoveRule(testGuild, "30"), guild.ErrNotFound)

	rules, err = m.Rules(testGuild)
	require.NoError(t, err)
	assert.Equal(t, []Rule{{Trigger: "200", Suppressed: []string{"5"}}}, rules)
}

func TestRemoveRuleWhileEnabled(t *testing.T) {
	m, gw := overlapSetup(t)
	_, err := m.Activate(testGuild, "u", "A")
	require.NoError(t, err)
	require.NoError(t, m.RemoveRule(testGuild, "A"))

	_, err = m.Deactivate(testGuild, "u", "A")
	assert.ErrorIs(t, err, guild.ErrNotFound)
	assert.NotContains(t, gw.members["u"], "X")

	require.NoError(t, m.DefineRule(testGuild, "A", []string{"X", "Y"}))
	_, err = m.Deactivate(testGuild, "u", "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"X", "Y", "Z"}, gw.members["u"])
	assert.Contains(t, ruleRemovedReply, "disable it for them")
}

func TestSuppressAll(t *testing.T) {
	gw := newFakeGateway()
	m := newTestManager(t, gw)
	gw.role("A", 3)
	gw.role("B", 4)
	gw.role("X", 1)
	gw.role("Y", 2)
	require.NoError(t, m.DefineRule(testGuild, "A", nil))
	require.NoError(t, m.DefineRule(testGuild, "B", nil))

	got, err := m.SuppressAll(testGuild, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, got)

	_, err = m.SuppressAll(testGuild, "X")
	assert.ErrorIs(t, err, guild.ErrNotFound)
}

func TestHumanizeList(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a and b"},
		{[]string{"a", "b", "c"}, "a, b, and c"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeList(tt.in))
		})
	}
}
