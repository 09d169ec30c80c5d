package channellist

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

const testGuild = "1"

func category(id, name string, pos int, overwrites ...*discordgo.PermissionOverwrite) *discordgo.Channel {
	return &discordgo.Channel{ID: id, GuildID: testGuild, Name: name, Position: pos,
		Type: discordgo.ChannelTypeGuildCategory, PermissionOverwrites: overwrites}
}

func text(id, parent, topic string, pos int, overwrites ...*discordgo.PermissionOverwrite) *discordgo.Channel {
	return &discordgo.Channel{ID: id, GuildID: testGuild, ParentID: parent, Topic: topic, Position: pos,
		Type: discordgo.ChannelTypeGuildText, PermissionOverwrites: overwrites}
}

func voice(id, parent string, pos int) *discordgo.Channel {
	return &discordgo.Channel{ID: id, GuildID: testGuild, ParentID: parent, Position: pos,
		Type: discordgo.ChannelTypeGuildVoice}
}

func hide(roleID string) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{ID: roleID, Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel}
}

func show(roleID string) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{ID: roleID, Type: discordgo.PermissionOverwriteTypeRole,
		Allow: discordgo.PermissionViewChannel}
}

func testChannels() []*discordgo.Channel {
	return []*discordgo.Channel{
		voice("23", "20", 0),
		text("21", "20", "say hi", 1),
		category("20", "General", 1),
		text("12", "10", "", 0),
		category("10", "Info", 0),
		text("22", "20", "", 0),
		text("31", "30", "", 0, hide("5")),
		category("30", "Staff", 2),
		text("99", "", "no category", 0),
	}
}

var (
	viewer   = &discordgo.Role{ID: "5", Permissions: discordgo.PermissionViewChannel}
	noAccess = &discordgo.Role{ID: "6"}
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		viewer   *discordgo.Role
		ignore   bool
		want     string
	}{
		{
			name: "everything",
			want: "**INFO**\n<#12>\n\n**GENERAL**\n<#22>\n<#21> - say hi\n<#23>\n\n**STAFF**\n<#31>",
		},
		{
			name:     "header and blacklist",
			settings: Settings{Header: "Channels", IgnoredCategories: []string{"10"}, IgnoredChannels: []string{"21"}},
			want:     "Channels\n\n**GENERAL**\n<#22>\n<#23>\n\n**STAFF**\n<#31>",
		},
		{
			name:     "blacklist ignored",
			settings: Settings{IgnoredCategories: []string{"10"}},
			ignore:   true,
			want:     "**INFO**\n<#12>\n\n**GENERAL**\n<#22>\n<#21> - say hi\n<#23>\n\n**STAFF**\n<#31>",
		},
		{
			name:   "category without visible channels is omitted",
			viewer: viewer,
			want:   "**INFO**\n<#12>\n\n**GENERAL**\n<#22>\n<#21> - say hi\n<#23>",
		},
		{
			name:   "nothing visible",
			viewer: noAccess,
			want:   emptyList,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(testChannels(), tt.settings, tt.viewer, tt.ignore)
			want := []*discordgo.MessageEmbed{{Description: tt.want, Color: DefaultColor}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Render() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderDeterministic(t *testing.T) {
	a := Render(testChannels(), Settings{Color: 0x123456}, viewer, false)
	channels := testChannels()
	for i, j := 0, len(channels)-1; i < j; i, j = i+1, j-1 {
		channels[i], channels[j] = channels[j], channels[i]
	}
	b := Render(channels, Settings{Color: 0x123456}, viewer, false)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestCanSee(t *testing.T) {
	tests := []struct {
		name string
		role *discordgo.Role
		ch   *discordgo.Channel
		want bool
	}{
		{"base permission", viewer, text("1", "", "", 0), true},
		{"no base permission", noAccess, text("1", "", "", 0), false},
		{"denied", viewer, text("1", "", "", 0, hide("5")), false},
		{"allowed", noAccess, text("1", "", "", 0, show("6")), true},
		{"other role overwrite", viewer, text("1", "", "", 0, hide("6")), true},
		{"administrator is not considered", &discordgo.Role{ID: "7", Permissions: discordgo.PermissionAdministrator}, text("1", "", "", 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canSee(tt.role, tt.ch))
		})
	}
}

func TestPagify(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "abc", 10, []string{"abc"}},
		{"empty", "", 10, nil},
		{"split at newline", "aaaa\nbbbb\ncc", 10, []string{"aaaa\nbbbb", "\ncc"}},
		{"hard split", "aaaaaaaaaaaa", 5, []string{"aaaaa", "aaaaa", "aa"}},
		{"counts runes", "ééééé", 5, []string{"ééééé"}},
		{"whitespace dropped", "aaaa\n    \n", 5, []string{"aaaa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pagify(tt.text, tt.limit))
		})
	}
}

func TestRenderPagination(t *testing.T) {
	var channels []*discordgo.Channel
	channels = append(channels, category("10", "big", 0))
	for i := 0; i < 300; i++ {
		channels = append(channels, text(fmt.Sprintf("%d", 1000+i), "10", strings.Repeat("x", 20), i))
	}
	embeds := Render(channels, Settings{}, nil, false)
	require.Len(t, embeds, 2)
	for _, e := range embeds {
		total := len([]rune(e.Description))
		for _, f := range e.Fields {
			assert.Equal(t, "\u200b", f.Name)
			assert.LessOrEqual(t, len([]rune(f.Value)), sliceLength)
			total += len([]rune(f.Value))
		}
		assert.LessOrEqual(t, len([]rune(e.Description)), 2*sliceLength)
		assert.LessOrEqual(t, total, embedLength)
	}
	assert.NotEmpty(t, embeds[0].Fields)
}

type fakeGateway struct {
	channels []*discordgo.Channel
	roles    map[string]*discordgo.Role
	messages map[string]*discordgo.Message
	denyEdit bool
	edits    int
	nextID   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels: testChannels(),
		roles:    map[string]*discordgo.Role{"5": viewer},
		messages: make(map[string]*discordgo.Message),
	}
}

func (f *fakeGateway) Channels(string) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeGateway) Role(_, roleID string) (*discordgo.Role, error) {
	r, ok := f.roles[roleID]
	if !ok {
		return nil, guild.ErrUnknown
	}
	return r, nil
}

func (f *fakeGateway) Message(_, messageID string) (*discordgo.Message, error) {
	m, ok := f.messages[messageID]
	if !ok {
		return nil, guild.ErrUnknown
	}
	return m, nil
}

func (f *fakeGateway) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	f.nextID++
	m := &discordgo.Message{ID: fmt.Sprint(f.nextID), ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}
	f.messages[m.ID] = m
	return m, nil
}

func (f *fakeGateway) EditEmbed(_, messageID string, embed *discordgo.MessageEmbed) error {
	if f.denyEdit {
		return guild.ErrForbidden
	}
	f.edits++
	f.messages[messageID].Embeds = []*discordgo.MessageEmbed{embed}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeGateway) {
	t.Helper()
	store, err := kvstore.Open(t.TempDir(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	gw := newFakeGateway()
	return NewService(store, gw, zap.NewNop()), gw
}

func TestReconcile(t *testing.T) {
	s, gw := newTestService(t)

	_, err := s.Publish(testGuild, "c", "", false, true)
	require.NoError(t, err)
	_, err = s.Publish(testGuild, "c", "5", false, true)
	require.NoError(t, err)
	_, err = s.Publish(testGuild, "c", "", false, false)
	require.NoError(t, err)

	instances, err := s.Instances(testGuild)
	require.NoError(t, err)
	assert.Len(t, instances, 2)

	report, err := s.Reconcile(testGuild)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Unchanged: 2}, report)

	gw.channels = append(gw.channels, text("24", "20", "new", 5))
	report, err = s.Reconcile(testGuild)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Edited: 2}, report)
	assert.Contains(t, gw.messages["1"].Embeds[0].Description, "<#24> - new")

	report, err = s.Reconcile(testGuild)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Unchanged: 2}, report)
	assert.Equal(t, 2, gw.edits)
}

func TestReconcileSkips(t *testing.T) {
	s, gw := newTestService(t)
	_, err := s.Publish(testGuild, "c", "", false, true)
	require.NoError(t, err)
	_, err = s.Publish(testGuild, "c", "5", false, true)
	require.NoError(t, err)

	delete(gw.messages, "1")
	delete(gw.roles, "5")
	report, err := s.Reconcile(testGuild)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Skipped: 2}, report)

	instances, err := s.Instances(testGuild)
	require.NoError(t, err)
	assert.Len(t, instances, 2)
}

func TestReconcileEditDenied(t *testing.T) {
	s, gw := newTestService(t)
	_, err := s.Publish(testGuild, "c", "", false, true)
	require.NoError(t, err)

	gw.denyEdit = true
	require.NoError(t, s.SetHeader(testGuild, "hello"))
	report, err := s.Reconcile(testGuild)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Skipped: 1}, report)
}

var errStoreDown = errors.New("store down")

// failingStore fails every update of keys containing failOn.
type failingStore struct {
	kvstore.Store
	failOn string
}

func (f failingStore) Update(key string, fn func(old []byte) ([]byte, error)) error {
	if strings.Contains(key, f.failOn) {
		return errStoreDown
	}
	return f.Store.Update(key, fn)
}

func TestPublishRecordFails(t *testing.T) {
	store, err := kvstore.Open(t.TempDir(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	core, logs := observer.New(zapcore.WarnLevel)
	gw := newFakeGateway()
	s := NewService(failingStore{Store: store, failOn: "instances"}, gw, zap.New(core))

	inst, err := s.Publish(testGuild, "c", "", false, true)
	require.ErrorIs(t, err, errStoreDown)
	require.NotNil(t, inst)
	assert.Contains(t, gw.messages, inst.MessageID)
	assert.Contains(t, err.Error(), inst.MessageID)

	entries := logs.FilterField(zap.String("message", inst.MessageID)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	instances, err := s.Instances(testGuild)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestSettingsReconcile(t *testing.T) {
	s, gw := newTestService(t)
	_, err := s.Publish(testGuild, "c", "", false, true)
	require.NoError(t, err)

	require.NoError(t, s.SetColor(testGuild, 0xabcdef))
	assert.Equal(t, 0xabcdef, gw.messages["1"].Embeds[0].Color)

	added, err := s.ToggleCategory(testGuild, "10")
	require.NoError(t, err)
	assert.True(t, added)
	assert.NotContains(t, gw.messages["1"].Embeds[0].Description, "INFO")

	added, err = s.ToggleCategory(testGuild, "10")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Contains(t, gw.messages["1"].Embeds[0].Description, "INFO")

	added, err = s.ToggleChannel(testGuild, "21")
	require.NoError(t, err)
	assert.True(t, added)

	settings, err := s.Settings(testGuild)
	require.NoError(t, err)
	assert.Equal(t, []string{"21"}, settings.IgnoredChannels)
	assert.Empty(t, settings.IgnoredCategories)
}

func TestUnpublish(t *testing.T) {
	s, gw := newTestService(t)
	inst, err := s.Publish(testGuild, "c", "", false, true)
	require.NoError(t, err)

	require.NoError(t, s.Unpublish(testGuild, inst.MessageID))
	assert.ErrorIs(t, s.Unpublish(testGuild, inst.MessageID), guild.ErrNotFound)
	assert.Contains(t, gw.messages, inst.MessageID)

	_, err = s.Publish(testGuild, "c", "404", false, true)
	assert.ErrorIs(t, err, guild.ErrNotFound)
}

func TestGenerate(t *testing.T) {
	s, gw := newTestService(t)
	require.NoError(t, s.Generate(testGuild, "c", ""))
	assert.Len(t, gw.messages, 1)
	instances, err := s.Instances(testGuild)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"#e74c3c", 0xe74c3c, false},
		{"0xE74C3C", 0xe74c3c, false},
		{"e74c3c", 0xe74c3c, false},
		{"15158332", 15158332, false},
		{"#1000000", 0, true},
		{"red", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
