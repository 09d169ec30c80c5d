package listmaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := kvstore.Open(t.TempDir(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, zap.NewNop())
}

func TestSplitValues(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"plain", "name age", []string{"name", "age"}, false},
		{"quoted", `"Robert Smith" 26`, []string{"Robert Smith", "26"}, false},
		{"extra spaces", "  a   b ", []string{"a", "b"}, false},
		{"empty", "", nil, false},
		{"unterminated quote", `"a b`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitValues(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRows(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, s.Create("friends", "1", []string{"name", "age"}))
	assert.ErrorIs(t, s.Create("friends", "2", []string{"x"}), guild.ErrAlreadyExists)

	require.NoError(t, s.AddRow("friends", "1", []string{"Robert Smith", "26"}))
	require.NoError(t, s.AddRow("friends", "1", []string{"Ann", "31"}))
	require.NoError(t, s.AddRow("friends", "1", []string{"Bo", "7"}))

	assert.ErrorIs(t, s.AddRow("friends", "2", []string{"Eve", "1"}), ErrNotOwner)
	assert.ErrorIs(t, s.AddRow("friends", "1", []string{"Eve"}), ErrColumnMismatch)
	assert.ErrorIs(t, s.AddRow("enemies", "1", []string{"Eve", "1"}), guild.ErrNotFound)

	assert.ErrorIs(t, s.RemoveRow("friends", "1", 0), ErrBadRow)
	assert.ErrorIs(t, s.RemoveRow("friends", "1", 4), ErrBadRow)
	assert.ErrorIs(t, s.RemoveRow("friends", "2", 1), ErrNotOwner)
	require.NoError(t, s.RemoveRow("friends", "1", 2))

	l, err := s.Get("friends")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Robert Smith", "26"}, {"Bo", "7"}}, l.Rows)
}

func TestShow(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, s.Create("friends", "1", []string{"name", "age"}))
	require.NoError(t, s.AddRow("friends", "1", []string{"Robert Smith", "26"}))
	require.NoError(t, s.AddRow("friends", "1", []string{"Bo", "7"}))

	out, err := s.Show("friends")
	require.NoError(t, err)
	want := "" +
		"#  name          age\n" +
		"-  ------------  ---\n" +
		"1  Robert Smith  26\n" +
		"2  Bo            7\n"
	assert.Equal(t, want, out)

	_, err = s.Show("missing")
	assert.ErrorIs(t, err, guild.ErrNotFound)
}

func TestDeleteAndLists(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, s.Create("b", "1", []string{"x"}))
	require.NoError(t, s.Create("a", "2", []string{"x"}))

	lists, err := s.Lists()
	require.NoError(t, err)
	assert.Equal(t, []Summary{{"a", "2"}, {"b", "1"}}, lists)

	assert.ErrorIs(t, s.Delete("a", "1"), ErrNotOwner)
	require.NoError(t, s.Delete("a", "2"))
	assert.ErrorIs(t, s.Delete("a", "2"), guild.ErrNotFound)

	lists, err = s.Lists()
	require.NoError(t, err)
	assert.Equal(t, []Summary{{"b", "1"}}, lists)
}
