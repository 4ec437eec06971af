package league

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRegistry() *Registry {
	return NewRegistry([]TeamEntry{
		{Name: "Lakers", Aliases: []string{"LAL", "los angeles"}, OwnerID: "owner-1"},
		{Name: "Celtics", Aliases: []string{"BOS"}, OwnerID: "owner-2"},
		{Name: "Nuggets"},
	})
}

func TestCanonical(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{"Lakers", "Lakers", true},
		{"lakers", "Lakers", true},
		{"LAL", "Lakers", true},
		{"lal", "Lakers", true},
		{" los angeles ", "Lakers", true},
		{"bos", "Celtics", true},
		{"Nuggets", "Nuggets", true},
		{"Warriors", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Canonical(tt.token)
		assert.Equal(t, tt.ok, ok, "token %q", tt.token)
		assert.Equal(t, tt.want, got, "token %q", tt.token)
	}
}

func TestTeamForOwner(t *testing.T) {
	r := testRegistry()

	team, ok := r.TeamForOwner("owner-2")
	assert.True(t, ok)
	assert.Equal(t, "Celtics", team)

	_, ok = r.TeamForOwner("stranger")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, []string{"Lakers", "Celtics", "Nuggets"}, r.Names())
}
