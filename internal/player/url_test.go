package player

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSyncPage(t *testing.T) {
	t.Run("page one removes the parameter", func(t *testing.T) {
		u := mustParse(t, "/videos/power-electronics/v1?page=4")
		assert.Equal(t, "/videos/power-electronics/v1", SyncPage(u, 1).String())
	})

	t.Run("other pages set the parameter", func(t *testing.T) {
		u := mustParse(t, "/videos/power-electronics/v1?page=5")
		assert.Equal(t, "/videos/power-electronics/v1?page=3", SyncPage(u, 3).String())
	})

	t.Run("preserves other parameters", func(t *testing.T) {
		u := mustParse(t, "/videos/power-electronics/v1?t=30")
		assert.Equal(t, "/videos/power-electronics/v1?t=30&page=2", SyncPage(u, 2).String())
	})

	t.Run("keeps query order", func(t *testing.T) {
		u := mustParse(t, "/v?utm=x&page=5&b=%E4%B8%AD")
		assert.Equal(t, "/v?utm=x&page=2&b=%E4%B8%AD", SyncPage(u, 2).String())
		assert.Equal(t, "/v?utm=x&b=%E4%B8%AD", SyncPage(u, 1).String())
	})

	t.Run("drops repeated page parameters", func(t *testing.T) {
		u := mustParse(t, "/v?page=2&x=1&page=3")
		assert.Equal(t, "/v?page=2&x=1", SyncPage(u, 2).String())
	})

	t.Run("idempotent", func(t *testing.T) {
		u := mustParse(t, "/videos/power-electronics/v1?page=9&x=1")
		for _, page := range []int{1, 2, 7} {
			once := SyncPage(u, page)
			twice := SyncPage(once, page)
			assert.Equal(t, once.String(), twice.String())
		}
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		u := mustParse(t, "/v?page=5")
		SyncPage(u, 3)
		assert.Equal(t, "page=5", u.RawQuery)
	})
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		page        int
		want        string
		wantChanged bool
	}{
		{"clamped page", "/videos/power-electronics/v1?page=5", 3, "/videos/power-electronics/v1?page=3", true},
		{"already canonical", "/videos/power-electronics/v1?page=3", 3, "/videos/power-electronics/v1?page=3", false},
		{"first page without param", "/videos/power-electronics/v1", 1, "/videos/power-electronics/v1", false},
		{"explicit first page", "/videos/power-electronics/v1?page=1", 1, "/videos/power-electronics/v1", true},
		{"garbage page", "/videos/power-electronics/v1?page=abc", 1, "/videos/power-electronics/v1", true},
		{"other params before page", "/videos/power-electronics/v1?utm=x&page=2", 2, "/videos/power-electronics/v1?utm=x&page=2", false},
		{"other params only", "/videos/power-electronics/v1?utm=x", 1, "/videos/power-electronics/v1?utm=x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Canonical(mustParse(t, tt.raw), tt.page)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}
