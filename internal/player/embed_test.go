package player

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/peai/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlayerURL(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		got, err := BuildPlayerURL("BV1xx411c7mD", 2, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t,
			"https://player.bilibili.com/player.html?bvid=BV1xx411c7mD&p=2&as_wide=1&high_quality=1&danmaku=0&muted=1",
			got)
		assert.Contains(t, got, "bvid=BV1xx411c7mD&p=2")
		assert.NotContains(t, got, "autoplay")
	})

	t.Run("autoplay and unmuted", func(t *testing.T) {
		got, err := BuildPlayerURL("BV1xx411c7mD", 1, Options{Autoplay: true})
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(got, "&danmaku=0&autoplay=1"))
		assert.NotContains(t, got, "muted")
	})

	t.Run("page is clamped", func(t *testing.T) {
		low, err := BuildPlayerURL("BV1xx411c7mD", -4, DefaultOptions())
		require.NoError(t, err)
		assert.Contains(t, low, "&p=1&")

		high, err := BuildPlayerURL("BV1xx411c7mD", 123456, DefaultOptions())
		require.NoError(t, err)
		assert.Contains(t, high, "&p=9999&")
	})

	t.Run("valid bvids round trip", func(t *testing.T) {
		for _, bvid := range []string{"BV1xx411c7mD", "BV1Ht411v7Ue", "BV1Jx411Q7kX", "BVzzzzzzzzzz"} {
			got, err := BuildPlayerURL(bvid, 1, DefaultOptions())
			require.NoError(t, err, bvid)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, bvid, u.Query().Get("bvid"))
			assert.Equal(t, "player.bilibili.com", u.Host)
		}
	})

	t.Run("invalid bvids are rejected", func(t *testing.T) {
		for _, bvid := range []string{"", "'; DROP--", "BV1xx411c7m", "BV1xx411c7mDD", "bv1xx411c7mD", "BV0xx411c7mD", "BV1Ox411c7mD", "BV1lx411c7mD", " BV1xx411c7mD"} {
			got, err := BuildPlayerURL(bvid, 1, DefaultOptions())
			assert.Empty(t, got, bvid)
			assert.ErrorIs(t, err, ErrRejected, bvid)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		}
	})
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  []Param
		wantErr bool
	}{
		{"defaults", Params("BV1xx411c7mD", 3, DefaultOptions()), false},
		{"dotted value", []Param{{"v", "1.2"}}, false},
		{"space in key", []Param{{"bad key", "1"}}, true},
		{"quote in value", []Param{{"bvid", "x'y"}}, true},
		{"empty value", []Param{{"p", ""}}, true},
		{"one bad among good", []Param{{"a", "1"}, {"b", "<script>"}, {"c", "2"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRejected)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeBvid(t *testing.T) {
	got, ok := SanitizeBvid("  BV1xx411c7mD\n")
	assert.True(t, ok)
	assert.Equal(t, "BV1xx411c7mD", got)

	_, ok = SanitizeBvid("BV1XX411C7MD!")
	assert.False(t, ok)
}

func TestWatchURL(t *testing.T) {
	first, err := WatchURL("BV1xx411c7mD", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://www.bilibili.com/video/BV1xx411c7mD", first)

	third, err := WatchURL("BV1xx411c7mD", 3)
	require.NoError(t, err)
	assert.Equal(t, "https://www.bilibili.com/video/BV1xx411c7mD?p=3", third)

	_, err = WatchURL("nope", 1)
	assert.ErrorIs(t, err, ErrRejected)
}
