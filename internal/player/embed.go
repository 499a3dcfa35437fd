package player

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/peai/internal/shared"
	"github.com/desertthunder/peai/internal/validation"
)

const (
	// BaseURL is the Bilibili embed player endpoint.
	BaseURL = "https://player.bilibili.com/player.html"
	// Sandbox is the iframe sandbox token list for the embedded player.
	Sandbox = "allow-scripts allow-same-origin allow-presentation allow-forms"
	// ReferrerPolicy is the iframe referrer policy for the embedded player.
	ReferrerPolicy = "strict-origin-when-cross-origin"
	// Origin is the only frame source the content security policy allows.
	Origin = "https://player.bilibili.com"
)

var (
	// ErrRejected means the bvid or a derived parameter failed validation.
	ErrRejected = fmt.Errorf("%w: player url rejected", shared.ErrValidation)

	paramKeyPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	paramValuePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// Options are the presentation flags of an embedded player. The zero value is not the
// default, use [DefaultOptions].
type Options struct {
	Autoplay bool
	Muted    bool
}

// DefaultOptions starts paused and muted.
func DefaultOptions() Options {
	return Options{Autoplay: false, Muted: true}
}

// Param is one ordered query parameter of the player URL.
type Param struct {
	Key   string
	Value string
}

// IsValidBvid reports whether bvid is a well-formed Bilibili video id.
func IsValidBvid(bvid string) bool {
	return validation.BvidPattern.MatchString(bvid)
}

// SanitizeBvid trims surrounding whitespace and returns the bvid if it is valid.
// Case is preserved since bvids are case-sensitive.
func SanitizeBvid(bvid string) (string, bool) {
	cleaned := strings.TrimSpace(bvid)
	if !IsValidBvid(cleaned) {
		return "", false
	}
	return cleaned, true
}

// Params returns the ordered player query for an already validated bvid.
func Params(bvid string, page int, opts Options) []Param {
	params := []Param{
		{"bvid", bvid},
		{"p", strconv.Itoa(ClampPage(page))},
		{"as_wide", "1"},
		{"high_quality", "1"},
		{"danmaku", "0"},
	}
	if opts.Autoplay {
		params = append(params, Param{"autoplay", "1"})
	}
	if opts.Muted {
		params = append(params, Param{"muted", "1"})
	}
	return params
}

// ValidateParams checks every key and value against the allowed character sets.
// It returns the first offending parameter wrapped in [ErrRejected].
func ValidateParams(params []Param) error {
	for _, p := range params {
		if !paramKeyPattern.MatchString(p.Key) {
			return fmt.Errorf("%w: invalid key %q", ErrRejected, p.Key)
		}
		if !paramValuePattern.MatchString(p.Value) {
			return fmt.Errorf("%w: invalid value for %s", ErrRejected, p.Key)
		}
	}
	return nil
}

// BuildPlayerURL builds the embed URL for bvid at page.
//
// The bvid must match the bvid pattern exactly, and the page is clamped to [1, MaxPage].
// Parameters appear in a fixed order: bvid, p, as_wide, high_quality, danmaku, then
// autoplay and muted when enabled.
func BuildPlayerURL(bvid string, page int, opts Options) (string, error) {
	if !IsValidBvid(bvid) {
		return "", fmt.Errorf("%w: invalid bvid", ErrRejected)
	}

	params := Params(bvid, page, opts)
	if err := ValidateParams(params); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(BaseURL)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String(), nil
}

// WatchURL is the public bilibili.com page for bvid at page, used by the CLI and TUI.
func WatchURL(bvid string, page int) (string, error) {
	if !IsValidBvid(bvid) {
		return "", fmt.Errorf("%w: invalid bvid", ErrRejected)
	}
	u := "https://www.bilibili.com/video/" + bvid
	if p := ClampPage(page); p > 1 {
		u += "?p=" + strconv.Itoa(p)
	}
	return u, nil
}
