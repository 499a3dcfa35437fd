package player

import (
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter carrying the current part.
const PageParam = "page"

// SyncPage returns a copy of u whose page parameter reflects page.
// Page 1 (or below) removes the parameter. Other query parameters keep their order and encoding;
// an existing page parameter is rewritten in place and any repeats of it are dropped.
func SyncPage(u *url.URL, page int) *url.URL {
	out := *u
	out.ForceQuery = false

	var pairs []string
	written := page <= 1
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		if !isPageParam(pair) {
			pairs = append(pairs, pair)
			continue
		}
		if !written {
			pairs = append(pairs, PageParam+"="+strconv.Itoa(page))
			written = true
		}
	}
	if !written {
		pairs = append(pairs, PageParam+"="+strconv.Itoa(page))
	}

	out.RawQuery = strings.Join(pairs, "&")
	return &out
}

func isPageParam(pair string) bool {
	key, _, _ := strings.Cut(pair, "=")
	if unescaped, err := url.QueryUnescape(key); err == nil {
		key = unescaped
	}
	return key == PageParam
}

// Canonical returns the request path and query for u after syncing page, and whether
// it differs from the original. The view emits history.replaceState only when it does.
func Canonical(u *url.URL, page int) (string, bool) {
	synced := SyncPage(u, page).RequestURI()
	return synced, synced != u.RequestURI()
}
