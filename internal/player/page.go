package player

import (
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/peai/internal/models"
)

// MaxPage is the largest page number accepted anywhere in the player.
const MaxPage = 9999

// ParsePage reads a leading base-10 integer from raw, ignoring leading whitespace
// and trailing garbage. Missing or non-numeric input yields 1.
//
//	ParsePage("3")    == 3
//	ParsePage(" 7px") == 7
//	ParsePage("abc")  == 1
//	ParsePage("-2")   == -2
func ParsePage(raw string) int {
	n, ok := parseLeadingInt(raw)
	if !ok {
		return 1
	}
	return n
}

// SanitizePage coerces raw into a page number in [1, MaxPage]. Fractions are floored and
// anything unparsable or below 1 becomes 1.
func SanitizePage(raw string) int {
	raw = strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(f) || f < 1 {
			return 1
		}
		return ClampPage(int(math.Min(math.Floor(f), MaxPage)))
	}

	n, ok := parseLeadingInt(raw)
	if !ok {
		return 1
	}
	return ClampPage(n)
}

// ClampPage limits page to [1, MaxPage].
func ClampPage(page int) int {
	return max(1, min(page, MaxPage))
}

// ResolvePage clamps requested into [1, n]. When n is 0 the result is 1.
func ResolvePage(requested, n int) int {
	return max(1, min(requested, n))
}

func parseLeadingInt(raw string) (int, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\f\v")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Too many digits for an int, saturate.
		n = math.MaxInt32
	}
	if neg {
		n = -n
	}
	return n, true
}

// Navigation is the resolved position within a video for one page view.
type Navigation struct {
	Requested int               // page parsed from the request
	Page      int               // valid page in [1, Total]
	Total     int               // number of parts
	Part      *models.VideoPart // nil when the video has no parts
	Prev      *models.VideoPart
	Next      *models.VideoPart
}

// Resolve parses raw and resolves it against video's parts.
//
// The current part is the one whose page equals the resolved page, falling back to the
// first part when the fixture has gaps in its page numbers.
func Resolve(video models.Video, raw string) Navigation {
	total := len(video.Parts)
	requested := ParsePage(raw)
	nav := Navigation{
		Requested: requested,
		Page:      ResolvePage(requested, total),
		Total:     total,
	}
	if total == 0 {
		return nav
	}

	idx := 0
	for i, p := range video.Parts {
		if p.Page == nav.Page {
			idx = i
			break
		}
	}

	nav.Part = &video.Parts[idx]
	if idx > 0 {
		nav.Prev = &video.Parts[idx-1]
	}
	if idx < total-1 {
		nav.Next = &video.Parts[idx+1]
	}
	return nav
}

// Corrected reports whether the requested page had to be clamped.
func (n Navigation) Corrected() bool {
	return n.Requested != n.Page
}

// Progress is round(page / total * 100), or 0 without parts.
func (n Navigation) Progress() int {
	if n.Total == 0 {
		return 0
	}
	return int(math.Round(float64(n.Page) / float64(n.Total) * 100))
}

// HasPart reports whether a current part was resolved.
func (n Navigation) HasPart() bool {
	return n.Part != nil
}
