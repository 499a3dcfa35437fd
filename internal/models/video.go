package models

// Video is a single lesson in the catalog. It may be split into several parts (pages).
type Video struct {
	ID          string      `json:"id" validate:"required"`
	Title       string      `json:"title" validate:"required"`
	Bvid        string      `json:"bvid" validate:"required,bvid"`
	Cover       string      `json:"cover" validate:"required"`
	Duration    string      `json:"duration" validate:"required"`
	Description string      `json:"description,omitempty"`
	Parts       []VideoPart `json:"parts" validate:"required,min=1,unique=Page,dive"`
}

// VideoPart is one page of a [Video].
type VideoPart struct {
	Page     int    `json:"page" validate:"min=1,max=9999"`
	Title    string `json:"title" validate:"required"`
	Duration string `json:"duration" validate:"required"`
}

// Part returns the part with the given page number, if any.
func (v Video) Part(page int) (VideoPart, bool) {
	for _, p := range v.Parts {
		if p.Page == page {
			return p, true
		}
	}
	return VideoPart{}, false
}

// MultiPart reports whether the video has more than one part.
func (v Video) MultiPart() bool {
	return len(v.Parts) > 1
}
