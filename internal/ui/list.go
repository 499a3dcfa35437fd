package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/peai/internal/models"
)

var (
	_ list.Item = videoItem{}
	_ list.Item = partItem{}
)

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title + " " + i.video.Bvid }
func (i videoItem) Title() string       { return i.video.Title }
func (i videoItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %dP", i.video.Bvid, i.video.Duration, len(i.video.Parts))
	if i.video.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.video.Description)
	}
	return desc
}

// partItem wraps [models.VideoPart] to implement [list.Item].
type partItem struct {
	part models.VideoPart
}

func (i partItem) FilterValue() string { return i.part.Title }
func (i partItem) Title() string       { return fmt.Sprintf("P%d %s", i.part.Page, i.part.Title) }
func (i partItem) Description() string { return i.part.Duration }
