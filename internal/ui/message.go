package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/peai/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgVideosLoaded MsgKind = iota
	MsgBrowserOpened
)

type videosLoaded struct {
	videos []models.Video
	err    error
}

type browserOpened struct {
	url string
	err error
}

// videosLoadedMsg is the constructor for [MsgVideosLoaded]
func videosLoadedMsg(videos []models.Video, err error) Msg {
	return Msg{kind: MsgVideosLoaded, data: videosLoaded{videos, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(url string, err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: browserOpened{url, err}}
}
