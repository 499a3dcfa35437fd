package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/peai/internal/catalog"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	VideoListView ViewState = iota
	PartListView
	DetailView
)

// VideoSource is the part of [catalog.Catalog] the TUI reads.
type VideoSource interface {
	Videos() []models.Video
	Course() catalog.Course
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	source    VideoSource
	open      func(string) error
	opts      player.Options
	width     int
	height    int
	videoList list.Model
	partList  list.Model
	selected  *models.Video
	part      *models.VideoPart
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

// Option configures a [Model].
type Option func(*Model)

// WithOpener replaces [shared.OpenBrowser] as the way watch pages are opened.
func WithOpener(fn func(string) error) Option {
	return func(m *Model) { m.open = fn }
}

// WithPlayerOptions sets the flags of the embed URL shown in the detail view.
func WithPlayerOptions(opts player.Options) Option {
	return func(m *Model) { m.opts = opts }
}

// NewModel creates a new TUI model browsing source.
func NewModel(ctx context.Context, source VideoSource, opts ...Option) *Model {
	m := &Model{
		ctx:    ctx,
		view:   VideoListView,
		source: source,
		open:   shared.OpenBrowser,
		opts:   player.DefaultOptions(),
		help:   help.New(),
		keys:   newKeyMap(),
	}
	m.videoList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.partList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init loads the catalog videos.
func (m *Model) Init() tea.Cmd {
	return m.loadVideos()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.videoList.SetSize(m.listSize())
		m.partList.SetSize(m.listSize())
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case VideoListView:
			return m.handleVideoListKeys(msg)
		case PartListView:
			return m.handlePartListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgVideosLoaded:
		data := msg.data.(videosLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.videos))
		for i, v := range data.videos {
			items[i] = videoItem{video: v}
		}
		m.videoList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.videoList.Title = m.source.Course().Title
		if m.videoList.Title == "" {
			m.videoList.Title = "Lessons"
		}
		m.videoList.SetSize(m.listSize())

	case MsgBrowserOpened:
		data := msg.data.(browserOpened)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not open browser: %v", data.err))
		} else {
			m.status = styles.ok.Render("Opened " + data.url)
		}
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case VideoListView:
		return m.renderVideoList()
	case PartListView:
		return m.renderPartList()
	case DetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

// State returns the current view state.
func (m *Model) State() ViewState {
	return m.view
}

func (m *Model) handleVideoListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.videoList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if item, ok := m.videoList.SelectedItem().(videoItem); ok {
				m.selectVideo(item.video)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.videoList, cmd = m.videoList.Update(msg)
	return m, cmd
}

func (m *Model) handlePartListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = VideoListView
		m.selected = nil
		return m, nil
	case "enter":
		if item, ok := m.partList.SelectedItem().(partItem); ok {
			part := item.part
			m.part = &part
			m.status = ""
			m.view = DetailView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.partList, cmd = m.partList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PartListView
		m.part = nil
		m.status = ""
		return m, nil
	case "o":
		return m, m.openWatchPage()
	}
	return m, nil
}

func (m *Model) selectVideo(v models.Video) {
	m.selected = &v
	items := make([]list.Item, len(v.Parts))
	for i, p := range v.Parts {
		items[i] = partItem{part: p}
	}
	m.partList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.partList.Title = fmt.Sprintf("Parts of '%s'", v.Title)
	m.partList.SetSize(m.listSize())
	m.view = PartListView
}

func (m *Model) listSize() (int, int) {
	return max(0, m.width-4), max(0, m.height-8)
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case VideoListView:
		m.videoList, cmd = m.videoList.Update(msg)
	case PartListView:
		m.partList, cmd = m.partList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadVideos() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctx.Err(); err != nil {
			return videosLoadedMsg(nil, err)
		}
		return videosLoadedMsg(m.source.Videos(), nil)
	}
}

func (m *Model) openWatchPage() tea.Cmd {
	if m.selected == nil || m.part == nil {
		return nil
	}
	bvid, page := m.selected.Bvid, m.part.Page
	open := m.open

	return func() tea.Msg {
		url, err := player.WatchURL(bvid, page)
		if err != nil {
			return browserOpenedMsg("", err)
		}
		return browserOpenedMsg(url, open(url))
	}
}

func (m *Model) renderVideoList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.videoList.View(), helpView)
}

func (m *Model) renderPartList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.partList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil || m.part == nil {
		return styles.err.Render("No part selected\n\nPress esc to go back")
	}
	v, p := m.selected, m.part

	var b strings.Builder
	b.WriteString(styles.title.Render(v.Title))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(styles.label.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Part", fmt.Sprintf("P%d %s (%d/%d)", p.Page, p.Title, indexOf(v.Parts, p.Page)+1, len(v.Parts)))
	row("Duration", p.Duration)
	row("BV", v.Bvid)

	if embed, err := player.BuildPlayerURL(v.Bvid, p.Page, m.opts); err != nil {
		row("Embed", styles.warn.Render(fmt.Sprintf("unavailable: %v", err)))
	} else {
		row("Embed", embed)
	}
	if watch, err := player.WatchURL(v.Bvid, p.Page); err == nil {
		row("Watch", watch)
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	helpKeys := []key.Binding{m.keys.open, m.keys.back, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func indexOf(parts []models.VideoPart, page int) int {
	for i, p := range parts {
		if p.Page == page {
			return i
		}
	}
	return 0
}
