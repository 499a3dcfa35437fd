// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the lesson catalog in three views:
//  1. [VideoListView] : Browse and filter the course videos
//  2. [PartListView] : Pick a part (page) of the selected video
//  3. [DetailView] : Show the part with its embed and watch URLs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Opening the watch page runs as a command so a slow browser launch never blocks the event loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, o, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
