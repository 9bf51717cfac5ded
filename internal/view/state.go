package view

import (
	"github.com/couchcryptid/road-event-map/internal/config"
	"github.com/couchcryptid/road-event-map/internal/domain"
)

// Highlighter turns description text into spans.
type Highlighter interface {
	Highlight(text string) []domain.Span
}

// HighlightFunc adapts a plain function to Highlighter.
type HighlightFunc func(text string) []domain.Span

func (f HighlightFunc) Highlight(text string) []domain.Span { return f(text) }

// RenderState is everything the page needs to draw both views.
type RenderState struct {
	SessionID string          `json:"session_id"`
	Layout    domain.Layout   `json:"layout"`
	Heading   string          `json:"heading"`
	Credits   []config.Credit `json:"credits"`
	Sidebar   Sidebar         `json:"sidebar"`
	Map       MapView         `json:"map"`
}

// Sidebar is the event list. Placeholder is set when there is nothing to
// list, so an empty snapshot never looks like a finished empty list.
type Sidebar struct {
	Visible     bool           `json:"visible"`
	Placeholder bool           `json:"placeholder"`
	Entries     []SidebarEntry `json:"entries"`
}

// SidebarEntry is one list row. Detail is only set on the selected entry.
type SidebarEntry struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Selected bool         `json:"selected"`
	Detail   *EventDetail `json:"detail,omitempty"`
}

// EventDetail is the expanded view of the selected event.
type EventDetail struct {
	Description    []domain.Span `json:"description"`
	Location       string        `json:"location"`
	NextUpdateTime string        `json:"next_update_time"`
	LastUpdateTime string        `json:"last_update_time"`
	Link           string        `json:"link,omitempty"`
}

// MapView is what the page hands to the map library.
type MapView struct {
	Center      [2]float64 `json:"center"`
	Zoom        int        `json:"zoom"`
	TileURL     string     `json:"tile_url"`
	Attribution string     `json:"attribution"`
	WidthPct    int        `json:"width_pct"`
	MarginPct   int        `json:"margin_left_pct"`
	SelectedID  string     `json:"selected_id,omitempty"`
	Markers     []Marker   `json:"markers"`
}

// Marker is one event pin. Popup is the highlighted description shown when
// the pin is clicked.
type Marker struct {
	ID    string        `json:"id"`
	Lat   float64       `json:"lat"`
	Lon   float64       `json:"lon"`
	Title string        `json:"title"`
	Popup []domain.Span `json:"popup"`
}

// BuildState renders the session into a RenderState.
func BuildState(s *Session, h Highlighter, profile config.MapProfile) RenderState {
	f := s.frame()

	state := RenderState{
		SessionID: s.ID(),
		Layout:    f.layout,
		Heading:   profile.Heading,
		Credits:   profile.Credits,
		Sidebar: Sidebar{
			Visible:     f.layout.SidebarVisible,
			Placeholder: len(f.events) == 0,
			Entries:     make([]SidebarEntry, 0, len(f.events)),
		},
		Map: MapView{
			Center:      profile.Center,
			Zoom:        profile.Zoom,
			TileURL:     profile.TileURL,
			Attribution: profile.Attribution,
			WidthPct:    f.layout.MapWidth,
			MarginPct:   f.layout.MapMarginLeft,
			Markers:     make([]Marker, 0, len(f.events)),
		},
	}

	for i := range f.events {
		ev := &f.events[i]
		entry := SidebarEntry{ID: ev.ID, Title: ev.Title}
		if ev == f.selected {
			entry.Selected = true
			entry.Detail = &EventDetail{
				Description:    h.Highlight(ev.Description),
				Location:       ev.Location,
				NextUpdateTime: ev.NextUpdateTime,
				LastUpdateTime: ev.LastUpdateTime,
				Link:           ev.Link,
			}
			state.Map.SelectedID = ev.ID
		}
		state.Sidebar.Entries = append(state.Sidebar.Entries, entry)

		state.Map.Markers = append(state.Map.Markers, Marker{
			ID:    ev.ID,
			Lat:   ev.Lat,
			Lon:   ev.Lon,
			Title: ev.Title,
			Popup: h.Highlight(ev.Description),
		})
	}

	return state
}
