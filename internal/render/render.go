// Package render turns view state into the HTML page, the sidebar fragment and
// the marker popups the client script binds to Leaflet.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/view"
	json "github.com/goccy/go-json"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets/*
var assetFS embed.FS

const (
	emphasisOpen  = `<span class="kw">`
	emphasisClose = `</span>`
)

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("page.html").Funcs(template.FuncMap{
		"spans":  SpansHTML,
		"toJSON": toJSON,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Assets returns the static client files served under /assets/.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory
	}
	return sub
}

// SpansHTML escapes every span and wraps emphasized spans in a fixed element.
// It is the only producer of unescaped markup in the service.
func SpansHTML(spans []domain.Span) template.HTML {
	var b strings.Builder
	for _, s := range spans {
		if s.Emphasis {
			b.WriteString(emphasisOpen)
			b.WriteString(template.HTMLEscapeString(s.Text))
			b.WriteString(emphasisClose)
			continue
		}
		b.WriteString(template.HTMLEscapeString(s.Text))
	}
	return template.HTML(b.String()) //nolint:gosec // every span is escaped above
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClientState is the RenderState as the client script consumes it: popups
// arrive as ready HTML so the browser never builds markup from event text.
type ClientState struct {
	SessionID string        `json:"session_id"`
	Layout    domain.Layout `json:"layout"`
	Sidebar   view.Sidebar  `json:"sidebar"`
	Map       ClientMap     `json:"map"`
}

// ClientMap is the Leaflet configuration plus markers.
type ClientMap struct {
	Center      [2]float64     `json:"center"`
	Zoom        int            `json:"zoom"`
	TileURL     string         `json:"tile_url"`
	Attribution string         `json:"attribution"`
	WidthPct    int            `json:"width_pct"`
	MarginPct   int            `json:"margin_left_pct"`
	SelectedID  string         `json:"selected_id,omitempty"`
	Markers     []ClientMarker `json:"markers"`
}

// ClientMarker is one pin with its rendered popup.
type ClientMarker struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Title     string  `json:"title"`
	PopupHTML string  `json:"popup_html"`
}

// Client converts state for the client script.
func (r *Renderer) Client(state view.RenderState) (ClientState, error) {
	out := ClientState{
		SessionID: state.SessionID,
		Layout:    state.Layout,
		Sidebar:   state.Sidebar,
		Map: ClientMap{
			Center:      state.Map.Center,
			Zoom:        state.Map.Zoom,
			TileURL:     state.Map.TileURL,
			Attribution: state.Map.Attribution,
			WidthPct:    state.Map.WidthPct,
			MarginPct:   state.Map.MarginPct,
			SelectedID:  state.Map.SelectedID,
			Markers:     make([]ClientMarker, 0, len(state.Map.Markers)),
		},
	}

	var buf bytes.Buffer
	for _, m := range state.Map.Markers {
		buf.Reset()
		if err := r.tmpl.ExecuteTemplate(&buf, "popup", m); err != nil {
			return ClientState{}, fmt.Errorf("render popup %s: %w", m.ID, err)
		}
		out.Map.Markers = append(out.Map.Markers, ClientMarker{
			ID:        m.ID,
			Lat:       m.Lat,
			Lon:       m.Lon,
			Title:     m.Title,
			PopupHTML: buf.String(),
		})
	}
	return out, nil
}

type pageData struct {
	State  view.RenderState
	Client ClientState
}

// Page writes the full document for a freshly mounted session.
func (r *Renderer) Page(w io.Writer, state view.RenderState) error {
	client, err := r.Client(state)
	if err != nil {
		return err
	}
	return r.execute(w, "page.html", pageData{State: state, Client: client})
}

// Sidebar writes the sidebar fragment the client swaps in after a selection.
func (r *Renderer) Sidebar(w io.Writer, state view.RenderState) error {
	return r.execute(w, "sidebar", state)
}

// execute renders into a buffer first so a template error never leaves a
// half-written response.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
