package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/road-event-map/internal/adapter/http"
	"github.com/couchcryptid/road-event-map/internal/catalog"
	"github.com/couchcryptid/road-event-map/internal/config"
	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/observability"
	"github.com/couchcryptid/road-event-map/internal/render"
	"github.com/couchcryptid/road-event-map/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uaIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"

type stubSource struct {
	records []domain.RawEventRecord
}

func (s *stubSource) Load(_ context.Context) ([]domain.RawEventRecord, error) {
	return s.records, nil
}

func testRecords() []domain.RawEventRecord {
	return []domain.RawEventRecord{
		{
			Title:       "Highway 1",
			Description: "Road closed due to CLOSURE, delays expected",
			Location:    "Hope",
			Latitude:    domain.NumberCoordinate(49.38),
			Longitude:   domain.NumberCoordinate(-121.44),
		},
		{Title: "No coordinates"},
		{
			Title:       "Highway 5",
			Description: `<script>alert("No")</script>`,
			Latitude:    domain.NumberCoordinate(49.6),
			Longitude:   domain.NumberCoordinate(-121.1),
		},
	}
}

type fixture struct {
	srv   *httpadapter.Server
	store *view.Store
}

func newFixture(t *testing.T, loaded bool) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	cat := catalog.New(&stubSource{records: testRecords()}, logger, metrics)
	if loaded {
		require.NoError(t, cat.Refresh(context.Background()))
	}
	store := view.NewStore(view.StoreConfig{
		Snapshots: cat,
		Profile:   config.DefaultMapProfile(),
		TTL:       time.Hour,
		Logger:    logger,
		Metrics:   metrics,
	})
	renderer, err := render.New()
	require.NoError(t, err)

	srv := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:         ":0",
		Ready:        cat,
		Sessions:     store,
		Events:       cat,
		Renderer:     renderer,
		DefaultWidth: 1280,
		Logger:       logger,
	})
	return fixture{srv: srv, store: store}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f fixture) mount(t *testing.T) string {
	t.Helper()
	s, err := f.store.Mount(domain.ViewportSignal{Width: 1280})
	require.NoError(t, err)
	return s.ID()
}

func TestHealthzReturns200(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenLoaded(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503BeforeFirstLoad(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPageMountsSession(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/?w=1200", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `data-event-id="evt-0"`)
	assert.Contains(t, body, `data-event-id="evt-2"`)
	assert.NotContains(t, body, `data-event-id="evt-1"`)
	assert.NotContains(t, body, "<script>alert")
	assert.Equal(t, 1, f.store.Len())
}

func TestPageMobileUserAgentHidesSidebar(t *testing.T) {
	f := newFixture(t, true)
	req := httptest.NewRequest(http.MethodGet, "/?w=1200", nil)
	req.Header.Set("User-Agent", uaIPhone)
	rec := httptest.NewRecorder()

	f.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<aside id="sidebar" class="sidebar" hidden>`)
}

func TestPageWithoutSnapshotReturns503(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownPathIs404(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectReturnsSidebarFragment(t *testing.T) {
	f := newFixture(t, true)
	id := f.mount(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/select", `{"event_id":"evt-0","origin":"marker"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<li class="event selected" data-event-id="evt-0">`)
	assert.Contains(t, rec.Body.String(), `<span class="kw">Road closed</span>`)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/select", `{"event_id":"evt-2","origin":"sidebar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `&lt;script&gt;alert(&#34;<span class="kw">No</span>&#34;)&lt;/script&gt;`)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "event selected"))
}

func TestSelectErrors(t *testing.T) {
	f := newFixture(t, true)
	id := f.mount(t)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"unknown event", "/api/sessions/" + id + "/select", `{"event_id":"evt-1"}`, http.StatusNotFound},
		{"unknown session", "/api/sessions/nope/select", `{"event_id":"evt-0"}`, http.StatusNotFound},
		{"missing event id", "/api/sessions/" + id + "/select", `{}`, http.StatusBadRequest},
		{"malformed body", "/api/sessions/" + id + "/select", `{"event_id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestViewportReturnsLayout(t *testing.T) {
	f := newFixture(t, true)
	id := f.mount(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/viewport", `{"width":500}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var layout map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layout))
	assert.Equal(t, "full-width", layout["mode"])
	assert.Equal(t, false, layout["sidebar_visible"])
	assert.InDelta(t, 100, layout["map_width_pct"], 0)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/viewport", `{"width":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/nope/viewport", `{"width":900}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateCarriesPopupHTML(t *testing.T) {
	f := newFixture(t, true)
	id := f.mount(t)

	rec := f.do(t, http.MethodGet, "/api/sessions/"+id+"/state", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var state render.ClientState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, id, state.SessionID)
	require.Len(t, state.Map.Markers, 2)
	assert.Contains(t, state.Map.Markers[0].PopupHTML, `<span class="kw">CLOSURE</span>`)
	assert.NotContains(t, state.Map.Markers[1].PopupHTML, "<script>")
	assert.Len(t, state.Sidebar.Entries, 2)
}

func TestSidebarFragment(t *testing.T) {
	f := newFixture(t, true)
	id := f.mount(t)

	rec := f.do(t, http.MethodGet, "/api/sessions/"+id+"/sidebar", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "DriveBC Major Events")
	assert.NotContains(t, rec.Body.String(), "event-details")
}

func TestUnmount(t *testing.T) {
	f := newFixture(t, true)
	first := f.mount(t)
	second := f.mount(t)

	rec := f.do(t, http.MethodDelete, "/api/sessions/"+first, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+first, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+second+"/unmount", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.store.Len())

	rec = f.do(t, http.MethodGet, "/api/sessions/"+second+"/state", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsListsDisplayable(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/events", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count  int            `json:"count"`
		Events []domain.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "evt-0", body.Events[0].ID)
	assert.Equal(t, "evt-2", body.Events[1].ID)
}

func TestEventsBeforeLoadReturns503(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAssetsServed(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/assets/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sendBeacon")

	rec = f.do(t, http.MethodGet, "/assets/app.css", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".kw")
}
