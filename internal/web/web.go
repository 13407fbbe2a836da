package web

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"daytimeline/internal/config"
	"daytimeline/internal/ics"
	"daytimeline/internal/layout"
	appLog "daytimeline/internal/log"
	"daytimeline/internal/refresh"
	"daytimeline/internal/render"
)

// Server exposes the day layout over HTTP.
type Server struct {
	cfg   *config.Config
	store *refresh.Store
	loc   *time.Location
	mux   *http.ServeMux
	now   func() time.Time
}

// NewServer constructs a Server reading events from store.
func NewServer(cfg *config.Config, store *refresh.Store, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:   cfg,
		store: store,
		loc:   loc,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, with Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(s.mux)
	}
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /day.svg", s.handleSVG)
}

// basicAuthEnabled treats an empty username or password as disabled.
func (s *Server) basicAuthEnabled() bool {
	return s.cfg != nil && s.cfg.BasicAuth != nil &&
		s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="daytimeline", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// day resolves ?date=YYYY-MM-DD in the display zone, defaulting to today.
func (s *Server) day(r *http.Request) (time.Time, error) {
	q := r.URL.Query().Get("date")
	if q == "" {
		now := s.now().In(s.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, q, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// Page builds the rendered page for day from the current snapshot.
func (s *Server) Page(day time.Time) render.Page {
	timed, allDay := ics.EventsForDay(s.store.Get().Events, day)
	return render.NewPage(s.cfg.Timeline, day, timed, allDay, s.cfg.ShowAllDay)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	day, err := s.day(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := render.WriteSVG(&buf, s.Page(day)); err != nil {
		appLog.Error("svg render failed", err, "date", day.Format(time.DateOnly))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

type anchorDTO struct {
	Hour   int     `json:"hour"`
	Label  string  `json:"label"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
}

type rectDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type eventDTO struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Rect        *rectDTO  `json:"rect,omitempty"`
	Column      int       `json:"column"`
	Columns     int       `json:"columns"`
	ClusterSize int       `json:"cluster_size"`
}

type clusterDTO struct {
	Key      string   `json:"key"`
	Start    int64    `json:"start"`
	End      int64    `json:"end"`
	EventIDs []string `json:"event_ids"`
}

type layoutResponse struct {
	Date      string       `json:"date"`
	Timezone  string       `json:"timezone"`
	UpdatedAt time.Time    `json:"updated_at"`
	Anchors   []anchorDTO  `json:"anchors"`
	Events    []eventDTO   `json:"events"`
	AllDay    []eventDTO   `json:"all_day"`
	Clusters  []clusterDTO `json:"clusters"`
}

// handleLayout returns the computed geometry for one day.
//
// GET /api/layout?date=2025-03-10
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	day, err := s.day(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.store.Get()
	timed, allDay := ics.EventsForDay(snap.Events, day)
	ctx := render.NewContext(s.cfg.Timeline)
	placed, clusters := render.Place(ctx, day, timed)

	resp := layoutResponse{
		Date:      day.Format(time.DateOnly),
		Timezone:  s.loc.String(),
		UpdatedAt: snap.UpdatedAt,
		Anchors:   make([]anchorDTO, 0, len(ctx.Anchors)),
		Events:    make([]eventDTO, 0, len(placed)),
		AllDay:    make([]eventDTO, 0, len(allDay)),
		Clusters:  make([]clusterDTO, 0, len(clusters)),
	}
	for _, a := range ctx.Anchors {
		resp.Anchors = append(resp.Anchors, anchorDTO{
			Hour:   int(a.Hour),
			Label:  a.Hour.String(),
			Y:      ctx.MinuteToY(0, a),
			Height: a.Height,
		})
	}
	for _, p := range placed {
		dto := toDTO(p)
		dto.ClusterSize = layout.ColumnCount(p.Event, clusters)
		resp.Events = append(resp.Events, dto)
	}
	for _, ev := range allDay {
		resp.AllDay = append(resp.AllDay, toDTO(render.Placed{Event: ev}))
	}
	for key, c := range clusters {
		ids := make([]string, 0, c.Count())
		for _, ev := range c.Events {
			ids = append(ids, ev.ID)
		}
		resp.Clusters = append(resp.Clusters, clusterDTO{
			Key:      fmt.Sprintf("%d-%d", key.Start, key.End),
			Start:    key.Start,
			End:      key.End,
			EventIDs: ids,
		})
	}
	sort.Slice(resp.Clusters, func(i, j int) bool {
		a, b := resp.Clusters[i], resp.Clusters[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	writeJSON(w, http.StatusOK, resp)
}

func toDTO(p render.Placed) eventDTO {
	ev := p.Event
	dto := eventDTO{
		ID:       ev.ID,
		SourceID: ev.SourceID,
		Title:    ev.Title,
		Location: ev.Location,
		AllDay:   ev.AllDay,
		Start:    ev.Start,
		End:      ev.End,
		Column:   p.Column,
		Columns:  p.Columns,
	}
	if !ev.AllDay {
		dto.Rect = &rectDTO{X: p.Rect.X, Y: p.Rect.Y, Width: p.Rect.Width, Height: p.Rect.Height}
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// ResolveLocation loads name, falling back to time.Local.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
