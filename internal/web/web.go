package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"examsync/internal/config"
	"examsync/internal/dataset"
	"examsync/internal/ics"
	appLog "examsync/internal/log"
	"examsync/internal/model"
	"examsync/internal/search"
)

// noExportableMessage is shown to users who export without any timed exam
// selected.
const noExportableMessage = "请至少勾选一门包含有效时间的考试"

// Server exposes search, export and preference APIs over the current
// dataset snapshot.
type Server struct {
	store   *dataset.Store
	cfgPath string
	mux     *http.ServeMux

	validate *validator.Validate

	// cfgMu guards cfg; preferences are mutated through PUT /api/preferences.
	cfgMu sync.RWMutex
	cfg   *config.Config

	loc *time.Location
	now func() time.Time
}

// NewServer constructs a new Server. cfgPath is where preference changes
// are persisted; empty disables persistence.
func NewServer(cfg *config.Config, cfgPath string, store *dataset.Store) *Server {
	s := &Server{
		store:    store,
		cfgPath:  cfgPath,
		mux:      http.NewServeMux(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
		loc:      resolveLocationOrLocal(cfg.Timezone),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config().Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

func (s *Server) exportConfig() ics.ExportConfig {
	cfg := s.config()
	return ics.ExportConfig{
		ProductID: cfg.Calendar.ProductID,
		UIDDomain: cfg.Calendar.UIDDomain,
		Location:  s.loc,
		Now:       s.now,
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials count as disabled.
func (s *Server) basicAuthEnabled() bool {
	cfg := s.config()
	if cfg == nil || cfg.BasicAuth == nil {
		return false
	}
	return cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	auth := s.config().BasicAuth
	username, password := auth.Username, auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="examsync", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/manifest", s.handleManifest)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/preferences", s.handlePreferences)
	s.mux.HandleFunc("/calendar/", s.handleClassCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type manifestResponse struct {
	Manifest   *model.Manifest `json:"manifest"`
	TotalExams int             `json:"total_exams"`
	LoadedAt   time.Time       `json:"loaded_at"`
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ds := s.store.Snapshot()
	writeJSON(w, http.StatusOK, manifestResponse{
		Manifest:   ds.Manifest,
		TotalExams: len(ds.Exams),
		LoadedAt:   ds.LoadedAt,
	})
}

// examDTO adds the time-pending flag the UI uses to badge an exam.
type examDTO struct {
	model.Exam
	TimePending bool `json:"time_pending"`
	Selected    bool `json:"selected"`
}

type searchResponse struct {
	Mode         search.Mode `json:"mode"`
	Classes      []string    `json:"classes"`
	TotalClasses int         `json:"total_classes"`
	Truncated    bool        `json:"truncated"`
	Exams        []examDTO   `json:"exams"`
	Share        string      `json:"share,omitempty"`
}

// handleSearch resolves ?q= against the current snapshot. ?class= carries
// the pinned class from a share link; a q that differs from it releases
// the pin.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	ds := s.store.Snapshot()

	sess := search.Restore(ds.Exams, url.Values{"class": {q.Get("class")}})
	if query := q.Get("q"); query != "" || q.Get("class") == "" {
		sess.SetQuery(query)
	}
	res := sess.Result()

	classes, truncated := res.DisplayClasses(search.MaxClassDisplay)
	resp := searchResponse{
		Mode:         res.Mode,
		Classes:      classes,
		TotalClasses: len(res.Classes),
		Truncated:    truncated,
		Exams:        make([]examDTO, 0, len(res.Exams)),
	}
	for _, e := range res.Exams {
		resp.Exams = append(resp.Exams, examDTO{Exam: e, TimePending: !e.HasStartTime(), Selected: sess.IsSelected(e.ID)})
	}
	if share := sess.ShareQuery(); len(share) > 0 {
		resp.Share = share.Encode()
	}

	appLog.Debug("api search", "q", q.Get("q"), "class", q.Get("class"), "mode", res.Mode, "classes", len(res.Classes))
	writeJSON(w, http.StatusOK, resp)
}

type exportRequest struct {
	Class     string   `json:"class" validate:"required,max=64"`
	IDs       []string `json:"ids" validate:"dive,required"`
	Reminders []int    `json:"reminders" validate:"max=16,dive,gt=0,lte=40320"`
}

// handleExport serialises the chosen exams of one class.
//
// POST /api/export {"class":"B240402","ids":["..."],"reminders":[30,60]}
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req exportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exams, ok := s.classExams(req.Class)
	if !ok {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}
	selected := search.Exportable(search.FilterIDs(exams, req.IDs))
	s.writeCalendar(w, selected, req.Class, ics.NewReminders(req.Reminders...).Minutes())
}

// handleClassCalendar exports every timed exam of a class, so a share
// link can be fed straight to a calendar app.
//
// GET /calendar/B240402.ics?reminders=30,60
func (s *Server) handleClassCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	class, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/calendar/"), ".ics"))
	if err != nil || class == "" || strings.Contains(class, "/") {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}

	reminders := s.config().Preferences.Reminders
	if raw, ok := r.URL.Query()["reminders"]; ok {
		parsed, err := parseReminders(strings.Join(raw, ","))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		reminders = parsed
	}

	exams, ok := s.classExams(class)
	if !ok {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}
	s.writeCalendar(w, search.Exportable(exams), class, reminders)
}

// classExams returns the exams of exactly one class code.
func (s *Server) classExams(class string) ([]model.Exam, bool) {
	exams := search.ByClass(s.store.Snapshot().Exams, class)
	return exams, len(exams) > 0
}

func (s *Server) writeCalendar(w http.ResponseWriter, exams []model.Exam, class string, reminders []int) {
	body, err := ics.GenerateCalendar(exams, class, reminders, s.exportConfig())
	if err != nil {
		var inv *ics.InvalidInputError
		switch {
		case errors.Is(err, ics.ErrNoExportableEvents):
			writeError(w, http.StatusUnprocessableEntity, noExportableMessage)
		case errors.As(err, &inv):
			appLog.Error("export rejected input", err, "class", class)
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			appLog.Error("export failed", err, "class", class)
			writeError(w, http.StatusInternalServerError, "failed to generate calendar")
		}
		return
	}

	name := ics.FileName(s.config().Calendar.FilePrefix, class)
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))

	appLog.Info("calendar exported", "class", class, "events", len(exams), "reminders", len(reminders))
}

type preferencesRequest struct {
	Theme     string `json:"theme" validate:"required,oneof=light dark"`
	Reminders []int  `json:"reminders" validate:"max=16,dive,gt=0,lte=40320"`
}

// handlePreferences reads (GET) or replaces (PUT) the persisted theme and
// reminder defaults.
func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.config().Preferences)
	case http.MethodPut:
		var req preferencesRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		prefs := config.Preferences{
			Theme:     req.Theme,
			Reminders: ics.NewReminders(req.Reminders...).Minutes(),
		}

		s.cfgMu.Lock()
		// Env and flag overrides stay in memory only.
		if s.cfgPath != "" {
			if err := config.SavePreferences(s.cfgPath, prefs); err != nil {
				s.cfgMu.Unlock()
				appLog.Error("preferences save failed", err, "path", s.cfgPath)
				writeError(w, http.StatusInternalServerError, "failed to save preferences")
				return
			}
		}
		next := *s.cfg
		next.Preferences = prefs
		s.cfg = &next
		s.cfgMu.Unlock()

		writeJSON(w, http.StatusOK, prefs)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// parseReminders reads "30,60" style lists. An empty string means no
// reminders.
func parseReminders(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid reminder offset: " + part)
		}
		out = append(out, n)
	}
	return ics.NewReminders(out...).Minutes(), nil
}

func resolveLocationOrLocal(name string) *time.Location {
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
