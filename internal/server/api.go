package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/hebday/internal/auth"
	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"github.com/tartampluch/hebday/internal/store"
)

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, auth.ErrUnauthenticated)
			return
		}
		u, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := auth.UserFrom(r.Context())
		if err := auth.RequireAdmin(u); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(config.HeaderAuthorization)
	token, ok := strings.CutPrefix(h, config.BearerPrefix)
	return strings.TrimSpace(token), ok && strings.TrimSpace(token) != ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Health & accounts
// -----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		config.HTTPMsgOK:   true,
		config.LogKeyReady: s.deps.Feed.Ready(),
	})
}

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.deps.Auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	if err := s.deps.Auth.Logout(token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, u)
}

// -----------------------------------------------------------------------------
// Birthdays
// -----------------------------------------------------------------------------

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.deps.Records.List(r.Context(), records.Filter{
		Search:    q.Get(config.QuerySearch),
		Gender:    q.Get(config.QueryGender),
		Timeframe: q.Get(config.QueryTimeframe),
		SortBy:    q.Get(config.QuerySortBy),
		SortOrder: q.Get(config.QuerySortOrder),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleArchived(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Records.Archived(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Records.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Records.Get(r.Context(), chi.URLParam(r, config.URLParamID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in records.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	u, _ := auth.UserFrom(r.Context())
	b, err := s.deps.Records.Create(r.Context(), in, u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.deps.Changed()
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in records.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.deps.Records.Update(r.Context(), chi.URLParam(r, config.URLParamID), in)
	if err != nil {
		writeError(w, err)
		return
	}
	s.deps.Changed()
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Records.Delete(r.Context(), []string{chi.URLParam(r, config.URLParamID)})
	if err != nil {
		writeError(w, err)
		return
	}
	if n == 0 {
		writeError(w, store.ErrNotFound)
		return
	}
	s.deps.Changed()
	w.WriteHeader(http.StatusNoContent)
}

type idList struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req idList
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, fmt.Errorf("%w: %s", errBadRequest, config.ErrNoIDs))
		return
	}
	n, err := s.deps.Records.Delete(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	s.deps.Changed()
	writeJSON(w, http.StatusOK, map[string]int64{config.LogKeyDeleted: n})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, s.deps.Records.Archive)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, s.deps.Records.Restore)
}

func (s *Server) setArchived(w http.ResponseWriter, r *http.Request, fn func(context.Context, ...string) error) {
	if err := fn(r.Context(), chi.URLParam(r, config.URLParamID)); err != nil {
		writeError(w, err)
		return
	}
	s.deps.Changed()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	active, err := s.deps.Records.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	archived, err := s.deps.Records.Archived(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	now := s.deps.Records.Now()
	w.Header().Set(config.HeaderContentType, config.MimeCSV)
	w.Header().Set(config.HeaderContentDisposition, fmt.Sprintf(config.FormatAttachment, now.Format(config.DateFormatISO)))
	if err := records.ExportCSV(w, append(active, archived...), now); err != nil {
		// Headers are gone; the client sees a truncated file.
		writeLogOnly(err)
	}
}

type remoteImport struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleImport accepts either a multipart upload in the "file" field or a
// JSON body naming a remote CSV/vCard export.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	var (
		res records.ImportResult
		err error
	)
	if strings.HasPrefix(r.Header.Get(config.HeaderContentType), config.MimeMultipart) {
		r.Body = http.MaxBytesReader(w, r.Body, config.MaxImportSize)
		res, err = s.importUpload(r, u.ID)
	} else {
		var req remoteImport
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if s.deps.Fetcher == nil || req.URL == "" {
			writeError(w, fmt.Errorf("%w: %s", errBadRequest, config.ErrInvalidURL))
			return
		}
		if _, err := records.DetectFormat(req.URL); err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		res, err = s.deps.Records.ImportURL(r.Context(), s.deps.Fetcher, req.URL, req.Username, req.Password, u.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Imported > 0 {
		s.deps.Changed()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) importUpload(r *http.Request, createdBy string) (records.ImportResult, error) {
	file, header, err := r.FormFile(config.FormFieldFile)
	if err != nil {
		return records.ImportResult{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer func() { _ = file.Close() }()

	format, err := records.DetectFormat(header.Filename)
	if err != nil {
		return records.ImportResult{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.deps.Records.Import(r.Context(), file, format, createdBy)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.deps.Changed()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCalendarLink(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Records.Get(r.Context(), chi.URLParam(r, config.URLParamID))
	if err != nil {
		writeError(w, err)
		return
	}
	linkType := r.URL.Query().Get(config.QueryType)
	if linkType == "" {
		linkType = config.LinkTypeHebrew
	}
	link, err := records.CalendarLink(b, linkType, s.deps.Labels, s.deps.Records.Now())
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{config.LogKeyURL: link})
}

// -----------------------------------------------------------------------------
// Conversions
// -----------------------------------------------------------------------------

func queryDate(r *http.Request) (engine.GregorianDate, bool, error) {
	q := r.URL.Query()
	d, err := engine.ParseGregorianDate(q.Get(config.QueryDate))
	if err != nil {
		return engine.GregorianDate{}, false, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	afterSunset := false
	if v := q.Get(config.QueryAfterSunset); v != "" {
		if afterSunset, err = strconv.ParseBool(v); err != nil {
			return engine.GregorianDate{}, false, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return d, afterSunset, nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	d, afterSunset, err := queryDate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h, err := s.deps.Engine.Converter.ToHebrew(r.Context(), d, afterSunset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleConvertHebrew(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get(config.QueryYear))
	day, errD := strconv.Atoi(q.Get(config.QueryDay))
	if err := errors.Join(errY, errD); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	month, err := calendar.ParseMonth(q.Get(config.QueryMonth))
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := s.deps.Engine.Converter.ToGregorian(r.Context(), year, month, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]engine.GregorianDate{config.LogKeyDate: g})
}

type nextResponse struct {
	Hebrew     engine.HebrewDate `json:"hebrewDate"`
	Projection engine.Projection `json:"projection"`
	Warning    string            `json:"warning,omitempty"`
}

// handleNext projects the Hebrew birthdays of a Gregorian birth date. An
// incomplete projection is returned with a warning as long as it has at
// least one date.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	d, afterSunset, err := queryDate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count := 0
	if v := r.URL.Query().Get(config.QueryCount); v != "" {
		if count, err = strconv.Atoi(v); err != nil || count < 1 || count > config.MaxProjectionCount {
			writeError(w, fmt.Errorf("%w: %s", errBadRequest, config.QueryCount))
			return
		}
	}

	h, err := s.deps.Engine.Converter.ToHebrew(r.Context(), d, afterSunset)
	if err != nil {
		writeError(w, err)
		return
	}
	proj, err := s.deps.Engine.Project(r.Context(), h, count)
	resp := nextResponse{Hebrew: h, Projection: proj}
	if err != nil {
		if len(proj.Occurrences) == 0 || r.Context().Err() != nil {
			writeError(w, err)
			return
		}
		resp.Warning = err.Error()
	}
	if resp.Projection.Occurrences == nil {
		resp.Projection.Occurrences = []engine.Occurrence{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHebrewYear(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{config.LogKeyYear: s.deps.Engine.CurrentHebrewYear()})
}

func nonNil(list []store.Birthday) []store.Birthday {
	if list == nil {
		return []store.Birthday{}
	}
	return list
}
