package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
	"github.com/amirhf/imageSearch/services/gallery-go/session"
	"github.com/amirhf/imageSearch/services/gallery-go/storage"
)

// HistoryReader lists recent gateway queries.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.SearchLogEntry, error)
}

// Options configures a Handler.
type Options struct {
	PageSize      int
	MaxImageBytes int64
	CookieName    string
	Debug         bool
	// History is nil when no search log database is configured.
	History HistoryReader
	Log     logrus.FieldLogger
}

type Handler struct {
	sessions *session.Registry
	opts     Options
}

func NewHandler(sessions *session.Registry, opts Options) *Handler {
	return &Handler{sessions: sessions, opts: opts}
}

// session resolves the caller's controller from the session cookie. Unknown
// or missing ids get a fresh session, which is connected before returning.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Controller {
	if cookie, err := r.Cookie(h.opts.CookieName); err == nil {
		if c, ok := h.sessions.Get(cookie.Value); ok {
			return c
		}
	}

	id, c := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.opts.Log.WithField("session", id).Debug("session created")
	if _, err := c.Connect(detach(r)); err != nil {
		h.opts.Log.WithError(err).Warn("initial connect")
	}
	return c
}

// detach keeps request values but drops cancellation: once issued, a fetch
// runs to completion even if the browser goes away.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	h.writeSnapshot(w, c.Snapshot())
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	snap, err := c.Connect(detach(r))
	h.respond(w, snap, err)
}

func (h *Handler) TextSearch(w http.ResponseWriter, r *http.Request) {
	var req models.TextSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c := h.session(w, r)
	snap, err := c.StartSearch(detach(r), models.TextQuery{Text: req.Query})
	h.respond(w, snap, err)
}

func (h *Handler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	var req models.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c := h.session(w, r)
	snap, err := c.FindSimilar(detach(r), req.ID)
	h.respond(w, snap, err)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	snap, err := c.Reset(detach(r))
	h.respond(w, snap, err)
}

func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	snap, err := c.LoadMore(detach(r))
	h.respond(w, snap, err)
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req models.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c := h.session(w, r)
	snap, err := c.Select(req.ID)
	h.respond(w, snap, err)
}

func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	c := h.session(w, r)
	h.writeSnapshot(w, c.Dismiss())
}

// Debug lists what the browser received for each record, without the full
// image payloads.
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	if !h.opts.Debug {
		http.NotFound(w, r)
		return
	}
	snap := h.session(w, r).Snapshot()
	resp := models.DebugResponse{Total: len(snap.Records), Records: make([]models.DebugRecord, 0, len(snap.Records))}
	for i, rec := range snap.Records {
		d := models.DebugRecord{
			Index:       i + 1,
			ID:          rec.ID,
			Prompt:      truncate(rec.Prompt, 30),
			Distance:    rec.Distance,
			ImageLength: len(rec.Image),
			ImagePrefix: truncate(rec.Image, 100),
		}
		resp.Records = append(resp.Records, d)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.opts.History == nil {
		http.NotFound(w, r)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	entries, err := h.opts.History.Recent(ctx, limit)
	if err != nil {
		h.opts.Log.WithError(err).Error("reading search history")
		writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}
	if entries == nil {
		entries = []models.SearchLogEntry{}
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{Entries: entries})
}

// respond writes the snapshot, or the status matching a controller error.
// Fetch failures are part of the snapshot and still answer 200.
func (h *Handler) respond(w http.ResponseWriter, snap session.Snapshot, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	h.writeSnapshot(w, snap)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrUnknownRecord):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNothingToExtend),
		errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, snap session.Snapshot) {
	writeJSON(w, http.StatusOK, h.sessionResponse(snap))
}

func (h *Handler) sessionResponse(snap session.Snapshot) models.SessionResponse {
	resp := models.SessionResponse{
		Mode:        snap.Mode,
		Page:        snap.Page,
		PageSize:    h.opts.PageSize,
		Records:     models.NewRecordViews(snap.Records),
		Connected:   snap.Connected,
		Connecting:  snap.Connecting,
		Searching:   snap.Searching,
		LoadingMore: snap.LoadingMore,
		Error:       snap.Error,
		Notice:      snap.Notice,
	}
	resp.CanLoadMore = snap.Connected && !snap.Connecting && !snap.Searching && !snap.LoadingMore && len(snap.Records) > 0
	switch q := snap.Query.(type) {
	case models.TextQuery:
		resp.Query = q.Text
	case models.SimilarQuery:
		resp.ObjectID = q.ID
	case models.ImageQuery:
		resp.ImageLength = len(q.Image)
	}
	if snap.Selected != nil {
		v := models.NewRecordView(*snap.Selected)
		resp.Selected = &v
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
