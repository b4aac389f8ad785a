package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/session"
	"barchart-coach/api/internal/store"
)

const archiveTimeout = 5 * time.Second

type sessionResponse struct {
	session.Session
	StepTitle  string `json:"stepTitle"`
	CanAdvance bool   `json:"canAdvance"`
}

type actionResponse struct {
	Session sessionResponse `json:"session"`
	Outcome coach.Outcome   `json:"outcome"`
}

type analysisResponse struct {
	coach.Analysis
	Messages []string `json:"messages"`
	Summary  string   `json:"summary"`
}

type createSessionRequest struct {
	Lang string `json:"lang"`
}

type guardrailRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type guardrailResponse struct {
	Violated bool   `json:"violated"`
	Message  string `json:"message,omitempty"`
}

// dataRequest accepts either parallel arrays or a list of rows.
type dataRequest struct {
	Categories []string         `json:"categories"`
	Counts     []coach.RawCount `json:"counts"`
	Rows       []coach.Row      `json:"rows"`
}

// lang picks the requested locale: ?lang= first, then Accept-Language.
func (h *handlers) lang(r *http.Request, fromBody string) string {
	if v := r.URL.Query().Get("lang"); v != "" {
		return v
	}
	if fromBody != "" {
		return fromBody
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		return v
	}
	return h.defaultLocale
}

func (h *handlers) view(s session.Session) sessionResponse {
	c := h.sessions.Coach(s.Locale)
	return sessionResponse{
		Session:    s,
		StepTitle:  c.StepTitle(s.State.Step),
		CanAdvance: coach.CanAdvance(s.State.Step, s.State, s.State.Analyze().Stats),
	}
}

// load returns the session named in the path or writes a 404.
func (h *handlers) load(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return s, false
	}
	return s, true
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"sessions": h.sessions.Len(),
		"archive":  "disabled",
	}
	status := http.StatusOK
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["archive"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["archive"] = "ok"
		}
	}
	writeJSON(w, status, resp)
}

func (h *handlers) checkGuardrail(w http.ResponseWriter, r *http.Request) {
	var req guardrailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, violated := h.sessions.Coach(h.lang(r, req.Lang)).CheckGuardrail(req.Text)
	writeJSON(w, http.StatusOK, guardrailResponse{Violated: violated, Message: msg})
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s := h.sessions.Open("", h.lang(r, req.Lang))
	w.Header().Set("Location", "/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, h.view(s))
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Drop(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, session.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apply runs a against the session in the path. Rejected actions answer
// 422 with the same body; refusals are regular answers.
func (h *handlers) apply(w http.ResponseWriter, r *http.Request, a coach.Action) {
	s, out, err := h.sessions.Apply(chi.URLParam(r, "id"), a)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error("apply action", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	status := http.StatusOK
	if out.Kind == coach.OutcomeRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, actionResponse{Session: h.view(s), Outcome: out})
}

// applyBody decodes the request body into a fresh A and applies it.
func applyBody[A coach.Action](h *handlers, w http.ResponseWriter, r *http.Request) {
	var a A
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, a)
}

func (h *handlers) setFraming(w http.ResponseWriter, r *http.Request) {
	applyBody[coach.SetFraming](h, w, r)
}

func (h *handlers) setData(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a := coach.SetData{Categories: req.Categories, Counts: req.Counts}
	if len(req.Rows) > 0 {
		a.Categories, a.Counts = coach.SplitRows(req.Rows)
	}
	h.apply(w, r, a)
}

func (h *handlers) setScale(w http.ResponseWriter, r *http.Request) {
	applyBody[coach.SetScale](h, w, r)
}

func (h *handlers) setChecklist(w http.ResponseWriter, r *http.Request) {
	applyBody[coach.SetChecklist](h, w, r)
}

func (h *handlers) setReflection(w http.ResponseWriter, r *http.Request) {
	applyBody[coach.SetReflection](h, w, r)
}

func (h *handlers) askQuestion(w http.ResponseWriter, r *http.Request) {
	applyBody[coach.AskQuestion](h, w, r)
}

func (h *handlers) requestHint(w http.ResponseWriter, r *http.Request) {
	applyBody[coach.RequestHint](h, w, r)
}

func (h *handlers) validate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, coach.Validate{})
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, coach.Restart{})
}

func (h *handlers) analysis(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	c := h.sessions.Coach(s.Locale)
	an := s.State.Analyze()
	st := an.Stats
	writeJSON(w, http.StatusOK, analysisResponse{
		Analysis: an,
		Messages: c.IssueTexts(an.Issues),
		Summary: c.T("scale.summary",
			strconv.Itoa(st.Max), strconv.Itoa(st.SuggestedStep), strconv.Itoa(st.RoundedTop)),
	})
}

// report downloads the text report. It is only offered on the last step,
// and each download is archived when an archive is configured.
func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	c := h.sessions.Coach(s.Locale)
	if s.State.Step != coach.StepReport {
		writeError(w, http.StatusConflict, c.T("bot.report.not_ready"))
		return
	}
	body := c.BuildReport(s.State)
	h.archiveReport(r.Context(), s, body)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+c.ReportFilename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *handlers) archiveReport(ctx context.Context, s session.Session, body string) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	rep := store.NewReport(s.ID, "http", s.Locale, s.State.Goal, body)
	if _, err := h.archive.Save(ctx, rep); err != nil {
		h.log.Warn("archive report", zap.String("session", s.ID), zap.Error(err))
	}
}

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reps, err := h.archive.ListRecent(r.Context(), limit)
	if err != nil {
		h.log.Error("list reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reps, "count": len(reps)})
}
