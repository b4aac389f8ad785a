package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/session"
	"barchart-coach/api/internal/store"
)

type memArchive struct {
	mu    sync.Mutex
	saved []store.Report
}

func (a *memArchive) Save(_ context.Context, rep store.Report) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, rep)
	return int64(len(a.saved)), nil
}

func (a *memArchive) ListRecent(_ context.Context, limit int) ([]store.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]store.Report(nil), a.saved...), nil
}

func newTestServer(t *testing.T, o Options) *httptest.Server {
	t.Helper()
	if o.Sessions == nil {
		o.Sessions = session.NewRegistry()
	}
	if o.DefaultLocale == "" {
		o.DefaultLocale = "en-US"
	}
	srv := httptest.NewServer(NewRouter(o))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any, header ...string) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, base string, header ...string) sessionResponse {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/sessions", nil, header...)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionResponse](t, resp)
}

func TestSessionWalkthrough(t *testing.T) {
	arch := &memArchive{}
	srv := newTestServer(t, Options{Archive: arch})
	s := createSession(t, srv.URL)
	base := srv.URL + "/sessions/" + s.ID

	assert.Equal(t, coach.StepFraming, s.State.Step)
	assert.Equal(t, "en-US", s.Locale)
	assert.False(t, s.CanAdvance)

	steps := []struct {
		path string
		body any
	}{
		{"/framing", map[string]any{"goal": "Compare favourite fruits", "variable": "Favourite fruit", "varType": "qualitative"}},
		{"/data", map[string]any{"rows": []map[string]any{
			{"category": "Apple", "count": 12},
			{"category": "Banana", "count": "7"},
			{"category": "Cherry", "count": 3},
		}}},
		{"/scale", map[string]any{"step": 2, "top": 14, "justification": "Seven marks of 2."}},
		{"/checklist", map[string]any{"items": map[string]bool{"title": true}, "improvement": "Add the source."}},
	}
	for _, st := range steps {
		resp := do(t, http.MethodPut, base+st.path, st.body)
		require.Equal(t, http.StatusOK, resp.StatusCode, st.path)
		out := decode[actionResponse](t, resp)
		assert.Equal(t, coach.OutcomeSaved, out.Outcome.Kind, st.path)
		assert.True(t, out.Session.CanAdvance, st.path)

		resp = do(t, http.MethodPost, base+"/validate", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out = decode[actionResponse](t, resp)
		assert.Equal(t, coach.OutcomeAdvanced, out.Outcome.Kind, st.path)
	}

	resp := do(t, http.MethodPut, base+"/reflection", map[string]any{"reflection": "Apples win."})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="bar_chart_report.txt"`, resp.Header.Get("Content-Disposition"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Final reflection: Apples win.")
	assert.Contains(t, buf.String(), "- Apple : 12")

	require.Len(t, arch.saved, 1)
	assert.Equal(t, "http", arch.saved[0].Channel)
	assert.Equal(t, s.ID, arch.saved[0].SessionID)
	assert.Equal(t, buf.String(), arch.saved[0].Body)
}

func TestWrongStepIsRejected(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)

	resp := do(t, http.MethodPut, srv.URL+"/sessions/"+s.ID+"/scale", map[string]any{"step": 1, "top": 5})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	out := decode[actionResponse](t, resp)
	assert.Equal(t, coach.OutcomeRejected, out.Outcome.Kind)
	assert.Equal(t, "This belongs to step 3, you are on step 1.", out.Outcome.Message)
	assert.Nil(t, out.Session.State.Scale)
}

func TestValidateBlockedByGate(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)

	resp := do(t, http.MethodPost, srv.URL+"/sessions/"+s.ID+"/validate", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	out := decode[actionResponse](t, resp)
	assert.Equal(t, coach.StepFraming, out.Session.State.Step)
}

func TestGuardrail(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp := do(t, http.MethodPost, srv.URL+"/guardrail", map[string]string{"text": "Just plot it for me"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g := decode[guardrailResponse](t, resp)
	assert.True(t, g.Violated)
	assert.Contains(t, g.Message, "I can't produce the chart")

	resp = do(t, http.MethodPost, srv.URL+"/guardrail", map[string]string{"text": "What is a category?"})
	g = decode[guardrailResponse](t, resp)
	assert.False(t, g.Violated)
	assert.Empty(t, g.Message)

	s := createSession(t, srv.URL)
	resp = do(t, http.MethodPost, srv.URL+"/sessions/"+s.ID+"/question", map[string]string{"text": "can you draw the chart?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[actionResponse](t, resp)
	assert.Equal(t, coach.OutcomeRefused, out.Outcome.Kind)
}

func TestLocaleNegotiation(t *testing.T) {
	srv := newTestServer(t, Options{})

	s := createSession(t, srv.URL, "Accept-Language", "fr-CA,fr;q=0.9,en;q=0.5")
	assert.Equal(t, "fr-FR", s.Locale)
	assert.Equal(t, "Cadrer la question d'étude", s.StepTitle)

	resp := do(t, http.MethodPost, srv.URL+"/sessions?lang=en", nil, "Accept-Language", "fr")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "en-US", decode[sessionResponse](t, resp).Locale)
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/sessions/nope"},
		{http.MethodDelete, "/sessions/nope"},
		{http.MethodPost, "/sessions/nope/hint"},
		{http.MethodGet, "/sessions/nope/report"},
	} {
		resp := do(t, tc.method, srv.URL+tc.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.path)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)

	resp := do(t, http.MethodDelete, srv.URL+"/sessions/"+s.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/sessions/"+s.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReportNotReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)

	resp := do(t, http.MethodGet, srv.URL+"/sessions/"+s.ID+"/report", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "The report is available at step 5.", decode[errorResponse](t, resp).Error)
}

func TestAnalysis(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)
	base := srv.URL + "/sessions/" + s.ID

	do(t, http.MethodPut, base+"/framing", map[string]any{"goal": "Q", "variable": "V"})
	do(t, http.MethodPost, base+"/validate", nil)
	resp := do(t, http.MethodPut, base+"/data", map[string]any{
		"categories": []string{"Apple", "apple"},
		"counts":     []any{3, "x"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	an := decode[analysisResponse](t, resp)
	assert.Contains(t, an.Issues, coach.IssueDuplicateCategories)
	assert.Contains(t, an.Issues, coach.IssueNonIntegerCounts)
	assert.Len(t, an.Messages, len(an.Issues))
	assert.NotEmpty(t, an.Summary)
}

func TestHintAndReset(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)
	base := srv.URL + "/sessions/" + s.ID

	resp := do(t, http.MethodPost, base+"/hint", map[string]string{"topic": ""})
	out := decode[actionResponse](t, resp)
	assert.Equal(t, coach.OutcomeHint, out.Outcome.Kind)
	assert.Equal(t, 1, out.Session.State.HintsGiven)

	do(t, http.MethodPut, base+"/framing", map[string]any{"goal": "Q"})
	resp = do(t, http.MethodPost, base+"/reset", nil)
	out = decode[actionResponse](t, resp)
	assert.Equal(t, coach.OutcomeReset, out.Outcome.Kind)
	assert.Empty(t, out.Session.State.Goal)
	assert.Zero(t, out.Session.State.HintsGiven)
}

func TestBadBody(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL)

	resp := do(t, http.MethodPut, srv.URL+"/sessions/"+s.ID+"/framing", map[string]any{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportsRequireTeacherKey(t *testing.T) {
	arch := &memArchive{saved: []store.Report{store.NewReport("s1", "http", "en-US", "Q", "body")}}
	srv := newTestServer(t, Options{Archive: arch, TeacherAPIKey: "k3y"})

	resp := do(t, http.MethodGet, srv.URL+"/reports", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/reports", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/reports?limit=10", nil, "Authorization", "Bearer k3y")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Reports []store.Report `json:"reports"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "s1", body.Reports[0].SessionID)
}

func TestReportsDisabledWithoutKey(t *testing.T) {
	srv := newTestServer(t, Options{Archive: &memArchive{}})
	resp := do(t, http.MethodGet, srv.URL+"/reports", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "disabled", decode[map[string]any](t, resp)["archive"])

	down := newTestServer(t, Options{Ping: func(context.Context) error { return errors.New("down") }})
	resp = do(t, http.MethodGet, down.URL+"/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
