package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrollHead15/AstroLiana/internal/analytics"
	"github.com/TrollHead15/AstroLiana/internal/fulfillment"
	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/notify"
	"github.com/TrollHead15/AstroLiana/internal/ratelimit"
	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockNotifier struct {
	summaries []notify.Summary
	deadline  bool
	err       error
}

func (m *mockNotifier) Notify(ctx context.Context, s notify.Summary) error {
	_, m.deadline = ctx.Deadline()
	m.summaries = append(m.summaries, s)
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}

type mockFulfiller struct {
	requests []fulfillment.Request
	err      error
}

func (m *mockFulfiller) Fulfill(_ context.Context, req fulfillment.Request) error {
	m.requests = append(m.requests, req)
	return m.err
}

type trackedEvent struct {
	name  string
	props analytics.Properties
}

type mockTracker struct {
	events []trackedEvent
}

func (m *mockTracker) Track(event string, props analytics.Properties) {
	m.events = append(m.events, trackedEvent{name: event, props: props})
}

func (m *mockTracker) names() []string {
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.name)
	}
	return out
}

type harness struct {
	pipeline  *Pipeline
	clock     *testClock
	notifier  *mockNotifier
	fulfiller *mockFulfiller
	tracker   *mockTracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	h := &harness{
		clock:     clock,
		notifier:  &mockNotifier{},
		fulfiller: &mockFulfiller{},
		tracker:   &mockTracker{},
	}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Clock: clock.Now})
	p, err := New(Deps{
		Limiter:   limiter,
		Notifier:  h.notifier,
		Fulfiller: h.fulfiller,
		Tracker:   h.tracker,
		Logger:    logging.New("error"),
	}, Config{Clock: clock.Now})
	require.NoError(t, err)
	h.pipeline = p
	return h
}

func (h *harness) post(kind leads.Kind, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/lead-magnets/"+kind.Slug(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.pipeline.Handler(kind).ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

const validContact = `{"name":"Anna","email":"anna@test.com","consent":true}`

func TestScenarioA_ChecklistSuccess(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindChecklist, validContact, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgSuccessChecklist), env.Message)
	assert.Nil(t, env.Errors)

	require.Len(t, h.notifier.summaries, 1)
	assert.True(t, h.notifier.deadline, "notification must be bounded by a timeout")
	assert.Equal(t, i18n.TitleChecklist, h.notifier.summaries[0].Title)
	require.Len(t, h.fulfiller.requests, 1)
	assert.Equal(t, fulfillment.Request{Kind: leads.KindChecklist, To: "anna@test.com", Name: "Anna"}, h.fulfiller.requests[0])

	assert.Equal(t, []string{analytics.EventTelegramMessageSent, analytics.EventEmailSent, analytics.EventFormSubmitted}, h.tracker.names())
	assert.Equal(t, "checklist", h.tracker.events[2].props[analytics.PropLeadType])
	assert.Equal(t, true, h.tracker.events[2].props["emailDelivered"])

	assert.Equal(t, "5", rec.Header().Get(ratelimit.HeaderLimit))
	assert.Equal(t, "4", rec.Header().Get(ratelimit.HeaderRemaining))
	assert.NotEmpty(t, rec.Header().Get(ratelimit.HeaderReset))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestScenarioB_ConsentFalseRejected(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindChecklist, `{"name":"Anna","email":"anna@test.com","consent":false}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgValidationFailed), env.Message)
	require.NotNil(t, env.Errors)
	assert.Contains(t, env.Errors.FieldErrors, "consent")
	assert.NotNil(t, env.Errors.FormErrors)

	assert.Empty(t, h.notifier.summaries)
	assert.Empty(t, h.fulfiller.requests)
	assert.Empty(t, h.tracker.events)
	assert.Equal(t, "4", rec.Header().Get(ratelimit.HeaderRemaining))
}

func TestScenarioB_ErrorsShapeOnTheWire(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindGuide, `{"name":"A","email":"bad","consent":true}`, nil)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	errs, ok := raw["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "fieldErrors")
	assert.Contains(t, errs, "formErrors")
	fields := errs["fieldErrors"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
}

func TestScenarioC_SixthRequestRateLimited(t *testing.T) {
	h := newHarness(t)
	kinds := []leads.Kind{leads.KindChecklist, leads.KindGuide, leads.KindChecklist, leads.KindGuide, leads.KindChecklist}
	for _, k := range kinds {
		h.clock.Advance(time.Second)
		rec := h.post(k, validContact, map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	notified := len(h.notifier.summaries)

	h.clock.Advance(time.Second)
	rec := h.post(leads.KindGuide, validContact, map[string]string{"X-Forwarded-For": "203.0.113.7"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgRateLimited), env.Message)
	assert.Equal(t, "0", rec.Header().Get(ratelimit.HeaderRemaining))
	assert.Equal(t, "55", rec.Header().Get("Retry-After"))

	reset := h.clock.Now().Add(-6*time.Second + time.Second).Add(time.Minute).Unix()
	assert.Equal(t, reset, mustAtoi(t, rec.Header().Get(ratelimit.HeaderReset)))
	assert.Greater(t, mustAtoi(t, rec.Header().Get(ratelimit.HeaderReset)), h.clock.Now().Unix())
	assert.Len(t, h.notifier.summaries, notified)

	// A different caller is unaffected.
	rec = h.post(leads.KindGuide, validContact, map[string]string{"X-Forwarded-For": "198.51.100.2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func mustAtoi(t *testing.T, s string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, json.Unmarshal([]byte(s), &n))
	return n
}

func TestScenarioD_UnpaddedBirthTimeRejected(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindNatalChart,
		`{"name":"Anna","email":"anna@test.com","consent":true,"birthDate":"1990-05-14","birthTime":"9:5","birthPlace":"Москва"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Errors)
	assert.Equal(t, []string{i18n.T(i18n.Russian, i18n.ErrBirthTime)}, env.Errors.FieldErrors["birthTime"])
	assert.Empty(t, h.notifier.summaries)
}

func TestScenarioE_NotificationFailureIsFailFast(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("telegram: 401 Unauthorized bot123:secret")

	rec := h.post(leads.KindGuide, validContact, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgNotificationFailed), env.Message)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Nil(t, env.Errors)

	assert.Empty(t, h.fulfiller.requests)
	assert.Empty(t, h.tracker.events)
	assert.NotEmpty(t, rec.Header().Get(ratelimit.HeaderLimit))
}

func TestFulfillmentFailureKeepsSuccess(t *testing.T) {
	h := newHarness(t)
	h.fulfiller.err = errors.New("sendgrid: 503")

	rec := h.post(leads.KindGuide, validContact, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgMaterialDelayed), env.Message)
	assert.Equal(t, []string{analytics.EventTelegramMessageSent, analytics.EventFormSubmitted}, h.tracker.names())
	assert.Equal(t, false, h.tracker.events[1].props["emailDelivered"])
}

func TestProcess_DispatchResults(t *testing.T) {
	h := newHarness(t)
	h.fulfiller.err = errors.New("smtp down")

	out := h.pipeline.Process(context.Background(), leads.KindChecklist, Request{Identifier: "1.2.3.4", Body: []byte(validContact)})

	assert.Equal(t, StateCompleted, out.State)
	require.Len(t, out.Dispatches, 3)
	assert.Equal(t, DispatchResult{Step: StepNotification, Succeeded: true}, out.Dispatches[0])
	assert.Equal(t, StepFulfillment, out.Dispatches[1].Step)
	assert.False(t, out.Dispatches[1].Succeeded)
	assert.EqualError(t, out.Dispatches[1].Err, "smtp down")
	assert.Equal(t, StepAnalytics, out.Dispatches[2].Step)
}

func TestProcess_NotificationSurvivesClientCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := h.pipeline.Process(ctx, leads.KindGuide, Request{Body: []byte(validContact)})

	assert.Equal(t, StateCompleted, out.State)
	require.Len(t, h.notifier.summaries, 1)
}

func TestMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"not json":  `{name:`,
		"array":     `[1,2]`,
		"null":      `null`,
		"empty":     ``,
		"too large": `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.post(leads.KindChecklist, body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgMalformedBody), env.Message)
			assert.Nil(t, env.Errors)
			assert.Empty(t, h.notifier.summaries)
			assert.NotEmpty(t, rec.Header().Get(ratelimit.HeaderRemaining))
		})
	}
}

func TestNatalChart_MissingBirthTimeDefaultsToNoon(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindNatalChart,
		`{"name":"Anna","email":"anna@test.com","consent":true,"birthDate":"1990-05-14","birthPlace":"Москва"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.notifier.summaries, 1)
	s := h.notifier.summaries[0]
	assert.Equal(t, i18n.TitleNatalChart, s.Title)

	var birthTime, birthDate notify.Field
	for _, f := range s.Fields {
		switch f.Label {
		case i18n.LabelBirthTime:
			birthTime = f
		case i18n.LabelBirthDate:
			birthDate = f
		}
	}
	assert.Equal(t, "12:00", birthTime.Value)
	assert.Equal(t, i18n.LabelTimeUnknown, birthTime.Note)
	assert.Equal(t, "14.05.1990", birthDate.Value)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.MsgSuccessNatalChart), decodeEnvelope(t, rec).Message)
}

func TestNatalChart_ExplicitBirthTimeIsNotMarked(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindNatalChart,
		`{"name":"Anna","email":"anna@test.com","consent":true,"birthDate":"1990-05-14","birthTime":"12:00","birthPlace":"Москва"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, f := range h.notifier.summaries[0].Fields {
		if f.Label == i18n.LabelBirthTime {
			assert.Equal(t, "12:00", f.Value)
			assert.Empty(t, f.Note)
		}
	}
}

func TestLocaleFromAcceptLanguage(t *testing.T) {
	h := newHarness(t)

	rec := h.post(leads.KindGuide, `{"name":"Anna","email":"anna@test.com","consent":false}`, map[string]string{"Accept-Language": "en-US,en;q=0.9"})

	env := decodeEnvelope(t, rec)
	assert.Equal(t, i18n.T(i18n.English, i18n.MsgValidationFailed), env.Message)
	assert.Equal(t, []string{i18n.T(i18n.English, i18n.ErrConsentMissing)}, env.Errors.FieldErrors["consent"])
}

func TestIdenticalPayloadsYieldIdenticalErrors(t *testing.T) {
	h := newHarness(t)
	body := `{"name":" ","email":"x@","consent":"yes"}`

	first := h.post(leads.KindChecklist, body, nil).Body.String()
	second := h.post(leads.KindChecklist, body, nil).Body.String()
	assert.JSONEq(t, first, second)
}

func TestNew_RejectsIncompleteDescriptors(t *testing.T) {
	limiter := ratelimit.New(nil, ratelimit.Config{})
	deps := Deps{Limiter: limiter, Notifier: &mockNotifier{}}

	descs := DefaultDescriptors()
	delete(descs, leads.KindGuide)
	_, err := New(deps, Config{Descriptors: descs})
	assert.ErrorContains(t, err, "guide")

	descs = DefaultDescriptors()
	d := descs[leads.KindChecklist]
	d.Summary = nil
	descs[leads.KindChecklist] = d
	_, err = New(deps, Config{Descriptors: descs})
	assert.ErrorContains(t, err, "summary")

	descs = DefaultDescriptors()
	d = descs[leads.KindChecklist]
	d.Schema = descs[leads.KindGuide].Schema
	descs[leads.KindChecklist] = d
	_, err = New(deps, Config{Descriptors: descs})
	assert.Error(t, err)

	_, err = New(Deps{Notifier: &mockNotifier{}}, Config{})
	assert.Error(t, err)
	_, err = New(Deps{Limiter: limiter}, Config{})
	assert.Error(t, err)
}

func TestStateHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, StateRejectedRateLimit.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, StateRejectedBadBody.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, StateRejectedValidation.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, StateFailedNotification.HTTPStatus())
	assert.Equal(t, http.StatusOK, StateCompleted.HTTPStatus())
	assert.True(t, StateCompleted.Terminal())
	assert.False(t, StateNotifying.Terminal())
	assert.Equal(t, "rejected_validation", StateRejectedValidation.String())
}
