package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/abhisek/selfassess/internal/attempt"
	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/lang"
	"github.com/abhisek/selfassess/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	st, err := store.Open(context.Background(), store.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zaptest.NewLogger(t)
	svc := attempt.NewService(st.QuestionRepo(), st.AttemptRepo(), lang.English(), attempt.WithServiceLogger(logger))
	return NewServer(svc, logger).Routes()
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createQuestion(t *testing.T, h http.Handler, maxMark float64) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Describe a sunset","max_mark":%g,"self_rate":true,"self_comment":true}`, maxMark)
	rec := do(t, h, http.MethodPost, "/questions", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[questionView](t, rec).ID
}

func startAttempt(t *testing.T, h http.Handler, questionID string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/attempts", "student", `{"question_id":"`+questionID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[attemptView](t, rec).ID
}

func TestQuestionEndpoints(t *testing.T) {
	h := newTestServer(t)
	id := createQuestion(t, h, 5)

	rec := do(t, h, http.MethodGet, "/questions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	qs := decode[[]questionView](t, rec)
	require.Len(t, qs, 1)
	assert.Equal(t, id, qs[0].ID)

	rec = do(t, h, http.MethodPost, "/questions", "", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/questions", "", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttemptWalkthrough(t *testing.T) {
	h := newTestServer(t)
	attemptID := startAttempt(t, h, createQuestion(t, h, 5))
	base := "/attempts/" + attemptID

	rec := do(t, h, http.MethodGet, base+"/expected", "student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]behaviour.ParamType{"submit": behaviour.ParamBool}, decode[map[string]behaviour.ParamType](t, rec))

	rec = do(t, h, http.MethodPost, base+"/actions", "student", `{"answer":"An orange sky.","submit":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[actionResult](t, rec)
	assert.Equal(t, "keep", res.Decision)
	assert.Equal(t, behaviour.StateNeedsGrading, res.Attempt.State)
	assert.Equal(t, "readonly-except-selfassess", res.Attempt.ReadOnly)

	rec = do(t, h, http.MethodPost, base+"/actions", "student", `{"rate":true,"stars":4,"selfcomment":"Sounds OK"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[actionResult](t, rec)
	assert.Equal(t, "selfassess", res.Action)
	assert.Equal(t, behaviour.StateManFinished, res.Attempt.State)
	require.NotNil(t, res.Attempt.Mark)
	assert.InDelta(t, 4.0, *res.Attempt.Mark, 1e-9)
	assert.Equal(t, "Sounds OK", res.Attempt.Comment)

	rec = do(t, h, http.MethodPost, base+"/actions", "student", `{"rate":true,"stars":4,"selfcomment":"Sounds OK"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "discard", decode[actionResult](t, rec).Decision)

	rec = do(t, h, http.MethodGet, base+"/steps", "student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	steps := decode[[]stepView](t, rec)
	require.Len(t, steps, 3)
	assert.Equal(t, "Self-assessed 4 stars with comment: Sounds OK", steps[2].Summary)
	assert.Equal(t, "4", steps[2].Vars["stars"])

	rec = do(t, h, http.MethodGet, base, "tutor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "readonly", decode[attemptView](t, rec).ReadOnly)
}

func TestActionValidation(t *testing.T) {
	h := newTestServer(t)
	attemptID := startAttempt(t, h, createQuestion(t, h, 5))
	path := "/attempts/" + attemptID + "/actions"

	tests := []struct {
		name   string
		user   string
		body   string
		status int
	}{
		{"missing user", "", `{"submit":true}`, http.StatusBadRequest},
		{"bad json", "student", `{`, http.StatusBadRequest},
		{"assessment before finish", "student", `{"rate":true,"stars":3}`, http.StatusBadRequest},
		{"unknown field", "student", `{"grade":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, path, tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	do(t, h, http.MethodPost, path, "student", `{"answer":"x","finish":true}`)
	rec := do(t, h, http.MethodPost, path, "student", `{"rate":true,"stars":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelfAssessByOtherUserForbidden(t *testing.T) {
	h := newTestServer(t)
	attemptID := startAttempt(t, h, createQuestion(t, h, 5))
	base := "/attempts/" + attemptID

	rec := do(t, h, http.MethodPost, base+"/actions", "student", `{"answer":"An orange sky.","submit":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, base+"/actions", "mallory", `{"rate":true,"stars":0,"selfcomment":"bad"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, base, "student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[attemptView](t, rec)
	assert.Equal(t, behaviour.StateNeedsGrading, v.State)
	assert.Nil(t, v.Mark)
	assert.Equal(t, 2, v.Steps)
}

func TestSelfAssessRespectsQuestionCapabilities(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/questions", "", `{"name":"Reflect","max_mark":5,"self_rate":false,"self_comment":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	base := "/attempts/" + startAttempt(t, h, decode[questionView](t, rec).ID)

	rec = do(t, h, http.MethodPost, base+"/actions", "student", `{"answer":"An orange sky.","submit":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, base+"/expected", "student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode[map[string]behaviour.ParamType](t, rec), "stars")

	rec = do(t, h, http.MethodPost, base+"/actions", "student", `{"rate":true,"stars":5,"selfcomment":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, base+"/actions", "student", `{"rate":true,"selfcomment":"c"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[actionResult](t, rec)
	assert.Equal(t, "keep", res.Decision)
	assert.Nil(t, res.Attempt.Fraction)
	assert.Nil(t, res.Attempt.Mark)
	assert.Equal(t, "c", res.Attempt.Comment)
}

func TestListAttempts(t *testing.T) {
	h := newTestServer(t)
	qID := createQuestion(t, h, 5)
	first := startAttempt(t, h, qID)
	second := startAttempt(t, h, qID)

	rec := do(t, h, http.MethodGet, "/attempts", "student", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]attemptSummary](t, rec)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{first, second}, []string{list[0].ID, list[1].ID})
	assert.Equal(t, behaviour.StateTodo, list[0].State)

	rec = do(t, h, http.MethodGet, "/attempts?user=someone-else", "tutor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]attemptSummary](t, rec))

	rec = do(t, h, http.MethodGet, "/attempts", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/attempts/missing", "student", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/attempts", "student", `{"question_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/attempts/missing/actions", "student", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", store.ErrConflict), http.StatusConflict},
		{&badRequest{msg: "x"}, http.StatusBadRequest},
		{&attempt.CapabilityError{QuestionID: "q", Field: "stars"}, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", attempt.ErrNotOwner), http.StatusForbidden},
		{&behaviour.ContractViolation{Op: "self-assess", Reason: "x"}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
