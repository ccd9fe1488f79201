package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/selfassess/internal/action"
	"github.com/abhisek/selfassess/internal/attempt"
	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/question"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

type questionRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Text        string  `json:"text"`
	MaxMark     float64 `json:"max_mark"`
	SelfRate    bool    `json:"self_rate"`
	SelfComment bool    `json:"self_comment"`
}

type questionView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Text        string    `json:"text"`
	MaxMark     float64   `json:"max_mark"`
	SelfRate    bool      `json:"self_rate"`
	SelfComment bool      `json:"self_comment"`
	CreatedAt   time.Time `json:"created_at"`
}

func toQuestionView(q *question.Definition) questionView {
	return questionView{
		ID:          q.ID,
		Name:        q.Name,
		Text:        q.Text,
		MaxMark:     q.MaxMark,
		SelfRate:    q.SelfRate,
		SelfComment: q.SelfComment,
		CreatedAt:   q.CreatedAt,
	}
}

type attemptView struct {
	ID         string          `json:"id"`
	QuestionID string          `json:"question_id"`
	UserID     string          `json:"user_id"`
	State      behaviour.State `json:"state"`
	Finished   bool            `json:"finished"`
	Fraction   *float64        `json:"fraction"`
	Mark       *float64        `json:"mark"`
	MaxMark    float64         `json:"max_mark"`
	Steps      int             `json:"steps"`
	ReadOnly   string          `json:"read_only"`
	Stars      *int            `json:"stars,omitempty"`
	Comment    string          `json:"self_comment,omitempty"`
}

func toAttemptView(a *attempt.Attempt, opts behaviour.DisplayOptions) attemptView {
	v := attemptView{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		UserID:     a.UserID,
		State:      a.State(),
		Finished:   a.IsFinished(),
		Fraction:   a.Fraction(),
		Mark:       a.Mark(),
		MaxMark:    a.MaxMark,
		Steps:      a.StepCount(),
		ReadOnly:   opts.ReadOnly.String(),
	}
	if n, ok := a.LastStars(); ok {
		v.Stars = &n
	}
	v.Comment, _ = a.LastSelfComment()
	return v
}

type attemptSummary struct {
	ID         string          `json:"id"`
	QuestionID string          `json:"question_id"`
	State      behaviour.State `json:"state"`
	Fraction   *float64        `json:"fraction"`
	MaxMark    float64         `json:"max_mark"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type stepView struct {
	Seq       int                `json:"seq"`
	State     behaviour.State    `json:"state"`
	Summary   string             `json:"summary"`
	Fraction  *float64           `json:"fraction"`
	Vars      map[string]string  `json:"vars"`
	Response  behaviour.Response `json:"response,omitempty"`
	UserID    string             `json:"user_id"`
	CreatedAt time.Time          `json:"created_at"`
}

type actionResult struct {
	Decision string      `json:"decision"`
	Action   string      `json:"action"`
	Attempt  attemptView `json:"attempt"`
}

func (s *Server) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		s.writeError(w, r, &badRequest{msg: "bad json: " + err.Error()})
		return
	}
	q := &question.Definition{
		ID:          req.ID,
		Name:        req.Name,
		Text:        req.Text,
		MaxMark:     req.MaxMark,
		SelfRate:    req.SelfRate,
		SelfComment: req.SelfComment,
	}
	if err := s.svc.AddQuestion(r.Context(), q); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuestionView(q))
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.svc.Questions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]questionView, 0, len(qs))
	for _, q := range qs {
		out = append(out, toQuestionView(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"question_id"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		s.writeError(w, r, &badRequest{msg: "bad json: " + err.Error()})
		return
	}
	user := r.Header.Get(UserHeader)
	if user == "" || req.QuestionID == "" {
		s.writeError(w, r, &badRequest{msg: "question_id and " + UserHeader + " required"})
		return
	}
	a, err := s.svc.Start(r.Context(), req.QuestionID, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttemptView(a, behaviour.AdjustDisplayOptions(behaviour.DisplayOptions{}, user, a)))
}

// listAttempts lists the attempts of the user named by the user query
// parameter, defaulting to the caller.
func (s *Server) listAttempts(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = r.Header.Get(UserHeader)
	}
	if user == "" {
		s.writeError(w, r, &badRequest{msg: "user or " + UserHeader + " required"})
		return
	}
	headers, err := s.svc.ListByUser(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]attemptSummary, 0, len(headers))
	for _, h := range headers {
		out = append(out, attemptSummary{
			ID:         h.ID,
			QuestionID: h.QuestionID,
			State:      h.State,
			Fraction:   h.Fraction,
			MaxMark:    h.MaxMark,
			CreatedAt:  h.CreatedAt,
			UpdatedAt:  h.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAttempt(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Get(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := behaviour.AdjustDisplayOptions(behaviour.DisplayOptions{}, r.Header.Get(UserHeader), a)
	writeJSON(w, http.StatusOK, toAttemptView(a, opts))
}

func (s *Server) act(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "attemptID")
	user := r.Header.Get(UserHeader)
	if user == "" {
		s.writeError(w, r, &badRequest{msg: UserHeader + " required"})
		return
	}

	current, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, r, &badRequest{msg: "read body: " + err.Error()})
		return
	}
	caps, err := s.svc.Capabilities(r.Context(), current)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := action.Decode(raw, current.IsFinished(), caps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Act(r.Context(), id, payload.Pending(user))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := behaviour.AdjustDisplayOptions(behaviour.DisplayOptions{}, user, res.Attempt)
	writeJSON(w, http.StatusOK, actionResult{
		Decision: res.Transition.Decision.String(),
		Action:   res.Transition.Action.String(),
		Attempt:  toAttemptView(res.Attempt, opts),
	})
}

func (s *Server) steps(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.History(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]stepView, 0, len(entries))
	for _, e := range entries {
		out = append(out, stepView{
			Seq:       e.Step.Seq,
			State:     e.Step.State,
			Summary:   e.Summary,
			Fraction:  e.Step.Fraction,
			Vars:      e.Step.Vars.Raw(),
			Response:  e.Step.Response,
			UserID:    e.Step.UserID,
			CreatedAt: e.Step.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) expected(w http.ResponseWriter, r *http.Request) {
	exp, err := s.svc.Expected(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}
