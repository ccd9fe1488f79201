package question

import (
	"strings"
	"time"

	"github.com/abhisek/selfassess/internal/behaviour"
)

// AnswerVar is the response variable holding the student's answer.
const AnswerVar = "answer"

// SummaryLength is the length response summaries are shortened to.
const SummaryLength = 100

// Definition is a free-response question that supports self-assessment.
type Definition struct {
	ID          string
	Name        string
	Text        string
	MaxMark     float64
	SelfRate    bool
	SelfComment bool
	CreatedAt   time.Time
}

var _ behaviour.Question = (*Definition)(nil)

// Answer returns the trimmed answer in r.
func Answer(r behaviour.Response) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r[AnswerVar])
}

// IsCompleteResponse reports whether an answer has been entered.
func (d *Definition) IsCompleteResponse(r behaviour.Response) bool {
	return Answer(r) != ""
}

// IsGradableResponse reports whether there is anything for a grader to look at.
func (d *Definition) IsGradableResponse(r behaviour.Response) bool {
	return Answer(r) != ""
}

// IsSameResponse compares answers ignoring surrounding whitespace.
func (d *Definition) IsSameResponse(prev, next behaviour.Response) bool {
	return Answer(prev) == Answer(next)
}

// SummariseResponse collapses the answer onto one line and shortens it.
func (d *Definition) SummariseResponse(r behaviour.Response) string {
	one := strings.Join(strings.Fields(Answer(r)), " ")
	return behaviour.ShortenText(one, SummaryLength)
}

func (d *Definition) CanSelfRate() bool    { return d.SelfRate }
func (d *Definition) CanSelfComment() bool { return d.SelfComment }

// HasMarks reports whether the question carries any marks. Rating is not
// offered for questions worth nothing.
func (d *Definition) HasMarks() bool { return d.MaxMark > 0 }

// Validate checks the fields a definition must have before it is stored.
func (d *Definition) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return &FieldError{Field: "name", Reason: "must not be empty"}
	case d.MaxMark < 0:
		return &FieldError{Field: "max_mark", Reason: "must not be negative"}
	}
	return nil
}

// FieldError reports an invalid question field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "question " + e.Field + " " + e.Reason
}
