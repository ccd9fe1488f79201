package behaviour

import (
	"fmt"
	"strings"
)

// processSelfAssess records a star rating and/or comment on a finished
// attempt. Resubmitting the previous assessment unchanged is discarded.
func (b *Behaviour) processSelfAssess(h History, p Pending) (Transition, error) {
	if !h.IsFinished() {
		return Transition{}, &ContractViolation{
			Op:     "self-assess",
			Reason: fmt.Sprintf("attempt is %s, not finished", h.State()),
		}
	}
	if s := p.Vars.Stars; s != nil && (*s < 0 || *s > MaxStars) {
		return Transition{}, &ContractViolation{
			Op:     "self-assess",
			Reason: fmt.Sprintf("stars must be between 0 and %d inclusive, got %d", MaxStars, *s),
		}
	}

	if b.sameSelfAssessment(h, p.Vars) {
		return Transition{Decision: Discard}, nil
	}

	vars := p.Vars
	if !vars.Rate {
		vars.Implicit = true
	}

	t := Transition{
		Decision: Keep,
		State:    StateManFinished,
		Vars:     vars,
	}
	if vars.Stars != nil {
		f := float64(*vars.Stars) / MaxStars
		t.Fraction = &f
	}
	return t, nil
}

// processComment records a plain comment on a finished attempt.
func (b *Behaviour) processComment(h History, p Pending) (Transition, error) {
	if !h.IsFinished() {
		return Transition{}, &ContractViolation{
			Op:     "comment",
			Reason: fmt.Sprintf("attempt is %s, not finished", h.State()),
		}
	}

	prev, _ := h.LastVar(VarComment)
	if normalizeComment(prev) == normalizeComment(deref(p.Vars.Comment)) {
		return Transition{Decision: Discard}, nil
	}
	return Transition{
		Decision: Keep,
		State:    StateManFinished,
		Vars:     p.Vars,
	}, nil
}

// sameSelfAssessment compares next against the most recent self-assessment.
// The comment is compared only when the question allows comments, the stars
// only when it allows rating. An absent rating is distinct from zero stars.
func (b *Behaviour) sameSelfAssessment(h History, next Vars) bool {
	prev, _ := h.LastAssessment()

	if b.question.CanSelfComment() {
		prevComment := normalizeComment(deref(prev.SelfComment))
		nextComment := normalizeComment(deref(next.SelfComment))
		if prevComment != nextComment {
			return false
		}
		if nextComment != "" && !sameInt(prev.SelfCommentFormat, next.SelfCommentFormat) {
			return false
		}
	}

	if b.question.CanSelfRate() && ratingOf(prev) != ratingOf(next) {
		return false
	}
	return true
}

// noRating is the sentinel for an absent star rating.
const noRating = -1

func ratingOf(v Vars) int {
	if v.Stars == nil {
		return noRating
	}
	return *v.Stars
}

// normalizeComment maps a missing or blank comment to "".
func normalizeComment(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
