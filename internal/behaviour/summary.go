package behaviour

import (
	"strconv"
	"unicode/utf8"
)

// SummaryCommentLength is the display length comments are shortened to.
const SummaryCommentLength = 200

// Catalog keys used by SummariseAction.
const (
	KeyStarted                 = "started"
	KeySubmitted               = "submitted"
	KeyFinished                = "attemptfinished"
	KeySaved                   = "saved"
	KeyCommented               = "commented"
	KeySelfAssessed            = "selfassessed"
	KeySelfAssessedWithComment = "selfassessedwithcomment"
	KeySelfAssessmentCleared   = "selfassessmentcleared"
)

// SummariseAction describes a committed step. It has no side effects.
func (b *Behaviour) SummariseAction(s Step) string {
	if s.Seq == 0 {
		return b.strings.Format(KeyStarted, nil)
	}
	switch ClassifyStep(s.Vars) {
	case ActionSubmit:
		return b.strings.Format(KeySubmitted, map[string]string{"summary": b.responseSummary(s)})
	case ActionFinish:
		return b.strings.Format(KeyFinished, nil)
	case ActionSelfAssess:
		return b.summariseSelfAssess(s)
	case ActionComment:
		return b.strings.Format(KeyCommented, map[string]string{
			"comment": ShortenText(deref(s.Vars.Comment), SummaryCommentLength),
		})
	default:
		return b.strings.Format(KeySaved, map[string]string{"summary": b.responseSummary(s)})
	}
}

func (b *Behaviour) summariseSelfAssess(s Step) string {
	comment := deref(s.Vars.SelfComment)
	hasComment := normalizeComment(comment) != ""
	args := map[string]string{
		"comment": ShortenText(comment, SummaryCommentLength),
	}
	if s.Vars.Stars != nil {
		args["stars"] = strconv.Itoa(*s.Vars.Stars)
	}

	switch {
	case s.Vars.Stars != nil && hasComment:
		return b.strings.Format(KeySelfAssessedWithComment, args)
	case s.Vars.Stars != nil:
		return b.strings.Format(KeySelfAssessed, args)
	case hasComment:
		return b.strings.Format(KeyCommented, args)
	default:
		return b.strings.Format(KeySelfAssessmentCleared, nil)
	}
}

func (b *Behaviour) responseSummary(s Step) string {
	if s.ResponseSummary != "" {
		return s.ResponseSummary
	}
	return b.question.SummariseResponse(s.Response)
}

// ShortenText cuts s to at most max runes, ending in "..." when cut.
func ShortenText(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	const ellipsis = "..."
	if max <= len(ellipsis) {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-len(ellipsis)]) + ellipsis
}
