// Package render draws attempts and their self-assessment for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/selfassess/internal/attempt"
	"github.com/abhisek/selfassess/internal/behaviour"
)

// Catalog keys used by the renderer.
const (
	KeySelfAssessment = "selfassessment"
	KeyRateYourself   = "rateyourself"
	KeyCommentX       = "commentx"
	KeyNotFinished    = "notfinished"
)

// Stars draws n filled stars followed by empty ones up to MaxStars.
// n is clamped to 0..MaxStars.
func Stars(n int) string {
	n = max(0, min(n, behaviour.MaxStars))
	return strings.Repeat("★", n) + strings.Repeat("☆", behaviour.MaxStars-n)
}

// Renderer turns attempts into terminal text.
type Renderer struct {
	strings behaviour.Formatter
	styled  bool
}

// New creates a Renderer. With styled false no ANSI styling is emitted.
func New(f behaviour.Formatter, styled bool) *Renderer {
	return &Renderer{strings: f, styled: styled}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) stars(n int) string {
	if !r.styled {
		return Stars(n)
	}
	n = max(0, min(n, behaviour.MaxStars))
	return StarFilled.Render(strings.Repeat("★", n)) +
		StarEmpty.Render(strings.Repeat("☆", behaviour.MaxStars-n))
}

// Feedback renders the self-assessment block of a finished attempt. It is
// empty while the attempt is open and for questions worth no marks. With
// ReadOnlyExceptSelfAssess the editable prompt is shown instead of the
// read-only summary.
func (r *Renderer) Feedback(a *attempt.Attempt, opts behaviour.DisplayOptions) string {
	if !a.IsFinished() || a.MaxMark == 0 {
		return ""
	}
	if opts.ReadOnly == behaviour.ReadOnlyExceptSelfAssess {
		return r.editable(a)
	}
	return r.readOnly(a)
}

// lastStars is the rating of the latest self-assessment, 0 if it has none.
func lastStars(a *attempt.Attempt) int {
	n, _ := a.LastStars()
	return n
}

func (r *Renderer) readOnly(a *attempt.Attempt) string {
	lines := []string{
		r.style(Body, r.strings.Format(KeySelfAssessment, map[string]string{"stars": r.stars(lastStars(a))})),
	}
	if c, ok := a.LastSelfComment(); ok {
		lines = append(lines, r.style(Body, r.strings.Format(KeyCommentX, map[string]string{"comment": c})))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) editable(a *attempt.Attempt) string {
	comment, _ := a.LastSelfComment()
	lines := []string{
		r.style(Title, r.strings.Format(KeyRateYourself, nil)) + " " + r.stars(lastStars(a)),
		r.style(Body, r.strings.Format(KeyCommentX, map[string]string{"comment": comment})),
		r.style(Hint, "assess --stars 0-5 --comment TEXT"),
	}
	return strings.Join(lines, "\n")
}

// Attempt renders an attempt header, the last response and its feedback.
func (r *Renderer) Attempt(a *attempt.Attempt, questionName string, opts behaviour.DisplayOptions) string {
	last := a.LastStep()
	state := r.style(stateStyle(a.IsFinished(), last.State == behaviour.StateInvalid), last.State.String())

	lines := []string{
		r.style(Title, questionName),
		fmt.Sprintf("attempt %s  state %s  mark %s", a.ID, state, formatMark(a.Mark(), a.MaxMark)),
	}
	if resp := a.LastResponse(); resp != nil {
		lines = append(lines, r.style(Body, "answer: "+resp["answer"]))
	}
	if fb := r.Feedback(a, opts); fb != "" {
		lines = append(lines, "", fb)
	} else if !a.IsFinished() {
		lines = append(lines, r.style(Hint, r.strings.Format(KeyNotFinished, nil)))
	}

	body := strings.Join(lines, "\n")
	if !r.styled {
		return body
	}
	return Card.Render(body)
}

// History renders the steps of an attempt as a table.
func (r *Renderer) History(entries []attempt.HistoryEntry, maxMark float64) string {
	header := []string{"#", "time", "action", "state", "marks"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		var mark *float64
		if e.Step.Fraction != nil {
			m := *e.Step.Fraction * maxMark
			mark = &m
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Step.Seq),
			e.Step.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Summary,
			e.Step.State.String(),
			formatMark(mark, maxMark),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	b.WriteString(r.style(HeaderCell, padRow(header, widths)))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(padRow(row, widths))
	}
	return b.String()
}

func padRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if i == len(cells)-1 {
			parts[i] = c
			continue
		}
		parts[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
	}
	return strings.Join(parts, "  ")
}

func formatMark(mark *float64, maxMark float64) string {
	if mark == nil {
		return "-"
	}
	return fmt.Sprintf("%s/%s", trimFloat(*mark), trimFloat(maxMark))
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
