package behaviour

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSummariseAction(t *testing.T) {
	b := newTestBehaviour(true, true)
	long := strings.Repeat("a", 250)

	tests := []struct {
		name string
		step Step
		want string
	}{
		{"start", Step{Seq: 0}, "Started"},
		{"submit", Step{Seq: 1, Vars: Vars{Submit: true}, ResponseSummary: "42"}, "Submit: 42"},
		{"submit without stored summary", Step{Seq: 1, Vars: Vars{Submit: true}, Response: Response{"answer": "7"}}, "Submit: 7"},
		{"finish", Step{Seq: 1, Vars: Vars{Finish: true}}, "Attempt finished"},
		{"save", Step{Seq: 1, Response: Response{"answer": "draft"}}, "Saved: draft"},
		{"comment", Step{Seq: 2, Vars: Vars{Comment: StringPtr("Sounds OK")}}, "Commented: Sounds OK"},
		{
			"stars and comment",
			Step{Seq: 2, Vars: Vars{Rate: true, Stars: IntPtr(4), SelfComment: StringPtr("Sounds OK")}},
			"Self-assessed 4 stars with comment: Sounds OK",
		},
		{"stars only", Step{Seq: 2, Vars: Vars{Rate: true, Stars: IntPtr(4)}}, "Self-assessed 4 stars with no comment"},
		{"zero stars", Step{Seq: 2, Vars: Vars{Rate: true, Stars: IntPtr(0), SelfComment: StringPtr(" ")}}, "Self-assessed 0 stars with no comment"},
		{"comment only", Step{Seq: 2, Vars: Vars{Rate: true, SelfComment: StringPtr("Sounds OK")}}, "Commented: Sounds OK"},
		{"cleared", Step{Seq: 2, Vars: Vars{Rate: true}}, "Self-assessment cleared"},
		{
			"implicit marker",
			Step{Seq: 2, Vars: Vars{Implicit: true, Stars: IntPtr(3), SelfComment: StringPtr("Seems OK")}},
			"Self-assessed 3 stars with comment: Seems OK",
		},
		{
			"long comment shortened",
			Step{Seq: 2, Vars: Vars{Comment: StringPtr(long)}},
			"Commented: " + strings.Repeat("a", SummaryCommentLength-3) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.SummariseAction(tt.step))
		})
	}
}

func TestShortenText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		got := ShortenText(tt.in, tt.max)
		assert.Equal(t, tt.want, got)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.max)
	}
}
