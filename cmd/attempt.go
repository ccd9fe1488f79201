package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/selfassess/internal/action"
	"github.com/abhisek/selfassess/internal/attempt"
)

var startCmd = &cobra.Command{
	Use:   "start QUESTION_ID",
	Short: "Start an attempt at a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.user == "" {
			return errors.New("no user: pass --user")
		}
		at, err := a.svc.Start(cmd.Context(), args[0], a.user)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), at.ID)
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save ATTEMPT_ID",
	Short: "Save a draft answer without submitting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, _ := cmd.Flags().GetString("answer")
		return runAction(cmd, args[0], action.Payload{Answer: &answer, Save: true})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit ATTEMPT_ID",
	Short: "Submit the answer; an empty answer is rejected as invalid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], action.Payload{Answer: answerFlag(cmd), Submit: true})
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish ATTEMPT_ID",
	Short: "Finish the attempt, giving up if there is no answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], action.Payload{Answer: answerFlag(cmd), Finish: true})
	},
}

var assessCmd = &cobra.Command{
	Use:   "assess ATTEMPT_ID",
	Short: "Rate your finished attempt from 0 to 5 stars",
	Long: "Records a self-assessment on a finished attempt. Omit --stars to leave the\n" +
		"rating empty. --no-rate records the assessment the way an implicit save\n" +
		"would, without pressing the save button.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noRate, _ := cmd.Flags().GetBool("no-rate")
		p := action.Payload{Rate: !noRate}
		if cmd.Flags().Changed("stars") {
			stars, _ := cmd.Flags().GetInt("stars")
			p.Stars = &stars
		}
		if cmd.Flags().Changed("comment") {
			comment, _ := cmd.Flags().GetString("comment")
			format, _ := cmd.Flags().GetInt("comment-format")
			p.SelfComment = &comment
			p.SelfCommentFormat = &format
		}
		return runAction(cmd, args[0], p)
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment ATTEMPT_ID TEXT",
	Short: "Add a plain comment to a finished attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], action.Payload{Comment: &args[1]})
	},
}

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List the attempts of --user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.user == "" {
			return errors.New("no user: pass --user")
		}
		headers, err := a.svc.ListByUser(cmd.Context(), a.user)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-36s  %-36s  %-12s  %s\n", "ID", "Question", "State", "Marks")
		fmt.Fprintln(out, strings.Repeat("─", 96))
		for _, h := range headers {
			marks := "-"
			if h.Fraction != nil {
				marks = fmt.Sprintf("%g/%g", *h.Fraction*h.MaxMark, h.MaxMark)
			}
			fmt.Fprintf(out, "%-36s  %-36s  %-12s  %s\n", h.ID, h.QuestionID, h.State, marks)
		}
		fmt.Fprintf(out, "\n%d attempts\n", len(headers))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history ATTEMPT_ID",
	Short: "List every step of an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		at, err := a.svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		entries, err := a.svc.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.renderer.History(entries, at.MaxMark))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show ATTEMPT_ID",
	Short: "Show an attempt and its self-assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		at, err := a.svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return a.show(cmd, at)
	},
}

func answerFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("answer") {
		return nil
	}
	answer, _ := cmd.Flags().GetString("answer")
	return &answer
}

// runAction validates p for the attempt's current state, applies it and
// prints the result.
func runAction(cmd *cobra.Command, attemptID string, p action.Payload) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.user == "" {
		return errors.New("no user: pass --user")
	}
	current, err := a.svc.Get(cmd.Context(), attemptID)
	if err != nil {
		return err
	}
	caps, err := a.svc.Capabilities(cmd.Context(), current)
	if err != nil {
		return err
	}
	if err := action.Check(p, current.IsFinished(), caps); err != nil {
		return err
	}

	res, err := a.svc.Act(cmd.Context(), attemptID, p.Pending(a.user))
	if err != nil {
		return err
	}
	printResult(cmd, res)
	return a.show(cmd, res.Attempt)
}

func printResult(cmd *cobra.Command, res attempt.Result) {
	if res.Kept() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: saved step %d\n", res.Transition.Action, res.Attempt.LastStep().Seq)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing changed\n", res.Transition.Action)
}

func init() {
	saveCmd.Flags().String("answer", "", "Answer text")
	submitCmd.Flags().String("answer", "", "Answer text (defaults to the last saved answer)")
	finishCmd.Flags().String("answer", "", "Answer text (defaults to the last saved answer)")

	assessCmd.Flags().Int("stars", 0, "Star rating from 0 to 5")
	assessCmd.Flags().String("comment", "", "Self-assessment comment")
	assessCmd.Flags().Int("comment-format", 0, "Comment text format")
	assessCmd.Flags().Bool("no-rate", false, "Record as an implicit assessment")
}
