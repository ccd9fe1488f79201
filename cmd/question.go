package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/question"
)

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Manage questions",
}

var questionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a free-response question",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		q := &question.Definition{}
		q.ID, _ = cmd.Flags().GetString("id")
		q.Name, _ = cmd.Flags().GetString("name")
		q.Text, _ = cmd.Flags().GetString("text")
		q.MaxMark, _ = cmd.Flags().GetFloat64("max-mark")
		q.SelfRate, _ = cmd.Flags().GetBool("self-rate")
		q.SelfComment, _ = cmd.Flags().GetBool("self-comment")

		if err := a.svc.AddQuestion(cmd.Context(), q); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), q.ID)
		return nil
	},
}

var questionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		qs, err := a.svc.Questions(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-36s  %-40s  %5s  %s\n", "ID", "Name", "Marks", "Self")
		fmt.Fprintln(out, strings.Repeat("─", 96))
		for _, q := range qs {
			name := behaviour.ShortenText(strings.Join(strings.Fields(q.Name), " "), 40)
			fmt.Fprintf(out, "%-36s  %-40s  %5g  %s\n", q.ID, name, q.MaxMark, selfFlags(q))
		}
		fmt.Fprintf(out, "\n%d questions\n", len(qs))
		return nil
	},
}

func selfFlags(q *question.Definition) string {
	var parts []string
	if q.SelfRate {
		parts = append(parts, "rate")
	}
	if q.SelfComment {
		parts = append(parts, "comment")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func init() {
	questionAddCmd.Flags().String("id", "", "Question ID (generated when empty)")
	questionAddCmd.Flags().String("name", "", "Question name")
	questionAddCmd.Flags().String("text", "", "Question text")
	questionAddCmd.Flags().Float64("max-mark", 1, "Maximum mark")
	questionAddCmd.Flags().Bool("self-rate", true, "Allow star self-rating")
	questionAddCmd.Flags().Bool("self-comment", true, "Allow a self-assessment comment")
	_ = questionAddCmd.MarkFlagRequired("name")

	questionCmd.AddCommand(questionAddCmd)
	questionCmd.AddCommand(questionListCmd)
}
