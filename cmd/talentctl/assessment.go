package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garnizeh/talentflow/internal/errs"
	"github.com/garnizeh/talentflow/internal/logic"
	"github.com/garnizeh/talentflow/internal/session"
	"github.com/garnizeh/talentflow/internal/workspace"
	"github.com/garnizeh/talentflow/pkg/models"
)

var assessmentCmd = &cobra.Command{
	Use:   "assessment",
	Short: "Evaluate and answer assessments",
}

var (
	checkAssessmentFile string
	checkResponsesFile  string

	answerCandidate string
	answerSet       []string
	answerSubmit    bool
)

// checkReport is the outcome of evaluating answers offline.
type checkReport struct {
	Questions         []logic.State                      `json:"questions"`
	Progress          logic.Progress                     `json:"progress"`
	Percent           int                                `json:"percent"`
	CompletedSections []string                           `json:"completedSections"`
	Errors            map[string][]logic.ValidationError `json:"errors,omitempty"`
}

var assessmentCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate conditional logic and validation of answers offline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var a models.Assessment
		if err := readJSONFile(checkAssessmentFile, &a); err != nil {
			return err
		}
		answers := map[string]any{}
		if checkResponsesFile != "" {
			if err := readJSONFile(checkResponsesFile, &answers); err != nil {
				return err
			}
		}

		p := logic.ComputeProgress(a, answers)
		report := checkReport{
			Questions:         logic.Evaluate(a, answers),
			Progress:          p,
			Percent:           p.Percent(),
			CompletedSections: logic.CompletedSections(a, answers),
			Errors:            logic.ValidateAssessment(a, answers),
		}
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if len(report.Errors) > 0 {
			return errs.Validation("answers are not valid", logic.Fields(report.Errors))
		}
		return nil
	},
}

var assessmentAnswerCmd = &cobra.Command{
	Use:   "answer ASSESSMENT_ID",
	Short: "Record answers of a candidate, optionally submitting them",
	Long:  "Each --set takes QUESTION=VALUE; VALUE is parsed as JSON when possible and taken as a string otherwise.",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		if answerCandidate == "" {
			return fmt.Errorf("--candidate is required")
		}
		s, err := session.Open(ctx, ws, args[0], answerCandidate, session.Options{})
		if err != nil {
			return err
		}
		defer s.Close()
		if s.Completed() {
			return errs.Conflict("response of %s to %s was already submitted", answerCandidate, args[0])
		}

		for _, kv := range answerSet {
			id, raw, ok := strings.Cut(kv, "=")
			if !ok || id == "" {
				return fmt.Errorf("invalid --set %q, want QUESTION=VALUE", kv)
			}
			s.UpdateResponse(id, parseValue(raw))
		}

		if answerSubmit {
			resp, err := s.Submit(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}
		if err := s.Flush(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved, %d%% answered\n", s.Progress().Percent())
		return nil
	}),
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func init() {
	assessmentCheckCmd.Flags().StringVarP(&checkAssessmentFile, "assessment", "a", "", "Assessment JSON file")
	assessmentCheckCmd.Flags().StringVarP(&checkResponsesFile, "responses", "r", "", "Answers JSON file keyed by question id")
	_ = assessmentCheckCmd.MarkFlagRequired("assessment")

	assessmentAnswerCmd.Flags().StringVar(&answerCandidate, "candidate", "", "Candidate id")
	assessmentAnswerCmd.Flags().StringArrayVar(&answerSet, "set", nil, "QUESTION=VALUE answer, repeatable")
	assessmentAnswerCmd.Flags().BoolVar(&answerSubmit, "submit", false, "Validate and submit the response")

	assessmentCmd.AddCommand(assessmentCheckCmd, assessmentAnswerCmd)
	rootCmd.AddCommand(assessmentCmd)
}
