package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/workspace"
	"github.com/garnizeh/talentflow/pkg/models"
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"cand"},
	Short:   "List candidates and move them through the pipeline",
}

var (
	candSearch string
	candStage  string
	candJob    string
	candPage   int
	candLimit  int

	noteAuthor string
)

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates",
	Args:  cobra.NoArgs,
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, _ []string) error {
		page, err := ws.ListCandidates(ctx, query.CandidateQuery{
			Params: query.Params{Page: candPage, Limit: candLimit, Search: candSearch},
			Stage:  models.Stage(candStage),
			JobID:  candJob,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	}),
}

var candidatesCreateCmd = &cobra.Command{
	Use:   "create NAME EMAIL",
	Short: "Add a candidate to a job",
	Args:  cobra.ExactArgs(2),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		if candJob == "" {
			return fmt.Errorf("--job is required")
		}
		c, err := ws.CreateCandidate(ctx, models.Candidate{Name: args[0], Email: args[1], JobID: candJob, Stage: models.Stage(candStage)})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	}),
}

var candidatesMoveCmd = &cobra.Command{
	Use:   "move ID STAGE",
	Short: "Move a candidate to another stage",
	Args:  cobra.ExactArgs(2),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		c, err := ws.MoveCandidate(ctx, args[0], models.Stage(args[1]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), c)
	}),
}

var candidatesNoteCmd = &cobra.Command{
	Use:   "note ID TEXT...",
	Short: "Add a note; @name mentions are extracted",
	Args:  cobra.MinimumNArgs(2),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		n, err := ws.AddNote(ctx, args[0], models.CandidateNote{
			Content:    strings.Join(args[1:], " "),
			AuthorName: noteAuthor,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), n)
	}),
}

var candidatesTimelineCmd = &cobra.Command{
	Use:   "timeline ID",
	Short: "Show the timeline of a candidate",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		events, err := ws.Timeline(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), events)
	}),
}

func init() {
	candidatesListCmd.Flags().StringVarP(&candSearch, "search", "s", "", "Match name or email")
	candidatesListCmd.Flags().StringVar(&candStage, "stage", "", "Filter by stage")
	candidatesListCmd.Flags().StringVar(&candJob, "job", "", "Filter by job id")
	candidatesListCmd.Flags().IntVar(&candPage, "page", 1, "Page number")
	candidatesListCmd.Flags().IntVar(&candLimit, "limit", 10, "Page size")

	candidatesCreateCmd.Flags().StringVar(&candJob, "job", "", "Job id")
	candidatesCreateCmd.Flags().StringVar(&candStage, "stage", "", "Initial stage (applied when empty)")

	candidatesNoteCmd.Flags().StringVar(&noteAuthor, "author", "talentctl", "Author name")

	candidatesCmd.AddCommand(candidatesListCmd, candidatesCreateCmd, candidatesMoveCmd, candidatesNoteCmd, candidatesTimelineCmd)
	rootCmd.AddCommand(candidatesCmd)
}
