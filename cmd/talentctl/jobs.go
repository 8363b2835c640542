package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/garnizeh/talentflow/internal/query"
	"github.com/garnizeh/talentflow/internal/workspace"
	"github.com/garnizeh/talentflow/pkg/models"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List and change jobs",
}

var (
	jobsSearch string
	jobsStatus string
	jobsTags   []string
	jobsPage   int
	jobsLimit  int

	jobSlug         string
	jobTags         []string
	jobDescription  string
	jobRequirements []string
	jobUnarchive    bool
)

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in board order",
	Args:  cobra.NoArgs,
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, _ []string) error {
		page, err := ws.ListJobs(ctx, query.JobQuery{
			Params: query.Params{Page: jobsPage, Limit: jobsLimit, Search: jobsSearch, SortBy: "order"},
			Status: models.JobStatus(jobsStatus),
			Tags:   jobsTags,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	}),
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a job at the end of the board",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		j, err := ws.CreateJob(ctx, models.Job{
			Title:        args[0],
			Slug:         jobSlug,
			Tags:         jobTags,
			Description:  jobDescription,
			Requirements: jobRequirements,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), j)
	}),
}

var jobsArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Archive a job, or unarchive it with --undo",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		j, err := ws.ArchiveJob(ctx, args[0], !jobUnarchive)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), j)
	}),
}

var jobsReorderCmd = &cobra.Command{
	Use:   "reorder ID TO",
	Short: "Move a job to another board position",
	Args:  cobra.ExactArgs(2),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[1], err)
		}
		j, err := ws.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		if err := ws.ReorderJob(ctx, j.ID, j.Order, to); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "moved %s from %d to %d\n", j.ID, j.Order, to)
		return nil
	}),
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a job with its candidates and assessment",
	Args:  cobra.ExactArgs(1),
	RunE: withWorkspace(func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error {
		if err := ws.DeleteJob(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	}),
}

func init() {
	jobsListCmd.Flags().StringVarP(&jobsSearch, "search", "s", "", "Match title, slug or tags")
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status (active|archived)")
	jobsListCmd.Flags().StringSliceVar(&jobsTags, "tag", nil, "Keep jobs carrying every given tag")
	jobsListCmd.Flags().IntVar(&jobsPage, "page", 1, "Page number")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 10, "Page size")

	jobsCreateCmd.Flags().StringVar(&jobSlug, "slug", "", "Slug (derived from the title when empty)")
	jobsCreateCmd.Flags().StringSliceVar(&jobTags, "tag", nil, "Tags")
	jobsCreateCmd.Flags().StringVar(&jobDescription, "description", "", "Description")
	jobsCreateCmd.Flags().StringSliceVar(&jobRequirements, "requirement", nil, "Requirements")

	jobsArchiveCmd.Flags().BoolVar(&jobUnarchive, "undo", false, "Make the job active again")

	jobsCmd.AddCommand(jobsListCmd, jobsCreateCmd, jobsArchiveCmd, jobsReorderCmd, jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}
