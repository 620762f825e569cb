package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/roasbeef/prreview/internal/engine"
	"github.com/roasbeef/prreview/internal/gateway"
	"github.com/roasbeef/prreview/internal/rules"
	"github.com/spf13/cobra"
)

var (
	// reviewRepo is the owner/name of the repository.
	reviewRepo string

	// reviewPR is the pull request number.
	reviewPR int

	// reviewRulesFiles are the markdown standards files to load.
	reviewRulesFiles []string

	// reviewMaxIterations caps the analysis rounds per run.
	reviewMaxIterations int

	// reviewFileWorkers bounds concurrent per-file analysis.
	reviewFileWorkers int

	// reviewTimeout bounds the whole run.
	reviewTimeout time.Duration

	// reviewDryRun validates and reports without posting.
	reviewDryRun bool
)

// reviewCmd runs one review over a pull request.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a pull request",
	Long: `Review a pull request against the given coding standards and post
the findings as a single batched review of inline comments.

The run fetches the PR's changed files, judges every added line, and
posts at most one comment per (file, line). Files whose patches cannot
be parsed are skipped and listed in the report.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewRepo, "repo", "r", "",
		"Repository as owner/name (required)")
	reviewCmd.Flags().IntVarP(&reviewPR, "pr", "p", 0,
		"Pull request number (required)")
	reviewCmd.Flags().StringSliceVar(&reviewRulesFiles, "rules", nil,
		"Markdown standards file (repeatable, required)")
	reviewCmd.Flags().IntVar(&reviewMaxIterations, "max-iterations",
		engine.DefaultMaxIterations,
		"Maximum analysis rounds per run")
	reviewCmd.Flags().IntVar(&reviewFileWorkers, "file-workers",
		engine.DefaultFileWorkers,
		"Concurrent per-file analysis workers")
	reviewCmd.Flags().DurationVar(&reviewTimeout, "timeout", 10*time.Minute,
		"Overall run timeout")
	reviewCmd.Flags().BoolVar(&reviewDryRun, "dry-run", false,
		"Validate and report without posting comments")

	_ = reviewCmd.MarkFlagRequired("repo")
	_ = reviewCmd.MarkFlagRequired("pr")
	_ = reviewCmd.MarkFlagRequired("rules")
}

func runReview(cmd *cobra.Command, args []string) error {
	owner, name, err := parseRepo(reviewRepo)
	if err != nil {
		return err
	}
	ref := gateway.PullRequestRef{
		Owner:  owner,
		Repo:   name,
		Number: reviewPR,
	}

	log, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	gw, err := newGateway(log)
	if err != nil {
		return err
	}

	ruleset, err := rules.Load(log, reviewRulesFiles...)
	if err != nil {
		return err
	}
	if ruleset.Empty() {
		return fmt.Errorf("no rules found in %s",
			strings.Join(reviewRulesFiles, ", "))
	}

	runner, err := engine.NewRunner(engine.Config{
		MaxIterations: reviewMaxIterations,
		FileWorkers:   reviewFileWorkers,
		DryRun:        reviewDryRun,
		Logger:        log,
	}, gw, rules.NewPatternJudge(ruleset, log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, reviewTimeout)
	defer cancel()

	report, runErr := runner.Run(ctx, ref)
	if report != nil {
		if err := printReport(report); err != nil {
			return err
		}
	}

	return runErr
}

// printReport renders the run report per the output format flag.
func printReport(report *engine.Report) error {
	if outputFormat == "json" {
		return outputJSON(report)
	}

	fmt.Printf("Run %s: %s (%s)\n",
		report.RunID, report.Outcome, report.Termination)
	fmt.Printf("  PR:          %s\n", report.Ref.String())
	fmt.Printf("  Iterations:  %d\n", report.Iterations)
	fmt.Printf("  Candidates:  %d\n", report.Candidates)
	if report.DryRun {
		fmt.Printf("  Posted:      0 (dry run)\n")
	} else {
		fmt.Printf("  Posted:      %d\n", report.Posted)
	}

	if len(report.Failed) > 0 {
		fmt.Printf("  Failed:      %d\n", len(report.Failed))
		for key, reason := range report.Failed {
			fmt.Printf("    %s:%d: %s\n",
				key.Path, key.Line, reason)
		}
	}

	if len(report.Skipped) > 0 {
		fmt.Printf("  Skipped:     %d\n", len(report.Skipped))
		for _, skip := range report.Skipped {
			fmt.Printf("    %s: %s\n", skip.Path, skip.Reason)
		}
	}

	return nil
}
