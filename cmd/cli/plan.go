package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mutaplan/mutaplan/internal/config"
	"github.com/mutaplan/mutaplan/internal/mutation"
	"github.com/mutaplan/mutaplan/internal/project"
	"github.com/mutaplan/mutaplan/internal/reporter"
	"github.com/mutaplan/mutaplan/internal/sandbox"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

func planCmd() *cobra.Command {
	var (
		projectPath string
		mutantsFile string
		dryRunFile  string
		outputFile  string
		ignoreStatic bool
		disableBail  bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan which mutants a mutation-testing run should execute",
		Long: `Reads a mutant catalog and a dry-run coverage report, reuses verdicts
from the project's incremental report where the underlying source is
unchanged, classifies the rest by coverage shape, and prints one plan
record per mutant.

Example:
  mutaplan plan -p . -m mutants.json -d dryrun.json -o plan.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			mutants, err := loadMutants(mutantsFile)
			if err != nil {
				return fmt.Errorf("failed to load mutants: %w", err)
			}

			dryRun, err := loadDryRun(dryRunFile)
			if err != nil {
				return fmt.Errorf("failed to load dry-run report: %w", err)
			}

			projCfg, err := config.LoadProjectConfig(projectPath)
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}
			projCfg.Merge(&config.ProjectConfig{IgnoreStatic: ignoreStatic, DisableBail: disableBail})

			proj, err := project.Open(projectPath)
			if err != nil {
				return fmt.Errorf("failed to open project: %w", err)
			}

			log.Info().
				Str("project", projectPath).
				Int("mutants", len(mutants)).
				Msg("planning mutation test run")

			records, err := mutation.Plan(ctx, mutation.Input{
				Mutants: mutants,
				DryRun:  dryRun,
				Options: projCfg.Options(),
			}, proj, sandbox.NewHashingSandbox(), reporter.NoopReporter{})
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}

			return writePlan(records, outputFile)
		},
	}

	cmd.Flags().StringVarP(&projectPath, "project", "p", ".", "Path to the git repository under test")
	cmd.Flags().StringVarP(&mutantsFile, "mutants", "m", "", "Path to a JSON array of plan.Mutant")
	cmd.Flags().StringVarP(&dryRunFile, "dry-run", "d", "", "Path to a JSON plan.DryRunResult")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Where to write the resulting plan (default: stdout)")
	cmd.Flags().BoolVar(&ignoreStatic, "ignore-static", false, "Mark mutants covered only statically (during module load) as ignored instead of running them")
	cmd.Flags().BoolVar(&disableBail, "disable-bail", false, "Never early-exit a mutant's test run on first kill")
	cmd.MarkFlagRequired("mutants")
	cmd.MarkFlagRequired("dry-run")

	return cmd
}

func loadMutants(path string) ([]plan.Mutant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mutants []plan.Mutant
	if err := json.Unmarshal(data, &mutants); err != nil {
		return nil, err
	}
	return mutants, nil
}

func loadDryRun(path string) (plan.DryRunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plan.DryRunResult{}, err
	}
	var dryRun plan.DryRunResult
	if err := json.Unmarshal(data, &dryRun); err != nil {
		return plan.DryRunResult{}, err
	}
	return dryRun, nil
}

func writePlan(records []plan.PlanRecord, outputFile string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputFile, err)
	}

	log.Info().Str("output", outputFile).Int("records", len(records)).Msg("plan written")
	return nil
}
