package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/danielpatrickdp/squad-tactics/internal/replay"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// #region replay-cmd

func (a *app) replayCmd() *cobra.Command {
	var journal bool
	cmd := &cobra.Command{
		Use:   "replay FIXTURE...",
		Short: "Replay scenario fixtures and compare every step against its expectation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd.Context(), cmd.OutOrStdout(), args, journal)
		},
	}
	cmd.Flags().BoolVar(&journal, "journal", false, "journal each fixture as its own lineage in the store")
	return cmd
}

// runReplay runs the fixtures concurrently, one pipeline and lineage each,
// and prints their tables in argument order.
func (a *app) runReplay(ctx context.Context, out io.Writer, paths []string, journal bool) error {
	u, err := a.updator()
	if err != nil {
		return err
	}
	var store *state.Store
	if journal {
		if store, err = a.openStore(); err != nil {
			return err
		}
		defer store.Close()
	}

	fixtures := make([]*replay.Fixture, len(paths))
	outcomes := make([]*replay.Outcome, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := replay.LoadFixture(path)
			if err != nil {
				return err
			}
			if journal {
				f.Squad = lineageFor(path, f.Squad)
			}
			o, err := replay.RunFixture(f, u, a.cfg.Pipeline(), store, a.logger)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fixtures[i], outcomes[i] = f, o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	diverged := 0
	for i, path := range paths {
		if !printComparison(out, path, fixtures[i], outcomes[i]) {
			diverged++
		}
	}
	a.logger.Info("replay finished", zap.Int("fixtures", len(paths)), zap.Int("diverged", diverged))
	if diverged > 0 {
		return errDiverged
	}
	return nil
}

// lineageFor keeps journaled fixtures apart even when they name the same squad.
func lineageFor(path, squad string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return base + ":" + squad
}

// #endregion replay-cmd

// #region output

// printComparison outputs one fixture's table and reports whether it matched.
func printComparison(out io.Writer, path string, f *replay.Fixture, o *replay.Outcome) bool {
	fmt.Fprintf(out, "== %s", path)
	if o.Description != "" {
		fmt.Fprintf(out, " (%s)", o.Description)
	}
	fmt.Fprintln(out)

	expected := make(map[string]string, len(f.ExpectedResults))
	for _, e := range f.ExpectedResults {
		expected[e.StepID] = e.Action
	}
	bad := make(map[string]bool, len(o.Mismatches))
	for _, m := range o.Mismatches {
		bad[m.StepID] = true
	}

	fmt.Fprintf(out, "%-16s| %-9s| %-15s| %-15s| %s\n", "Step", "Dir", "Expected", "Replayed", "Match")
	fmt.Fprintf(out, "%-16s+%-10s+%-16s+%-16s+%s\n",
		"----------------", "----------", "----------------", "----------------", "------")
	for _, r := range o.Results {
		exp, ok := expected[r.StepID]
		if !ok || exp == "" {
			exp = "-"
		}
		match := "OK"
		if bad[r.StepID] {
			match = "DIFF"
		}
		fmt.Fprintf(out, "%-16s| %-9s| %-15s| %-15s| %s\n", r.StepID, r.Direction, exp, r.Action, match)
	}
	for _, m := range o.Mismatches {
		fmt.Fprintf(out, "  %s\n", m)
	}

	s := o.Summary
	fmt.Fprintf(out, "\nSummary: %d steps, %d commit, %d gate_reject, %d eval_rollback, %d no_op, %d mismatches\n\n",
		s.TotalSteps, s.Commits, s.GateRejects, s.EvalRollbacks, s.NoOps, len(o.Mismatches))
	return len(o.Mismatches) == 0
}

// #endregion output
