package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielpatrickdp/squad-tactics/internal/logging"
	"github.com/danielpatrickdp/squad-tactics/internal/replay"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// #region inspect-cmd

func (a *app) inspectCmd() *cobra.Command {
	var (
		squad   string
		last    int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List journaled squads, or one squad's versions and decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if squad == "" {
				return runLineages(cmd.OutOrStdout(), store, jsonOut)
			}
			return runHistory(cmd.OutOrStdout(), store, squad, last, jsonOut)
		},
	}
	cmd.Flags().StringVar(&squad, "squad", "", "show the history of one squad")
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent versions and decisions")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of a table")
	return cmd
}

type lineageRow struct {
	Squad       string `json:"squad"`
	VersionID   string `json:"version_id"`
	Facts       int    `json:"facts"`
	TimeLearned int    `json:"time_learned"`
	CreatedAt   string `json:"created_at"`
}

func runLineages(out io.Writer, store *state.Store, jsonOut bool) error {
	names, err := store.Lineages()
	if err != nil {
		return err
	}
	rows := make([]lineageRow, 0, len(names))
	for _, name := range names {
		cur, err := store.GetCurrent(name)
		if err != nil {
			return fmt.Errorf("squad %s: %w", name, err)
		}
		rows = append(rows, lineageRow{
			Squad:       name,
			VersionID:   cur.VersionID,
			Facts:       len(cur.Facts),
			TimeLearned: cur.TimeLearned,
			CreatedAt:   cur.CreatedAt.Format(time.RFC3339),
		})
	}
	if jsonOut {
		return writeJSON(out, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no squads journaled")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SQUAD\tVERSION\tFACTS\tTIME\tCREATED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Squad, r.VersionID, r.Facts, r.TimeLearned, r.CreatedAt)
	}
	return tw.Flush()
}

type historyRow struct {
	VersionID   string `json:"version_id"`
	ParentID    string `json:"parent_id,omitempty"`
	Facts       int    `json:"facts"`
	TimeLearned int    `json:"time_learned"`
	CreatedAt   string `json:"created_at"`
}

type decisionRow struct {
	VersionID string         `json:"version_id"`
	Direction string         `json:"direction"`
	Decision  string         `json:"decision"`
	Reason    string         `json:"reason,omitempty"`
	Vetoes    []string       `json:"vetoes,omitempty"`
	Levels    map[string]int `json:"levels,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func runHistory(out io.Writer, store *state.Store, squad string, last int, jsonOut bool) error {
	versions, err := store.ListVersions(squad, last)
	if err != nil {
		return err
	}
	entries, err := logging.ListEntries(store.DB(), squad, last)
	if err != nil {
		return err
	}

	history := make([]historyRow, len(versions))
	for i, v := range versions {
		history[i] = historyRow{
			VersionID:   v.VersionID,
			ParentID:    v.ParentID,
			Facts:       len(v.Facts),
			TimeLearned: v.TimeLearned,
			CreatedAt:   v.CreatedAt.Format(time.RFC3339),
		}
	}
	decisions := make([]decisionRow, len(entries))
	for i, e := range entries {
		d := decisionRow{
			VersionID: e.VersionID,
			Direction: e.Direction,
			Decision:  e.Decision,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if rec, err := logging.DecodeRecord(e.ChangeJSON); err == nil {
			d.Vetoes, d.Levels = rec.Vetoes, rec.Levels
		}
		decisions[i] = d
	}

	if jsonOut {
		return writeJSON(out, map[string]interface{}{"squad": squad, "versions": history, "decisions": decisions})
	}
	if len(history) == 0 {
		return fmt.Errorf("squad %s has no journaled versions", squad)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tPARENT\tFACTS\tTIME\tCREATED")
	for _, r := range history {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.VersionID, orDash(r.ParentID), r.Facts, r.TimeLearned, r.CreatedAt)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DIRECTION\tDECISION\tVERSION\tVETOES\tREASON")
	for _, d := range decisions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Direction, d.Decision, d.VersionID, orDash(strings.Join(d.Vetoes, ",")), d.Reason)
	}
	return tw.Flush()
}

// #endregion inspect-cmd

// #region rollback-cmd

func (a *app) rollbackCmd() *cobra.Command {
	var squad string
	cmd := &cobra.Command{
		Use:   "rollback VERSION",
		Short: "Make a journaled version the squad's active snapshot again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Rollback(squad, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now at %s\n", squad, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&squad, "squad", "", "squad to roll back")
	_ = cmd.MarkFlagRequired("squad")
	return cmd
}

// #endregion rollback-cmd

// #region export-cmd

func (a *app) exportCmd() *cobra.Command {
	var squad, topoPath, outPath string
	var last int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a squad's journaled decisions as a replay fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := topology.ReadDocument(topoPath)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := logging.ListEntries(store.DB(), squad, last)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("squad %s has no journaled decisions", squad)
			}
			f, err := replay.FromProvenance(squad, doc, entries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				file, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer file.Close()
				out = file
			}
			if err := replay.WriteFixture(out, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d steps of squad %s\n", len(f.Steps), squad)
			return nil
		},
	}
	cmd.Flags().StringVar(&squad, "squad", "", "squad to export")
	cmd.Flags().StringVar(&topoPath, "topology", "", "topology YAML the squad ran on")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output fixture path (default stdout)")
	cmd.Flags().IntVar(&last, "last", 0, "export only the N most recent decisions (0 = all)")
	_ = cmd.MarkFlagRequired("squad")
	_ = cmd.MarkFlagRequired("topology")
	return cmd
}

// #endregion export-cmd

// #region helpers

func writeJSON(out io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion helpers
