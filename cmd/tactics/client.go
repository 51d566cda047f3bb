package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielpatrickdp/squad-tactics/internal/codec"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const callTimeout = 10 * time.Second

// #region levels-cmd

func (a *app) levelsCmd() *cobra.Command {
	var squad string
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Fetch a squad's current threat levels from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec.NewClient(a.cfg.Server.Addr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			res, err := c.Interpret(ctx, squad)
			if err != nil {
				return err
			}

			in := res.Interpretation
			fmt.Fprintf(cmd.OutOrStdout(), "squad %s at %s\n", res.Squad, res.VersionID)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AREA\tLEVEL\tSOURCES")
			for area := range in.NumberOfNodes() {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", area, in.Level(area), joinInts(in.Sources(area)))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&squad, "squad", "", "squad to query")
	_ = cmd.MarkFlagRequired("squad")
	return cmd
}

// #endregion levels-cmd

// #region send-cmd

func (a *app) sendCmd() *cobra.Command {
	var squad, changePath string
	var revert bool
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a change (YAML with time, before, after) to a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := readChange(changePath)
			if err != nil {
				return err
			}
			c, err := codec.NewClient(a.cfg.Server.Addr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			var res codec.StepResult
			if revert {
				res, err = c.Revert(ctx, squad, change)
			} else {
				res, err = c.Apply(ctx, squad, change)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s -> %s\n", res.Squad, res.Direction, res.Action, res.VersionID)
			if res.Reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  reason: %s\n", res.Reason)
			}
			if len(res.Vetoes) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  vetoes: %s\n", strings.Join(res.Vetoes, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&squad, "squad", "", "squad the change belongs to")
	cmd.Flags().StringVar(&changePath, "change", "", "change YAML file")
	cmd.Flags().BoolVar(&revert, "revert", false, "revert the change instead of applying it")
	_ = cmd.MarkFlagRequired("squad")
	_ = cmd.MarkFlagRequired("change")
	return cmd
}

func readChange(path string) (update.StateChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return update.StateChange{}, fmt.Errorf("read change %s: %w", path, err)
	}
	var change update.StateChange
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&change); err != nil {
		return update.StateChange{}, fmt.Errorf("change %s: %w", path, err)
	}
	return change, nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return orDash(strings.Join(parts, ","))
}

// #endregion send-cmd
