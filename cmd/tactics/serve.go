package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/squad-tactics/internal/codec"
	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/topology"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// #region serve-cmd

func (a *app) serveCmd() *cobra.Command {
	var topoPath string
	var noJournal bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve WorldService over gRPC for every squad on one topology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if topoPath == "" {
				topoPath = a.cfg.Server.Topology
			}
			if topoPath == "" {
				return fmt.Errorf("no topology: pass --topology or set server.topology")
			}
			return a.serve(cmd.Context(), topoPath, !noJournal)
		},
	}
	cmd.Flags().StringVar(&topoPath, "topology", "", "topology YAML (overrides server.topology)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "keep squads in memory only")
	return cmd
}

func (a *app) serve(ctx context.Context, topoPath string, journal bool) error {
	graph, err := topology.Load(topoPath)
	if err != nil {
		return err
	}
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

	squads := orchestrator.NewSquads(graph, u, a.cfg.Pipeline(), store, a.logger)
	limiter := rate.NewLimiter(rate.Limit(a.cfg.Server.Rate), a.cfg.Server.Burst)
	gs := codec.NewGRPCServer(codec.NewServer(squads, a.logger), limiter)

	lis, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		gs.GracefulStop()
		return nil
	})

	a.logger.Info("serving",
		zap.String("addr", lis.Addr().String()),
		zap.String("topology", topoPath),
		zap.Int("areas", graph.NumberOfNodes()),
		zap.Bool("journal", journal),
	)
	err = g.Wait()
	a.logger.Info("stopped", zap.Strings("squads", squads.Names()))
	return err
}

// #endregion serve-cmd
