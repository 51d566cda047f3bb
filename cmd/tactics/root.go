package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/squad-tactics/internal/config"
	"github.com/danielpatrickdp/squad-tactics/internal/observability"
	"github.com/danielpatrickdp/squad-tactics/internal/rules"
	"github.com/danielpatrickdp/squad-tactics/internal/state"
	"github.com/danielpatrickdp/squad-tactics/internal/update"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// errDiverged makes the process exit 1 without printing an extra error line.
var errDiverged = errors.New("replay diverged from expectations")

// #region app

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop(), closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:           "tactics",
		Short:         "Squad situational awareness: apply observations, interpret threats, replay and inspect journals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			logger, closeLog, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			a.cfg, a.logger, a.closeLog = cfg, logger, closeLog
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeLog()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./tactics.yaml)")
	pf.String("db", "", "snapshot journal path (overrides store.path)")
	pf.String("addr", "", "server address (overrides server.addr)")
	_ = a.v.BindPFlag("store.path", pf.Lookup("db"))
	_ = a.v.BindPFlag("server.addr", pf.Lookup("addr"))

	root.AddCommand(
		a.replayCmd(),
		a.inspectCmd(),
		a.rollbackCmd(),
		a.exportCmd(),
		a.serveCmd(),
		a.levelsCmd(),
		a.sendCmd(),
	)
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errDiverged) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}

// #endregion app

// #region shared

func (a *app) updator() (*update.WorldUpdator, error) {
	return update.NewWorldUpdator(rules.DefaultTable(), update.DefaultRegistry(), a.logger)
}

// openStore opens the journal at store.path.
func (a *app) openStore() (*state.Store, error) {
	if a.cfg.Store.Path == "" {
		return nil, fmt.Errorf("no journal configured: set store.path or --db")
	}
	store, err := state.NewStore(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

// #endregion shared
