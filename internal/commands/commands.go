// Package commands holds the smartspend cobra command tree.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smart-spend/internal/api"
	"smart-spend/internal/config"
	"smart-spend/internal/connection"
	"smart-spend/internal/dashboard"
	"smart-spend/internal/logging"
	"smart-spend/internal/refresh"
	"smart-spend/internal/session"
	"smart-spend/internal/tui"
)

// env is the configuration and logger shared by every subcommand.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func New() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   "smartspend",
		Short: "Track spending by chatting, and watch the dashboard update live.",
		Long: `smartspend talks to the Smart Spend backend. Run it without a subcommand
for the interactive dashboard, or use the subcommands for one-off actions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg

			// The interactive dashboard owns the terminal, so it logs to a file.
			var paths []string
			if cmd == cmd.Root() {
				paths = append(paths, cfg.LogFile())
			}
			e.logger, err = logging.New(cfg.LogLevel, paths...)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(e.controller, e.logger)
		},
	}

	AddCommands(cmd, e)
	return cmd
}

func AddCommands(topLevel *cobra.Command, e *env) {
	addLogin(topLevel, e)
	addRegister(topLevel, e)
	addLogout(topLevel, e)
	addSummary(topLevel, e)
	addHistory(topLevel, e)
	addBudget(topLevel, e)
	addExpense(topLevel, e)
	addGoal(topLevel, e)
	addUpload(topLevel, e)
	addDevServer(topLevel, e)
}

func (e *env) client() *api.Client {
	return api.NewClient(e.cfg.ServerURL, e.cfg.RequestTimeout)
}

// controller builds a fresh, unauthenticated controller.
func (e *env) controller() (*dashboard.Controller, error) {
	sessions, err := session.NewStore(e.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	client := e.client()
	return dashboard.New(dashboard.Deps{
		API:       client,
		Refresher: refresh.NewCoordinator(client, e.cfg.ForecastMonths, e.logger),
		Connector: connection.NewManager(e.cfg.WSURL, e.logger),
		Sessions:  sessions,
		AckDelay:  e.cfg.AckDelay,
		Logger:    e.logger,
	}), nil
}

// restored builds a controller and loads the stored session into it.
func (e *env) restored() (*dashboard.Controller, error) {
	ctrl, err := e.controller()
	if err != nil {
		return nil, err
	}
	if !ctrl.Restore() {
		ctrl.Close()
		return nil, fmt.Errorf("not logged in: run `smartspend login` first")
	}
	return ctrl, nil
}
