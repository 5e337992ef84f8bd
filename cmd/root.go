package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/micrictor/fwrules/internal/config"
	"github.com/micrictor/fwrules/internal/firewall"
	"github.com/micrictor/fwrules/internal/loader"
	"github.com/micrictor/fwrules/internal/logging"
	"github.com/micrictor/fwrules/internal/rules"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "fwrules",
	Short: "Static firewall rule index",
	Long: `Answers accept/deny queries for (direction, protocol, port, address)
against a static rule set, serves them over UDP and installs them into the kernel filter.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./fwrules.yaml or /etc/fwrules/fwrules.yaml)")
	rootCmd.PersistentFlags().String("rules", "", "Rule file, overrides rules.path and selects the file source")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app is what every subcommand needs: the config, a logger and the rule source.
type app struct {
	cfg         *config.AppConfig
	log         *logrus.Logger
	source      loader.Source
	closeSource func() error
	closeLog    io.Closer
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if path, _ := cmd.Flags().GetString("rules"); path != "" {
		cfg.Rules.Path = path
		if cfg.Rules.Source != "yaml" {
			cfg.Rules.Source = "file"
		}
	}

	log, closeLog, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	source, closeSource, err := loader.FromConfig(cmd.Context(), cfg.Rules)
	if err != nil {
		closeLog.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, source: source, closeSource: closeSource, closeLog: closeLog}, nil
}

func (a *app) Close() {
	if err := a.closeSource(); err != nil {
		a.log.WithError(err).Warn("close rule source")
	}
	a.closeLog.Close()
}

func (a *app) loadRules(ctx context.Context) ([]rules.Rule, error) {
	records, err := a.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.source, err)
	}
	return records, nil
}

func (a *app) firewall(ctx context.Context) (*firewall.Firewall, error) {
	fw := firewall.New(a.source, a.log)
	if err := fw.Reload(ctx); err != nil {
		return nil, err
	}
	return fw, nil
}
