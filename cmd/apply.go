package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/micrictor/fwrules/internal/enforce"
	"github.com/micrictor/fwrules/internal/rules"
)

// applyCmd installs the rule set into the kernel packet filter
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Install the rules into iptables or nftables",
	Long: `Renders every tcp/udp inbound/outbound term of the index as an accept rule
in the configured chains. Terms with other directions or protocols are skipped.`,
	RunE: applyMain,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().Bool("dry-run", false, "Print the iptables rules instead of installing them")
	applyCmd.Flags().Bool("remove", false, "Remove previously installed rules")
	applyCmd.Flags().String("backend", "", "iptables or nftables, overrides enforce.backend")
}

func applyMain(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	remove, _ := cmd.Flags().GetBool("remove")
	backend, _ := cmd.Flags().GetString("backend")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log.WithField("component", "enforce")

	records, err := a.loadRules(cmd.Context())
	if err != nil {
		return err
	}
	ix, err := rules.Build(records)
	if err != nil {
		return err
	}

	opts := enforce.OptionsFromConfig(a.cfg.Enforce)
	if backend != "" {
		opts.Backend = backend
	}
	plan := enforce.NewPlan(ix)
	for _, term := range plan.Skipped {
		log.WithField("term", termString(term)).Warn("term cannot be installed, skipping")
	}

	if dryRun {
		return printSpecs(cmd.OutOrStdout(), plan.IptablesSpecs(opts))
	}

	enforcer, err := enforce.New(opts)
	if err != nil {
		return err
	}
	if remove {
		if err := enforcer.Remove(plan); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		log.WithField("backend", opts.Backend).WithField("terms", len(plan.Terms)).Info("rules removed")
		return nil
	}
	if err := enforcer.Apply(plan); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	log.WithField("backend", opts.Backend).WithField("terms", len(plan.Terms)).Info("rules installed")
	return nil
}

func printSpecs(out io.Writer, specs []enforce.Spec) error {
	for _, spec := range specs {
		if _, err := fmt.Fprintf(out, "-A %s %s\n", spec.Chain, strings.Join(spec.Args, " ")); err != nil {
			return err
		}
	}
	return nil
}

func termString(term rules.Term) string {
	return fmt.Sprintf("%s,%s,%s,%s", term.Key.Direction, term.Key.Protocol, term.Ports, term.Addresses)
}
