package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/micrictor/fwrules/internal/rules"
)

// rulesCmd prints the loaded rule records
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the loaded rules",
	Long: `Prints the rule records in source order. With --index the rules are
validated and printed as the index stores them, with shared port starts merged.`,
	RunE: rulesMain,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().Bool("index", false, "Print the merged index instead of the raw records")
}

func rulesMain(cmd *cobra.Command, args []string) error {
	showIndex, _ := cmd.Flags().GetBool("index")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.loadRules(cmd.Context())
	if err != nil {
		return err
	}

	if !showIndex {
		return printRules(cmd.OutOrStdout(), records)
	}

	ix, err := rules.Build(records)
	if err != nil {
		return err
	}
	return printTerms(cmd.OutOrStdout(), ix.Terms())
}

func printRules(out io.Writer, records []rules.Rule) error {
	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "DIRECTION\tPROTOCOL\tPORT\tIP ADDRESS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Direction, r.Protocol, r.Port, r.Address)
	}
	return w.Flush()
}

func printTerms(out io.Writer, terms []rules.Term) error {
	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "DIRECTION\tPROTOCOL\tPORT\tIP ADDRESS")
	for _, t := range terms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Key.Direction, t.Key.Protocol, t.Ports, t.Addresses)
	}
	return w.Flush()
}
