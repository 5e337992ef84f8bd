package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// checkCmd answers one query against the configured rules
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a packet is accepted",
	Example: `  fwrules check --rules rules.csv -d inbound -p tcp --port 80 -a 192.168.1.2
  fwrules check -d outbound -p udp --port 24 -a 52.12.48.92`,
	RunE: checkMain,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("direction", "d", "", "Traffic direction, e.g. inbound or outbound")
	checkCmd.Flags().StringP("protocol", "p", "", "Traffic protocol, e.g. tcp or udp")
	checkCmd.Flags().Int("port", 0, "Port number")
	checkCmd.Flags().StringP("address", "a", "", "IPv4 address")
	_ = checkCmd.MarkFlagRequired("direction")
	_ = checkCmd.MarkFlagRequired("protocol")
	_ = checkCmd.MarkFlagRequired("port")
	_ = checkCmd.MarkFlagRequired("address")
}

func checkMain(cmd *cobra.Command, args []string) error {
	direction, _ := cmd.Flags().GetString("direction")
	protocol, _ := cmd.Flags().GetString("protocol")
	port, _ := cmd.Flags().GetInt("port")
	address, _ := cmd.Flags().GetString("address")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fw, err := a.firewall(cmd.Context())
	if err != nil {
		return err
	}

	verdict := "deny"
	if fw.Accept(direction, protocol, port, address) {
		verdict = "accept"
	}
	fmt.Fprintln(cmd.OutOrStdout(), verdict)
	return nil
}
