package cmd

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/micrictor/fwrules/internal/server"
	"github.com/micrictor/fwrules/internal/wire"
)

// clientCmd represents the client command
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "fwrules query client",
	Long:  `Sends one accept/deny query, optionally carrying a JWT, to a running fwrules server`,
	RunE:  clientMain,
}

func init() {
	rootCmd.AddCommand(clientCmd)

	clientCmd.Flags().StringP("server", "s", "127.0.0.1", "fwrules server to connect to")
	clientCmd.Flags().StringP("port", "p", "1337", "UDP port the fwrules server is listening on.")
	clientCmd.Flags().StringP("token", "t", "", "JWT token to pass")
	clientCmd.Flags().StringP("direction", "d", "", "Traffic direction, e.g. inbound or outbound")
	clientCmd.Flags().String("protocol", "", "Traffic protocol, e.g. tcp or udp")
	clientCmd.Flags().Int("dport", 0, "Port number to query")
	clientCmd.Flags().StringP("address", "a", "", "IPv4 address to query")
	clientCmd.Flags().Duration("timeout", 2*time.Second, "How long to wait for a reply")
	_ = clientCmd.MarkFlagRequired("direction")
	_ = clientCmd.MarkFlagRequired("protocol")
	_ = clientCmd.MarkFlagRequired("dport")
	_ = clientCmd.MarkFlagRequired("address")
}

func clientMain(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("server")
	serverPort, _ := cmd.Flags().GetString("port")
	inputToken, _ := cmd.Flags().GetString("token")
	direction, _ := cmd.Flags().GetString("direction")
	protocol, _ := cmd.Flags().GetString("protocol")
	dport, _ := cmd.Flags().GetInt("dport")
	address, _ := cmd.Flags().GetString("address")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	reply, err := server.Query(cmd.Context(), net.JoinHostPort(host, serverPort), wire.Request{
		Token:     inputToken,
		Direction: direction,
		Protocol:  protocol,
		Port:      dport,
		Address:   address,
	}, timeout)
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("request %s: %s", reply.RequestID, reply.Error)
	}

	verdict := "deny"
	if reply.Accept {
		verdict = "accept"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (request %s)\n", verdict, reply.RequestID)
	return nil
}
