package cmd

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/micrictor/fwrules/internal/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the fwrules query server",
	Long:  `Answers accept/deny queries over UDP against the configured rule set`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverMain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.PersistentFlags().IPP("listenAddr", "a", nil, "The address to listen on, overrides service.host.")
	serverCmd.PersistentFlags().IntP("listenPort", "p", 0, "The UDP port to listen on, overrides service.port.")
	serverCmd.PersistentFlags().String("ipStack", "ipv4", "ipv4 or ipv6")
	serverCmd.PersistentFlags().Bool("watch", false, "Reload the rule file when it changes, overrides rules.watch.")
}

func serverMain(cmd *cobra.Command) error {
	listenAddr, _ := cmd.PersistentFlags().GetIP("listenAddr")
	listenPort, _ := cmd.PersistentFlags().GetInt("listenPort")
	ipStack, _ := cmd.PersistentFlags().GetString("ipStack")
	watch, _ := cmd.PersistentFlags().GetBool("watch")

	var udpNetwork string
	switch strings.ToLower(ipStack) {
	case "ipv4":
		udpNetwork = "udp4"
	case "ipv6":
		udpNetwork = "udp6"
	default:
		return fmt.Errorf("unsupported IP stack %s", ipStack)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log.WithField("component", "server")

	host := a.cfg.Service.Host
	if listenAddr != nil {
		host = listenAddr.String()
	}
	port := int(a.cfg.Service.Port)
	if listenPort != 0 {
		port = listenPort
	}
	watch = watch || a.cfg.Rules.Watch

	ctx := cmd.Context()
	fw, err := a.firewall(ctx)
	if err != nil {
		return err
	}

	srv, err := server.Listen(udpNetwork, net.JoinHostPort(host, fmt.Sprint(port)), fw, a.cfg.Keyfunc, log)
	if err != nil {
		return err
	}
	if a.cfg.Keyfunc == nil {
		log.Warn("query verification disabled, no verification.algo configured")
	} else if a.cfg.Service.Ttl > 0 {
		srv.EnableSessions(time.Duration(a.cfg.Service.Ttl) * time.Second)
	}

	var health *server.Health
	if a.cfg.Service.HealthPort != 0 {
		health, err = server.ListenHealth(net.JoinHostPort(host, fmt.Sprint(a.cfg.Service.HealthPort)), log)
		if err != nil {
			srv.Close()
			return err
		}
		health.SetServing(true)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	if health != nil {
		g.Go(func() error { return health.Serve(ctx) })
	}

	if watch {
		switch a.cfg.Rules.Source {
		case "file", "yaml":
			g.Go(func() error { return fw.Watch(ctx, a.cfg.Rules.Path) })
		default:
			log.WithField("source", a.source.String()).Warn("watch is only supported for rule files")
		}
	}

	err = g.Wait()
	stats := fw.Stats()
	log.WithField("total", stats.Total).
		WithField("accepted", stats.Accepted).
		WithField("denied", stats.Denied).
		Info("server stopped")
	return err
}
