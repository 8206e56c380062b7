package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally"
	"github.com/uber-go/tally/multi"

	"github.com/taior/taior"
	"github.com/taior/taior/check"
	"github.com/taior/taior/config"
	"github.com/taior/taior/log"
	"github.com/taior/taior/substrate/loopback"
	"github.com/taior/taior/telemetry"
	"github.com/taior/taior/telemetry/expvar"
	"github.com/taior/taior/telemetry/logging"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a node and keep it alive, exposing telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var (
	serveLogfile       string
	serveTelemetryAddr string
	serveMeshSize      int
)

func init() {
	serveCmd.Flags().StringVarP(&serveLogfile, "logfile", "l", "taior.json", "log file")
	serveCmd.Flags().StringVarP(&serveTelemetryAddr, "telemetry", "t", "localhost:7142", "telemetry address")
	serveCmd.Flags().IntVarP(&serveMeshSize, "mesh", "m", 4, "number of loopback peers to keep the node connected to")

	rootCmd.AddCommand(serveCmd)
}

func logger(logfile string) (log.Logger, error) {
	base := log15.New()
	fh, err := log15.FileHandler(logfile, log15.JsonFormat())
	if err != nil {
		return nil, err
	}
	base.SetHandler(log15.MultiHandler(
		log15.LvlFilterHandler(log15.LvlInfo,
			log15.StreamHandler(os.Stdout, log15.TerminalFormat()),
		),
		fh,
	))
	return log.NewLog15(base), nil
}

func metrics(l log.Logger) (tally.Scope, io.Closer) {
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix: "taior",
		Tags:   map[string]string{},
		CachedReporter: multi.NewMultiCachedReporter(
			expvar.NewReporter(),
			logging.NewReporter(l),
		),
	}, 1*time.Second)
}

// serve starts a node backed by a small loopback mesh of peers, since the
// spec's overlay is transport-agnostic (§5): any Substrate that satisfies
// taior.Substrate will do, and loopback is the reference implementation
// this repo ships.
func serve() error {
	l, err := logger(serveLogfile)
	if err != nil {
		return err
	}

	scope, closer := metrics(l)
	defer check.Close(l, closer)

	cfg := config.Default()
	hub := loopback.NewHub()

	self := hub.Node("tmp-self")
	c, err := taior.NewWithScope(cfg, self, l, scope)
	if err != nil {
		return err
	}
	hub.Alias(self, c.Address())
	l.Info(fmt.Sprintf("node address: %s", c.Address()))

	peers := make([]*loopback.Node, 0, serveMeshSize)
	for i := 0; i < serveMeshSize; i++ {
		peer := hub.Node(fmt.Sprintf("mesh-peer-%d", i))
		peerCore, err := taior.New(cfg, peer, log.ForComponent(l, "peer"))
		if err != nil {
			return err
		}
		hub.Alias(peer, peerCore.Address())
		hub.Connect(self, peer)
		peers = append(peers, peer)
	}

	c.OnDelivery(func(payload []byte, fromTag string) {
		l.Info(fmt.Sprintf("delivered %d bytes from %s", len(payload), fromTag))
	})

	// Start telemetry server.
	go telemetry.Serve(serveTelemetryAddr, l)

	// Report runtime metrics.
	go telemetry.ReportRuntime(scope, 10*time.Second)

	select {}
}
