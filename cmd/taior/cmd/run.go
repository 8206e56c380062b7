package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taior/taior"
	"github.com/taior/taior/config"
	"github.com/taior/taior/log"
	"github.com/taior/taior/substrate/loopback"
)

// demoCmd wires up a small fully-connected mesh of in-process nodes over
// the loopback substrate and sends one message through it, to exercise
// the whole stack (circuit build, onion wrap, forward, deliver) without
// any external network dependency.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "send a message across an in-process loopback mesh",
	RunE: func(cmd *cobra.Command, args []string) error {
		return demo()
	},
}

var (
	demoNodes   int
	demoMessage string
	demoMode    string
)

func init() {
	demoCmd.Flags().IntVarP(&demoNodes, "nodes", "n", 4, "number of mesh nodes")
	demoCmd.Flags().StringVarP(&demoMessage, "message", "m", "hello room", "payload to send")
	demoCmd.Flags().StringVar(&demoMode, "mode", string(config.ModeAdaptive), "circuit mode: fast, adaptive, or mix")

	rootCmd.AddCommand(demoCmd)
}

func demo() error {
	logger := log.NewDebug()
	cfg := config.Default()

	hub := loopback.NewHub()
	nodes := make([]*loopback.Node, demoNodes)
	cores := make([]*taior.Core, demoNodes)

	for i := range nodes {
		nodes[i] = hub.Node(fmt.Sprintf("tmp-%d", i))
	}
	for i := range cores {
		c, err := taior.New(cfg, nodes[i], logger)
		if err != nil {
			return err
		}
		cores[i] = c
		hub.Alias(nodes[i], c.Address())
		fmt.Printf("node %d address: %s\n", i, c.Address())
	}
	for i := range cores {
		for j := i + 1; j < len(cores); j++ {
			hub.Connect(nodes[i], nodes[j])
		}
	}

	for _, c := range cores[1:] {
		c.OnDelivery(func(payload []byte, fromTag string) {
			fmt.Printf("delivered %q (from %s)\n", payload, fromTag)
		})
	}

	// Give handshakes a head start before the synchronous build-and-wait
	// inside Send.
	time.Sleep(100 * time.Millisecond)

	mode := config.Mode(demoMode)
	if _, err := cores[0].Send([]byte(demoMessage), mode); err != nil {
		return err
	}

	time.Sleep(200 * time.Millisecond)

	for _, c := range cores {
		c.Disconnect()
	}
	return nil
}
