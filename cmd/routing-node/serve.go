package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/krishnaIndia/routing/internal/bootstrap"
	"github.com/krishnaIndia/routing/internal/netx"
	"github.com/krishnaIndia/routing/internal/p2p"
	"github.com/krishnaIndia/routing/internal/storage/pmidbolt"
)

func (c *cli) newNode(store *pmidbolt.Store, component string) (*p2p.Node, error) {
	self, err := store.Self()
	if err != nil {
		return nil, err
	}
	return p2p.NewNode(p2p.NodeConfig{
		Self:       self,
		Network:    netx.NewTCPNetwork(),
		BindAddr:   c.conf.BindAddr,
		Store:      store,
		BucketSize: c.conf.BucketSize,
		GroupSize:  c.conf.GroupSize,
		Timeout:    c.conf.Timeout,
		Logger:     c.conf.Logger(component),
	})
}

func (c *cli) newServeCmd() *cobra.Command {
	var bootstraps []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept joining nodes and learn their announced identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			node, err := c.newNode(store, "serve")
			if err != nil {
				return err
			}
			if err := node.Start(); err != nil {
				return err
			}
			defer node.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(bootstraps) > 0 {
				bcfg := bootstrap.DefaultConfig()
				bcfg.PerAddrTimeout = c.conf.Timeout
				joined := bootstrap.RunOnce(ctx, node, bcfg, c.conf.Logger("bootstrap"),
					bootstrap.ParseStatic("flags", bootstraps))
				c.conf.Logger("serve").WithField("joined", len(joined)).Info("bootstrap done")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Name:\t%s\nAddr:\t%s\n", node.Name().Hex(), node.ListenAddr())
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&bootstraps, "bootstrap", nil, "Addresses to dial on startup")
	return cmd
}

func (c *cli) newDialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dial <addr>...",
		Short: "Exchange identities with the given nodes and remember them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			node, err := c.newNode(store, "dial")
			if err != nil {
				return err
			}
			defer node.Stop()

			out := cmd.OutOrStdout()
			var failed int
			for _, a := range args {
				remote, err := node.ConnectTo(context.Background(), netx.Addr(a))
				if err != nil {
					c.conf.Logger("dial").WithError(err).WithField("addr", a).Error("dial failed")
					failed++
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", a, remote.Name.Hex())
			}
			if failed == len(args) {
				return fmt.Errorf("no node reachable")
			}
			return nil
		},
	}
}
