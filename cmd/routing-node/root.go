package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/krishnaIndia/routing/internal/config"
	"github.com/krishnaIndia/routing/internal/paths"
	"github.com/krishnaIndia/routing/internal/storage/pmidbolt"
)

// cli carries the state shared by every subcommand.
type cli struct {
	conf  *config.Config
	viper *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{conf: config.NewDefaultConfig(), viper: viper.New()}

	root := &cobra.Command{
		Use:               "routing-node",
		Short:             "Node identity, relocation and announcement tool",
		SilenceUsage:      true,
		TraverseChildren:  true,
		PersistentPreRunE: c.loadConfig,
	}

	pf := root.PersistentFlags()
	pf.String("datadir", c.conf.DataDir, "Directory for the identity store and config file")
	pf.String("log", c.conf.LogLevel, "debug, info, warn, error, fatal, panic")
	pf.StringP("listen", "l", c.conf.BindAddr, "Listen IP:Port for serve")
	pf.Int("group-size", c.conf.GroupSize, "Close group size used for relocation")
	pf.Int("bucket-size", c.conf.BucketSize, "Routing table bucket size")
	pf.DurationP("timeout", "t", c.conf.Timeout, "Dial and handshake timeout")

	root.AddCommand(
		c.newKeygenCmd(),
		c.newShowCmd(),
		c.newRelocateCmd(),
		c.newAnnounceCmd(),
		c.newDecodeCmd(),
		c.newServeCmd(),
		c.newDialCmd(),
	)
	return root
}

// loadConfig binds flags, then overlays [datadir]/routing.{toml,json,yaml}.
func (c *cli) loadConfig(cmd *cobra.Command, args []string) error {
	if err := c.viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := c.viper.Unmarshal(c.conf); err != nil {
		return err
	}

	c.viper.SetConfigName("routing")
	c.viper.AddConfigPath(c.conf.DataDir)

	logger := c.conf.Logger("config")
	if err := c.viper.ReadInConfig(); err == nil {
		logger.Debugf("Using config file: %s", c.viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		logger.Debugf("No config file found in: %s", c.conf.DataDir)
	} else {
		return err
	}

	if err := c.viper.Unmarshal(c.conf); err != nil {
		return err
	}
	if c.conf.GroupSize < 1 {
		return fmt.Errorf("group-size must be positive, got %d", c.conf.GroupSize)
	}

	c.conf.Logger("config").WithFields(logrus.Fields{
		"datadir":     c.conf.DataDir,
		"log":         c.conf.LogLevel,
		"listen":      c.conf.BindAddr,
		"group-size":  c.conf.GroupSize,
		"bucket-size": c.conf.BucketSize,
		"timeout":     c.conf.Timeout,
	}).Debug("RUN")
	return nil
}

func (c *cli) openStore() (*pmidbolt.Store, error) {
	if _, err := paths.EnsureDir(c.conf.DataDir); err != nil {
		return nil, err
	}
	return pmidbolt.Open(c.conf.StorePath())
}
