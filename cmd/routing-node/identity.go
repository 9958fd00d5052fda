package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/krishnaIndia/routing/internal/messages"
	"github.com/krishnaIndia/routing/internal/name"
	"github.com/krishnaIndia/routing/internal/storage/pmidbolt"
	"github.com/krishnaIndia/routing/internal/types"
)

func (c *cli) newKeygenCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new Pmid and store it as this node's identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.Self(); err == nil && !force {
				return fmt.Errorf("an identity already lives in %s (use --force to replace it)", c.conf.DataDir)
			} else if err != nil && !errors.Is(err, pmidbolt.ErrNoIdentity) && !errors.Is(err, pmidbolt.ErrCorrupt) {
				return err
			}

			p, err := types.NewPmid()
			if err != nil {
				return err
			}
			if err := store.PutSelf(p); err != nil {
				return err
			}
			c.conf.Logger("keygen").WithField("name", p.Name.String()).Info("identity created")
			fmt.Fprintln(cmd.OutOrStdout(), p.Name.Hex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing identity")
	return cmd
}

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print this node's public identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			self, err := store.Self()
			if err != nil {
				return err
			}
			peers, err := store.PeerNames()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:\t\t%s\n", self.Name.Hex())
			fmt.Fprintf(out, "PublicKey:\t%s\n", hex.EncodeToString(self.PublicKey))
			fmt.Fprintf(out, "PublicSignKey:\t%s\n", hex.EncodeToString(self.PublicSignKey))
			fmt.Fprintf(out, "Client name:\t%v\n", self.Name == name.FromPublicSignKey(self.PublicSignKey))
			fmt.Fprintf(out, "Known peers:\t%d\n", len(peers))
			return nil
		},
	}
}

func (c *cli) newRelocateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "relocate [anchor-name-hex...]",
		Short: "Move this node's name next to its close group",
		Long: "Derives the network name from the current name and the two closest " +
			"anchors. Anchors come from the arguments, or from known peers when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			self, err := store.Self()
			if err != nil {
				return err
			}

			var refs []name.NameType
			for _, a := range args {
				n, err := name.ParseHex(a)
				if err != nil {
					return fmt.Errorf("anchor %q: %w", a, err)
				}
				refs = append(refs, n)
			}
			if len(refs) == 0 {
				if refs, err = store.PeerNames(); err != nil {
					return err
				}
				refs = name.Closest(refs, self.Name, c.conf.GroupSize)
			}

			old := self.Name
			if err := self.Relocate(refs); err != nil {
				return err
			}
			c.conf.Logger("relocate").WithFields(logrus.Fields{
				"from":    old.String(),
				"to":      self.Name.String(),
				"anchors": len(refs),
			}).Info("relocated")

			if !dryRun {
				if err := store.PutSelf(self); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), self.Name.Hex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the new name without storing it")
	return cmd
}

func (c *cli) newAnnounceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce",
		Short: "Print the encoded PutPublicPmid announcement for this node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			self, err := store.Self()
			if err != nil {
				return err
			}
			b, err := messages.Encode(messages.PutPublicPmid{PublicPmid: self.Public()})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(b))
			return nil
		},
	}
}

func (c *cli) newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode and validate a message from its hex wire form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := hex.DecodeString(args[0])
			if err != nil {
				return err
			}
			m, err := messages.Decode(b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch m := m.(type) {
			case messages.PutPublicPmid:
				fmt.Fprintf(out, "PutPublicPmid (tag %d)\n", m.Tag())
				fmt.Fprintf(out, "Name:\t\t%s\n", m.PublicPmid.Name.Hex())
				fmt.Fprintf(out, "PublicKey:\t%s\n", hex.EncodeToString(m.PublicPmid.PublicKey))
				fmt.Fprintf(out, "PublicSignKey:\t%s\n", hex.EncodeToString(m.PublicPmid.PublicSignKey))
				valid := "ok"
				if err := m.PublicPmid.Validate(); err != nil {
					valid = err.Error()
				}
				fmt.Fprintf(out, "Validation:\t%s\n", valid)
			default:
				fmt.Fprintf(out, "tag %d\n", m.Tag())
			}
			return nil
		},
	}
}
