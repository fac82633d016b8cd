package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pharmachain/internal/identity"
	"pharmachain/pkg/domain"
)

// newTokenCmd mints bearer tokens for local development and tests.
func newTokenCmd(c *cli) *cobra.Command {
	var (
		address string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a custody address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := domain.ParseAddress(address)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = c.cfg.Auth.TokenTTL
			}
			jwt := identity.NewJWTService(c.cfg.Auth.SigningKey, c.cfg.Auth.Issuer, c.cfg.Auth.Audience)
			token, err := jwt.Issue(addr, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "custody address the token authenticates (0x-prefixed hex)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}
