package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/donorcrm/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		user   string
		admin  bool
		ttl    time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return withCode(exitUsage, errors.New("--secret or AUTH_JWT_SECRET is required"))
			}
			tok, err := auth.NewSigner(secret, ttl).Sign(user, admin)
			if err != nil {
				return withCode(exitUsage, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "for", "", "User id the token names (required)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("AUTH_JWT_SECRET"), "Signing secret (default $AUTH_JWT_SECRET)")
	_ = cmd.MarkFlagRequired("for")

	return cmd
}

func newMigrateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(cmd.Context()); err != nil {
				return withCode(exitDB, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newResetCmd(g *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete ALL data and restart id sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return withCode(exitUsage, errors.New("reset deletes every record; pass --yes to confirm"))
			}
			st, err := openStore(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Truncate(cmd.Context()); err != nil {
				return withCode(exitDB, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all data deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
