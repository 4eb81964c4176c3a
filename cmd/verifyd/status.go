package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"verifyd/internal/config"
	"verifyd/internal/logging"
	"verifyd/internal/session"
)

func newStatusCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <verification-id>",
		Short: "Show the projected state of a verification session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			store, err := session.Open(cfg, logging.NewNop())
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			sess, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("verification session not found (it may have expired)")
			}

			encoded, err := json.MarshalIndent(sess.View(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}
