package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"verifyd/internal/config"
	"verifyd/internal/logging"
	"verifyd/internal/session"
)

func newSessionsCommand(configFlag *string) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List verification sessions",
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

			var statuses []session.Status
			if statusFilter != "" {
				status, ok := session.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				statuses = append(statuses, status)
			}

			sessions, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, sess := range sessions {
				detail := sess.Stage
				switch sess.Status {
				case session.StatusCompleted:
					if sess.Result != nil {
						detail = fmt.Sprintf("score %.2f", sess.Result.QualityScore)
					}
				case session.StatusFailed:
					detail = sess.ErrorMessage
				}
				rows = append(rows, []string{
					sess.ID,
					string(sess.Status),
					sess.Title,
					detail,
					sess.CreatedAt.Local().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "State", "Title", "Detail", "Created"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by session status")
	return cmd
}
