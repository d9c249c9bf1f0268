// -- cmd/history.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/crosspost-cli/internal/observability"
	"github.com/xkilldash9x/crosspost-cli/internal/store"
)

// newHistoryCmd shows recent post results from the local history store.
func newHistoryCmd() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent post results",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := store.Open(cmd.Context(), cfg.History.Path, observability.GetLogger())
			if err != nil {
				return err
			}
			defer h.Close()

			results, err := h.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No post history yet.")
				return nil
			}
			for _, res := range results {
				status := "FAIL " + res.ErrorCode
				if res.Success {
					status = "ok"
					if res.PostURL != "" {
						status += " " + res.PostURL
					}
				}
				fmt.Printf("%s  %-24s %-10s %s\n",
					res.Timestamp.Format("2006-01-02 15:04"), res.AccountID, res.Platform, status)
			}
			return nil
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show")
	return historyCmd
}
