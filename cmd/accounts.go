// -- cmd/accounts.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// newAccountsCmd lists the configured accounts and how each one posts.
func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Accounts) == 0 {
				fmt.Println("No accounts configured.")
				return nil
			}
			for _, acct := range cfg.Accounts {
				specs, _ := schemas.SpecsFor(acct.Platform)
				mode := "api"
				if specs.PostedViaBrowser {
					mode = "browser"
				}
				fmt.Printf("%-24s %-10s %-8s %s\n", acct.AccountID, acct.Platform, mode, acct.ProfileName)
			}
			return nil
		},
	}
}
