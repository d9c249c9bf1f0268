// -- cmd/post.go --
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
	"github.com/xkilldash9x/crosspost-cli/internal/imaging"
	"github.com/xkilldash9x/crosspost-cli/internal/observability"
	"github.com/xkilldash9x/crosspost-cli/internal/platforms"
	"github.com/xkilldash9x/crosspost-cli/internal/store"
	"github.com/xkilldash9x/crosspost-cli/pkg/browser"
	"github.com/xkilldash9x/crosspost-cli/pkg/webview"
)

// newPostCmd creates and configures the `post` command.
func newPostCmd() *cobra.Command {
	var (
		text       string
		imagePath  string
		accountIDs []string
	)

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post a message to the selected accounts",
		Long: `Posts text (and optionally an image) to the selected accounts.

API platforms post immediately in the background. Platforms without a usable
API open in a browser window with the composer pre-filled; press the
platform's own Post button there, and crosspost will confirm the submission.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("post text must not be empty (use --text)")
			}

			accounts, err := selectAccounts(accountIDs)
			if err != nil {
				return err
			}

			var results []schemas.PostResult
			accounts, results = checkImages(accounts, imagePath, results)

			dispatcher := platforms.NewDispatcher(logger, cfg)
			apiTargets, webAccounts, skipped := dispatcher.Split(accounts)
			results = append(results, skipped...)

			// API posts run in the background while the user works through
			// the browser windows.
			apiDone := make(chan []schemas.PostResult, 1)
			go func() {
				apiDone <- dispatcher.PostAll(ctx, apiTargets, text, imagePath)
			}()

			if len(webAccounts) > 0 {
				webResults, err := runWebviewPanel(ctx, logger, webAccounts, text, imagePath)
				if err != nil {
					return err
				}
				results = append(results, webResults...)
			}

			select {
			case apiResults := <-apiDone:
				results = append(results, apiResults...)
			case <-ctx.Done():
			}

			printResults(results)
			recordHistory(results)
			return nil
		},
	}

	postCmd.Flags().StringVarP(&text, "text", "t", "", "text of the post (required)")
	postCmd.Flags().StringVarP(&imagePath, "image", "i", "", "path to an image to attach")
	postCmd.Flags().StringSliceVarP(&accountIDs, "accounts", "a", nil, "account ids to post to (default: all configured)")
	_ = postCmd.MarkFlagRequired("text")
	return postCmd
}

// selectAccounts resolves the --accounts flag against the configuration.
// With no flag, every configured account participates.
func selectAccounts(ids []string) ([]schemas.Account, error) {
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured; add accounts to your config file first")
	}
	if len(ids) == 0 {
		return cfg.Accounts, nil
	}

	accounts := make([]schemas.Account, 0, len(ids))
	for _, id := range ids {
		acct, ok := cfg.AccountByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown account id %q", id)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// checkImages pre-validates the image against each account's platform
// constraints, converting failures into results so one bad pairing never
// blocks the remaining accounts.
func checkImages(accounts []schemas.Account, imagePath string, results []schemas.PostResult) ([]schemas.Account, []schemas.PostResult) {
	if imagePath == "" {
		return accounts, results
	}

	// The slice may alias cfg.Accounts, so filter into a fresh one.
	kept := make([]schemas.Account, 0, len(accounts))
	for _, acct := range accounts {
		specs, _ := schemas.SpecsFor(acct.Platform)
		if err := imaging.Validate(imagePath, specs); err != nil {
			code := schemas.ErrImgCorrupt
			if verr, ok := err.(*imaging.ValidationError); ok {
				code = verr.Code
			}
			results = append(results, schemas.NewErrorResult(
				specs.PlatformName, acct.AccountID, acct.ProfileName, code, err.Error()))
			continue
		}
		kept = append(kept, acct)
	}
	return kept, results
}

// runWebviewPanel opens one browser window per webview account, pre-fills
// each composer and waits until every account resolves or the user quits.
func runWebviewPanel(ctx context.Context, logger *zap.Logger, accounts []schemas.Account, text, imagePath string) ([]schemas.PostResult, error) {
	sessions := browser.NewStore(ctx, logger, cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = sessions.Shutdown(shutdownCtx)
	}()

	panel := webview.NewPanel(logger, cfg.Webview.NavigationTimeout)
	for _, acct := range accounts {
		profile, ok := webview.ProfileFor(acct.Platform)
		if !ok {
			return nil, fmt.Errorf("no composer profile for platform %q", acct.Platform)
		}
		sess, err := sessions.GetOrCreate(acct.AccountID)
		if err != nil {
			return nil, err
		}
		if err := panel.Add(webview.NewJob(acct, text, imagePath), sess.NewTab(), profile); err != nil {
			return nil, err
		}
	}

	fmt.Println("\nBrowser windows are opening. Press each platform's own Post button.")
	if imagePath != "" {
		fmt.Printf("Attach the image manually in each window: %s\n", imagePath)
	}
	fmt.Println(`Commands: "done <account-id>" if a post went through undetected, "quit" to give up waiting.`)

	panel.Start(ctx)
	waitOnPanel(ctx, panel)

	panel.Close(ctx)
	return panel.Results(), nil
}

// waitOnPanel renders per-account status while listening for the user's
// manual-confirm and quit commands.
func waitOnPanel(ctx context.Context, panel *webview.Panel) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(cfg.Webview.StatusInterval)
	defer ticker.Stop()
	var lastRender string

	for {
		select {
		case <-panel.AllResolved():
			fmt.Println(renderStatus(panel.Status()))
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rendered := renderStatus(panel.Status()); rendered != lastRender {
				fmt.Println(rendered)
				lastRender = rendered
			}
		case line := <-lines:
			switch {
			case line == "quit":
				return
			case strings.HasPrefix(line, "done"):
				id := strings.TrimSpace(strings.TrimPrefix(line, "done"))
				if id == "" {
					fmt.Println(`usage: done <account-id>`)
					continue
				}
				if !panel.MarkManuallyConfirmed(id) {
					fmt.Printf("no pending account %q\n", id)
				}
			}
		}
	}
}

func renderStatus(statuses []webview.AccountStatus) string {
	var b strings.Builder
	for _, st := range statuses {
		marker := "..."
		switch st.State {
		case webview.StateConfirmed, webview.StateManuallyConfirmed:
			marker = " ok"
		case webview.StateTimedOut, webview.StateLoadFailed:
			marker = "  x"
		}
		fmt.Fprintf(&b, "[%s] %-24s %s", marker, st.DisplayName, st.State)
		if st.Permalink != "" {
			fmt.Fprintf(&b, "  %s", st.Permalink)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// printResults writes the final per-account summary.
func printResults(results []schemas.PostResult) {
	fmt.Println("\nResults:")
	for _, res := range results {
		name := res.ProfileName
		if name == "" {
			name = res.AccountID
		}
		if res.Success {
			if res.PostURL != "" {
				fmt.Printf("  ok   %-24s %s  %s\n", name, res.Platform, res.PostURL)
			} else {
				fmt.Printf("  ok   %-24s %s  (link unavailable)\n", name, res.Platform)
			}
			continue
		}
		fmt.Printf("  FAIL %-24s %s  %s: %s\n", name, res.Platform, res.ErrorCode,
			schemas.FriendlyMessageFor(res.ErrorCode))
	}
}

// recordHistory appends results to the local history store, best-effort.
func recordHistory(results []schemas.PostResult) {
	if !cfg.History.Enabled {
		return
	}
	logger := observability.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := store.Open(ctx, cfg.History.Path, logger)
	if err != nil {
		logger.Warn("Post history unavailable", zap.Error(err))
		return
	}
	defer h.Close()
	h.RecordAll(ctx, results)
}
