package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"xqtimeline/pkg/browser"
	"xqtimeline/pkg/ui"
	"xqtimeline/pkg/xueqiu"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users by name to find account ids",
	Long: `Search Xueqiu users by name and list their ids, which go into the
account list. The search runs through the same browser session setup as
fetch, so the proxy settings apply.`,
	Example: `  xqtimeline search 价值投资
  xqtimeline search "value investor" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().String("proxy", "", "proxy url scheme://[user[:pass]@]host[:port], overrides HTTP_PROXY")
	searchCmd.Flags().Bool("headless", true, "run Chrome without a window")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the raw result as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.Open(ctx, browserOptions(cfg, log))
	if err != nil {
		return err
	}
	defer session.Close()

	client := xueqiu.NewClient(session, log)
	client.SetBaseURL(cfg.API.BaseURL)

	resp, err := client.SearchUser(ctx, query)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.List) == 0 {
		ui.PrintWarning("No users found", query)
		return nil
	}

	rows := make([][]string, 0, len(resp.List))
	for _, u := range resp.List {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.ScreenName,
			strconv.FormatInt(u.FollowersCount, 10),
			strconv.FormatInt(u.StatusCount, 10),
			truncate(u.Description, 30),
			xueqiu.ProfileURL(cfg.API.BaseURL, u.ID),
		})
	}
	ui.PrintBlock(ui.Table([]string{"ID", "Name", "Followers", "Posts", "Description", "Profile"}, rows))
	ui.PrintInfo("Results", strconv.Itoa(resp.Count))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
