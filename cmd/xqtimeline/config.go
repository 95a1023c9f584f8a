package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"xqtimeline/pkg/accounts"
	"xqtimeline/pkg/browser"
	"xqtimeline/pkg/config"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xqtimeline configuration files.

Configuration is layered, highest priority first:
  - Command line flags
  - Environment variables (XQTL_*, HTTP_PROXY)
  - .env and ~/.xqtimeline.env
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with every option and its default.

The file is written to .xqtimeline.yaml unless --config names another path.
An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after all sources are applied. The proxy
password is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and the account list",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax and value ranges
  - The proxy url and cron expression
  - That the account list parses and every account has an id and md5
  - That the data directory can be created`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# xqtimeline configuration
#
# Every option can also be set with an environment variable, shown next to it.

browser:
  # Upstream proxy, scheme://[user[:pass]@]host[:port]        (HTTP_PROXY)
  proxy_url: ""
  # Page visited once after launch to pick up cookies         (XQTL_HOME_URL)
  home_url: "https://xueqiu.com/"
  # Chrome binary, empty to let chromedp find one             (XQTL_CHROME_PATH)
  exec_path: ""
  # Override the browser user agent                           (XQTL_USER_AGENT)
  user_agent: ""
  headless: true                                            # (XQTL_HEADLESS)
  # Abort image requests                                      (XQTL_BLOCK_IMAGES)
  block_images: true
  viewport_width: 1080
  viewport_height: 1024
  # Extra bound per navigation, 0 for none                    (XQTL_NAVIGATION_TIMEOUT)
  navigation_timeout: 0s

api:
  base_url: "https://xueqiu.com"                            # (XQTL_API_BASE_URL)

accounts:
  # JSON array of {"id", "timestamp", "md5", "name"?}         (XQTL_ACCOUNTS_FILE)
  file: "./accounts.json"

storage:
  # One timeline_<id>.json per account                        (XQTL_DATA_DIR)
  data_dir: "./data"
  # Copy kept when a fetched id is already stored:
  # incoming (fetched wins) or existing (stored wins)         (XQTL_MERGE_POLICY)
  merge_policy: "incoming"

pacing:
  # Random pause before each account                          (XQTL_MIN_DELAY, XQTL_MAX_DELAY)
  min_delay: 3s
  max_delay: 10s

run:
  # Stop at the first failing account                         (XQTL_FAIL_FAST)
  fail_fast: true
  # Save a screenshot when an account fails, empty to disable (XQTL_SCREENSHOT_DIR)
  screenshot_dir: ""

schedule:
  # Used by 'xqtimeline watch'                                (XQTL_CRON)
  cron: "0 */6 * * *"
  run_on_start: false                                       # (XQTL_RUN_ON_START)

logging:
  # debug, info, warn, error                                  (XQTL_LOG_LEVEL)
  level: "info"
  # console or json                                           (XQTL_LOG_FORMAT)
  format: "console"
  # Log to a file instead of stderr                           (XQTL_LOG_FILE)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".xqtimeline.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return errs.WrapPath(fmt.Errorf("file already exists, remove it first"), errs.ErrorTypeConfig, "config init", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.WrapPath(err, errs.ErrorTypeConfig, "config init", dir)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return errs.WrapPath(err, errs.ErrorTypeConfig, "config init", configPath)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.PrintBlock("\nNext steps:")
	ui.PrintBlock("1. Create the account list (default ./accounts.json)")
	ui.PrintBlock("2. Run 'xqtimeline config validate' to check everything")
	ui.PrintBlock("3. Run 'xqtimeline fetch'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeConfig, "load configuration")
	}

	data, err := yaml.Marshal(maskSecrets(*cfg))
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeConfig, "format configuration")
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// maskSecrets returns a copy safe to print
func maskSecrets(cfg config.Config) config.Config {
	if cfg.Browser.ProxyURL == "" {
		return cfg
	}
	if p, err := browser.ParseProxy(cfg.Browser.ProxyURL); err == nil {
		cfg.Browser.ProxyURL = p.String()
	} else {
		cfg.Browser.ProxyURL = "***"
	}
	return cfg
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeConfig, "validate configuration")
	}

	var problems []error
	list, err := accounts.Load(cfg.Accounts.File)
	if err != nil {
		problems = append(problems, err)
	} else if len(list) == 0 {
		ui.PrintWarning("Account list is empty", cfg.Accounts.File)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		problems = append(problems, errs.WrapPath(err, errs.ErrorTypeStorage, "create data directory", cfg.Storage.DataDir))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, errs.WrapPath(err, errs.ErrorTypeConfig, "create log directory", cfg.Logging.File))
		}
	}

	if len(problems) > 0 {
		return errs.Join(problems...)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Accounts", fmt.Sprintf("%d in %s", len(list), cfg.Accounts.File))
	ui.PrintInfo("Data directory", cfg.Storage.DataDir)
	ui.PrintInfo("Merge policy", cfg.Storage.MergePolicy)
	ui.PrintInfo("Delay", fmt.Sprintf("%s to %s", cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay))
	ui.PrintInfo("Fail fast", fmt.Sprintf("%t", cfg.Run.FailFast))
	ui.PrintInfo("Schedule", cfg.Schedule.Cron)
	return nil
}
