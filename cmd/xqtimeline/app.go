package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"xqtimeline/pkg/accounts"
	"xqtimeline/pkg/browser"
	"xqtimeline/pkg/config"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
	"xqtimeline/pkg/pacer"
	"xqtimeline/pkg/runner"
	"xqtimeline/pkg/timeline"
	"xqtimeline/pkg/xueqiu"
)

// flagKeys are the command line flags MergeCommandLineFlags understands
var flagKeys = map[string]bool{
	"accounts":       true,
	"data-dir":       true,
	"proxy":          true,
	"merge-policy":   true,
	"min-delay":      true,
	"max-delay":      true,
	"fail-fast":      true,
	"screenshot-dir": true,
	"headless":       true,
	"cron":           true,
	"run-on-start":   true,
	"log-level":      true,
}

// collectFlags returns the explicitly set flags of cmd keyed by name
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if !flagKeys[f.Name] {
			return
		}
		switch f.Value.Type() {
		case "duration":
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				flags[f.Name] = d
			}
		case "bool":
			flags[f.Name] = f.Value.String() == "true"
		default:
			flags[f.Name] = f.Value.String()
		}
	})

	if verbose {
		flags["log-level"] = "debug"
	}
	if quiet {
		flags["log-level"] = "error"
	}
	return flags
}

// setup loads the configuration and installs the global logger
func setup(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return nil, nil, errs.Wrap(err, errs.ErrorTypeConfig, "load configuration")
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, errs.Wrap(err, errs.ErrorTypeConfig, "initialize logger")
	}
	log := logger.GetLogger().WithField("command", cmd.Name())
	log.WithField("version", version).Debug("xqtimeline starting")
	return cfg, log, nil
}

func browserOptions(cfg *config.Config, log logger.Logger) browser.Options {
	return browser.Options{
		ProxyURL:          cfg.Browser.ProxyURL,
		HomeURL:           cfg.Browser.HomeURL,
		ExecPath:          cfg.Browser.ExecPath,
		UserAgent:         cfg.Browser.UserAgent,
		Headless:          cfg.Browser.Headless,
		BlockImages:       cfg.Browser.BlockImages,
		ViewportWidth:     int64(cfg.Browser.ViewportWidth),
		ViewportHeight:    int64(cfg.Browser.ViewportHeight),
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Logger:            log,
	}
}

// runBatch opens one browser session and processes the account list with it.
// The session is closed on every return path.
func runBatch(ctx context.Context, cfg *config.Config, log logger.Logger) (*runner.Report, error) {
	list, err := accounts.Load(cfg.Accounts.File)
	if err != nil {
		return nil, err
	}

	policy, err := timeline.ParsePolicy(cfg.Storage.MergePolicy)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeConfig, "merge policy")
	}
	store, err := timeline.NewStore(cfg.Storage.DataDir,
		timeline.WithPolicy(policy),
		timeline.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	session, err := browser.Open(ctx, browserOptions(cfg, log))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}()

	client := xueqiu.NewClient(session, log)
	client.SetBaseURL(cfg.API.BaseURL)

	r := runner.New(client, store, runner.Options{
		FailFast:  cfg.Run.FailFast,
		Pacer:     pacer.New(cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay),
		OnFailure: screenshotHook(session, cfg.Run.ScreenshotDir, log),
		Logger:    log,
	})
	return r.Run(ctx, list)
}

// screenshotHook saves the page the browser was on when an account failed.
// It returns nil when no screenshot directory is configured.
func screenshotHook(session *browser.Session, dir string, log logger.Logger) runner.FailureHook {
	if dir == "" {
		return nil
	}
	return func(ctx context.Context, account accounts.Account, _ error) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithError(err).Warn("Cannot create screenshot directory")
			return
		}
		path := filepath.Join(dir, screenshotName(account.ID, time.Now()))
		if err := session.Screenshot(context.WithoutCancel(ctx), path); err != nil {
			log.WithError(err).Warn("Screenshot failed")
			return
		}
		log.InfoWithFields("Saved failure screenshot", map[string]interface{}{
			"account_id": account.ID,
			"path":       path,
		})
	}
}

func screenshotName(accountID int64, at time.Time) string {
	return fmt.Sprintf("error_%d_%s.png", accountID, at.Format("20060102T150405"))
}
