package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/config"
	"github.com/bargainbliss/linkbot/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display comprehensive environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()

		observability.CLILogger.Info("=== Linkbot Environment Information ===")
		observability.CLILogger.Info("")

		// Application Info
		observability.CLILogger.Info("Application:")
		observability.CLILogger.Info("  Name:       " + appName)
		observability.CLILogger.Info("  Version:    " + versionInfo.Version)
		observability.CLILogger.Info("  Commit:     " + versionInfo.Commit)
		observability.CLILogger.Info("  Built:      " + versionInfo.BuildDate)
		observability.CLILogger.Info("")

		// SSOT Info
		observability.CLILogger.Info("SSOT:")
		observability.CLILogger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		observability.CLILogger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		observability.CLILogger.Info("")

		// Runtime Info
		observability.CLILogger.Info("Runtime:")
		observability.CLILogger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		observability.CLILogger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		observability.CLILogger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		observability.CLILogger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		observability.CLILogger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return
		}

		// Configuration
		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		observability.CLILogger.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		observability.CLILogger.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		observability.CLILogger.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		observability.CLILogger.Info("  DB Driver:      "+cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			observability.CLILogger.Info("  DB URL:         "+cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			observability.CLILogger.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		observability.CLILogger.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		observability.CLILogger.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		observability.CLILogger.Info("")

		// Bot Configuration (credentials reported by presence only)
		observability.CLILogger.Info("Bot:")
		observability.CLILogger.Info("  Telegram Token:   " + presenceStatus(cfg.Telegram.Token))
		observability.CLILogger.Info("  Poll Timeout:     " + cfg.Telegram.PollTimeout.String())
		observability.CLILogger.Info(fmt.Sprintf("  Paused:           %t", cfg.Telegram.Paused))
		observability.CLILogger.Info("  Affiliate Key:    " + presenceStatus(cfg.Affiliate.AppKey))
		observability.CLILogger.Info("  Affiliate Secret: " + presenceStatus(cfg.Affiliate.Secret))
		observability.CLILogger.Info("  Tracking ID:      " + cfg.Affiliate.TrackingID)
		observability.CLILogger.Info(fmt.Sprintf("  Quota:            %d per %s", cfg.Quota.Limit, cfg.Quota.Window))
		observability.CLILogger.Info("")

		// Keep-Alive Configuration
		observability.CLILogger.Info("Keep-Alive:")
		observability.CLILogger.Info(fmt.Sprintf("  Enabled:    %t", cfg.KeepAlive.Enabled), zap.Bool("keepalive_enabled", cfg.KeepAlive.Enabled))
		if cfg.KeepAlive.Enabled {
			observability.CLILogger.Info("  Primary:    " + valueOrUnset(cfg.KeepAlive.PrimaryURL))
			if len(cfg.KeepAlive.FallbackURLs) > 0 {
				observability.CLILogger.Info(fmt.Sprintf("  Fallbacks:  %v", cfg.KeepAlive.FallbackURLs))
			}
			observability.CLILogger.Info("  Interval:   " + cfg.KeepAlive.Interval.String())
			observability.CLILogger.Info("  Timeout:    " + cfg.KeepAlive.Timeout.String())
		}
		observability.CLILogger.Info("")

		observability.CLILogger.Info("=== End Environment Information ===")
	},
}

func presenceStatus(value string) string {
	if strings.TrimSpace(value) != "" {
		return "(set)"
	}
	return "(not set)"
}

func valueOrUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(unset)"
	}
	return value
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
