package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/config"
	"github.com/bargainbliss/linkbot/internal/core/affiliate"
	"github.com/bargainbliss/linkbot/internal/core/recognize"
	"github.com/bargainbliss/linkbot/internal/observability"
)

var linkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Convert a single product link to an affiliate link",
	Long: `Recognize an AliExpress product link and print the affiliate
tracking link for it. Useful for smoke-testing gateway credentials
without running the bot.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Affiliate.AppKey == "" || cfg.Affiliate.Secret == "" {
			return fmt.Errorf("affiliate credentials not configured (set ALIEXPRESS_APP_KEY and ALIEXPRESS_APP_SECRET)")
		}

		ref, err := recognize.Extract(args[0])
		if err != nil {
			return fmt.Errorf("not an AliExpress product link: %w", err)
		}

		observability.CLILogger.Debug("Link recognized",
			zap.String("product_id", ref.ID),
			zap.Bool("shortened", ref.Shortened))

		builder := &affiliate.Builder{
			AppKey:      cfg.Affiliate.AppKey,
			Secret:      cfg.Affiliate.Secret,
			TrackingID:  cfg.Affiliate.TrackingID,
			BaseURL:     cfg.Affiliate.BaseURL,
			Timeout:     cfg.Affiliate.Timeout,
			MaxAttempts: cfg.Affiliate.MaxAttempts,
			Backoff:     cfg.Affiliate.Backoff,
		}

		result := builder.Build(cmd.Context(), ref)
		if !result.OK() {
			return fmt.Errorf("gateway %s failure after %d attempt(s): %s",
				result.Failure.Kind, result.Attempts, result.Failure.Detail)
		}

		fmt.Println(result.TrackingURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
