package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/core/messages"
	"github.com/bargainbliss/linkbot/internal/observability"
	"github.com/bargainbliss/linkbot/internal/output"
)

var (
	templatesListOutput string
	templatesSetFile    string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage reply templates",
	Long: `Inspect and override the bot's reply templates.

Overrides are stored in the local database and survive restarts. The
running bot picks them up on SIGHUP without a restart.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective reply templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(templatesListOutput)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		catalog := messages.New(db)
		if err := catalog.Reload(cmd.Context()); err != nil {
			return err
		}

		rendered, err := output.FormatTemplates(format, catalog.Entries())
		if err != nil {
			return err
		}

		fmt.Println(rendered)
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the effective template for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		catalog := messages.New(db)
		if err := catalog.Reload(cmd.Context()); err != nil {
			return err
		}

		template, ok := catalog.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown template key: %s", args[0])
		}

		fmt.Println(template)
		return nil
	},
}

var templatesSetCmd = &cobra.Command{
	Use:   "set <key> [template]",
	Short: "Store a template override",
	Long: `Store a template override for a key. The template text comes from
the second argument, or from a file via --file. Placeholders such as
{affiliate_url} and {retry_after} are substituted when the reply is
rendered.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(args[0])
		if key == "" {
			return fmt.Errorf("template key must not be empty")
		}

		var template string
		switch {
		case templatesSetFile != "":
			if len(args) > 1 {
				return fmt.Errorf("provide the template as an argument or via --file, not both")
			}
			data, err := os.ReadFile(templatesSetFile)
			if err != nil {
				return fmt.Errorf("read template file: %w", err)
			}
			template = string(data)
		case len(args) > 1:
			template = args[1]
		default:
			return fmt.Errorf("missing template text (pass it as an argument or via --file)")
		}

		if strings.TrimSpace(template) == "" {
			return fmt.Errorf("template text must not be empty")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		catalog := messages.New(db)
		if err := catalog.Reload(cmd.Context()); err != nil {
			return err
		}
		if err := catalog.Set(cmd.Context(), key, template); err != nil {
			return err
		}

		observability.CLILogger.Info("Template override stored",
			zap.String("key", key),
			zap.Int("length", len(template)))
		return nil
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a template override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := db.DeleteTemplate(cmd.Context(), args[0]); err != nil {
			return err
		}

		observability.CLILogger.Info("Template override removed", zap.String("key", args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesSetCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)

	templatesListCmd.Flags().StringVar(&templatesListOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	templatesSetCmd.Flags().StringVar(&templatesSetFile, "file", "", "Read the template text from a file")
}
