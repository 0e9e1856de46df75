package main

import (
	"fmt"
	"os"

	"sheets_join/internal/app"
	"sheets_join/internal/inspect"
	"sheets_join/internal/sheets"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &options{}
	var dryRun bool

	root := &cobra.Command{
		Use:   "sheets-join",
		Short: "Left-join page logs with course titles and publish the result",
		Long: `sheets-join reads course titles from the primary spreadsheet and page
logs from the secondary spreadsheet, joins them on the course id and
rewrites columns A-F of the target sheet. Without a subcommand it runs
the join.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJoin(cmd, opts, dryRun)
		},
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (environment variables take precedence)")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "table backend: sheets or xlsx (overrides BACKEND)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "read and join but do not write the target sheet")

	root.AddCommand(newRunCmd(opts), newInspectCmd(opts), newCredentialsCmd(opts))
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the join once and publish the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJoin(cmd, opts, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and join but do not write the target sheet")
	return cmd
}

func runJoin(cmd *cobra.Command, opts *options, dryRun bool) error {
	cfg, err := opts.validated()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := app.InitializeStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize table store: %w", err)
	}
	notifier := app.InitializeNotificationClient(cfg)

	_, err = app.RunSync(ctx, cfg, store, notifier, dryRun)
	return err
}

func newInspectCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the sub-tables and header rows of the configured tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.validated()
			if err != nil {
				return err
			}
			if output != "text" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want text or yaml)", output)
			}
			store, err := app.InitializeStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize table store: %w", err)
			}

			report := inspect.Run(cmd.Context(), store,
				inspect.Target{Label: "primary", TableID: cfg.PrimaryTableID, Expected: cfg.ExpectedPrimaryColumns()},
				inspect.Target{Label: "secondary", TableID: cfg.SecondaryTableID, Expected: cfg.ExpectedSecondaryColumns()},
			)
			if output == "yaml" {
				data, err := report.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	return cmd
}

func newCredentialsCmd(opts *options) *cobra.Command {
	var file, out string
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Print a service account key as one line for GOOGLE_CREDENTIALS_JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = opts.cfg.GoogleCredentialsFile
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read credentials file: %w", err)
			}
			compact, err := sheets.CompactCredentials(data, "file:"+file)
			if err != nil {
				return err
			}

			if out != "" {
				if err := os.WriteFile(out, append(compact, '\n'), 0o600); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				log.Info().Str("path", out).Msg("Wrote compact credentials")
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(compact))
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "service account key file (default GOOGLE_CREDENTIALS_FILE)")
	cmd.Flags().StringVar(&out, "out", "", "write the compact key to this file instead of stdout")
	return cmd
}
