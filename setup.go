package main

import (
	"sheets_join/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// options holds flag values shared by every subcommand.
type options struct {
	configFile string
	backend    string
	cfg        *app.Config
}

// setup configures logging and loads configuration before a subcommand runs.
func (o *options) setup(cmd *cobra.Command, _ []string) error {
	app.SetupLogging(cmd.ErrOrStderr())

	cfg, err := app.LoadConfig(o.configFile)
	if err != nil {
		return err
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	o.cfg = cfg
	log.Debug().
		Str("backend", cfg.Backend).
		Str("primary", cfg.PrimaryTableID).
		Str("secondary", cfg.SecondaryTableID).
		Str("target", cfg.TargetTableID).
		Msg("Configuration loaded")
	return nil
}

// validated returns the loaded config after checking it is complete.
func (o *options) validated() (*app.Config, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	return o.cfg, nil
}
