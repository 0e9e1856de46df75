package app

import (
	"context"
	"fmt"
	"time"

	"sheets_join/internal/notifications"
	"sheets_join/internal/sheets"
	"sheets_join/internal/table"
	"sheets_join/internal/xlsx"

	"github.com/rs/zerolog/log"
)

// InitializeStore opens the table store selected by cfg.Backend. For the
// xlsx backend table ids are workbook paths.
func InitializeStore(ctx context.Context, cfg *Config) (table.Store, error) {
	log.Debug().Str("backend", cfg.Backend).Msg("Initializing table store")
	switch cfg.Backend {
	case BackendXLSX:
		return xlsx.NewStore(), nil
	case BackendSheets, "":
		creds, err := sheets.LoadCredentials(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		client, err := sheets.NewClient(ctx, creds)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("identity", client.Identity()).Msg("Sheets client initialized")
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// InitializeNotificationClient creates the run notifier.
func InitializeNotificationClient(cfg *Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.NtfyEnabled).
		Str("base_url", cfg.NtfyURL).
		Str("topic", cfg.NtfyTopic).
		Msg("Initializing notification client")

	client := notifications.NewClient(notifications.Config{
		Enabled:    cfg.NtfyEnabled,
		BaseURL:    cfg.NtfyURL,
		Topic:      cfg.NtfyTopic,
		Priority:   cfg.NtfyPriority,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	})
	if cfg.NtfyEnabled {
		log.Info().Str("topic", cfg.NtfyTopic).Msg("Notifications enabled")
	}
	return client
}
