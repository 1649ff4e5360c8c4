package cli

import (
	"context"
	"io"

	"todoctl/internal/api"
	"todoctl/internal/config"
	"todoctl/internal/logging"
	"todoctl/internal/store"
)

// NewStoresFactory returns the production factory: a logger per cfg, one HTTP
// client against the configured backend, and stores persisting the session
// in the config directory. Debug logs go to stderr.
func NewStoresFactory(stderr io.Writer) StoresFactory {
	return func(ctx context.Context, cfg *config.Config) (*store.Stores, error) {
		logger, err := logging.New(cfg, stderr)
		if err != nil {
			return nil, err
		}
		client := api.New(cfg.Settings.APIURL,
			api.WithTimeout(cfg.Settings.Timeout),
			api.WithLogger(logger),
		)
		logger.WithField("api_url", cfg.Settings.APIURL).Debug("stores ready")
		return store.New(client, cfg, logger), nil
	}
}
