package cmd

import (
	"fmt"
	"net/url"

	"github.com/rm-hull/godx"

	"github.com/rm-hull/fuel-price-dashboard/internal"
	"github.com/rm-hull/fuel-price-dashboard/internal/config"
	"github.com/rm-hull/fuel-price-dashboard/internal/dashboard"
	"github.com/rm-hull/fuel-price-dashboard/internal/history"
	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/selection"
	"github.com/rm-hull/fuel-price-dashboard/internal/stations"
)

var log = logger.Named("cmd")

type resources struct {
	cfg        *config.Config
	client     internal.QueryClient
	repo       internal.SettingsRepository
	controller *dashboard.Controller
	location   *selection.Location
}

func (r *resources) Close() {
	if err := r.repo.Close(); err != nil {
		log.Warnf("failed to close repository: %v", err)
	}
}

// bootstrap initialises the resources shared by every command: the query
// client, the settings store and the dashboard controller. initial is the
// query string the address bar starts with when URL sync is on.
func bootstrap(initial url.Values) (*resources, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	godx.GitVersion()
	godx.EnvironmentVars()
	godx.UserInfo()

	client := internal.NewQueryClient(cfg.DatasetteURL, cfg.Database)

	db, err := internal.Connect(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := internal.Migrate(cfg.StateDBPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate SQL: %w", err)
	}

	repo := internal.NewSettingsRepository(db)

	var opts []selection.Option
	var location *selection.Location
	if cfg.URLSync {
		location = selection.NewLocation(initial)
		opts = append(opts, selection.WithAddressBar(location))
	}

	controller := dashboard.NewController(
		stations.NewDirectory(client),
		selection.NewManager(repo, opts...),
		history.NewAggregator(client, cfg.Location),
		cfg.Location,
		dashboard.WithLookbackDays(cfg.LookbackDays),
	)

	return &resources{
		cfg:        cfg,
		client:     client,
		repo:       repo,
		controller: controller,
		location:   location,
	}, nil
}
