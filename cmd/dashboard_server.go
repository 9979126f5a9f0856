package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Depado/ginprom"
	"github.com/aurowora/compress"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"

	"github.com/rm-hull/fuel-price-dashboard/internal"
	"github.com/rm-hull/fuel-price-dashboard/internal/dashboard"
	"github.com/rm-hull/fuel-price-dashboard/internal/routes"
)

func DashboardServer(debug bool) error {

	res, err := bootstrap(nil)
	if err != nil {
		return err
	}
	defer res.Close()

	if err := res.controller.Start(context.Background(), nil); err != nil {
		return err
	}

	scheduler, err := dashboard.StartCron(res.controller, res.cfg.RefreshSchedule)
	if err != nil {
		return fmt.Errorf("failed to start CRON jobs: %w", err)
	}
	defer scheduler.Stop()

	r := gin.New()

	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
		compress.Compress(),
		cors.Default(),
	)

	if debug {
		log.Warn("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	err = healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{
		res.repo.Check(),
		internal.NewRemoteCheck(res.client),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize healthcheck: %v", err)
	}

	routes.Register(r.Group("/v1/fuel-prices"), res.controller)

	addr := res.cfg.ListenAddr()
	log.Infof("Starting HTTP dashboard server on %s...", addr)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP dashboard server failed to start on %s: %v", addr, err)
	}

	return nil
}
