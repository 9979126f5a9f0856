package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rm-hull/fuel-price-dashboard/cmd"
	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
)

func main() {
	var debug bool
	var share string
	var limit int

	log := logger.Get()

	rootCmd := &cobra.Command{
		Use:  "fuel-price-dashboard",
		Long: `Compare fuel price histories of selected filling stations`,
	}

	rootCmd.PersistentFlags().String("datasette-url", "", "Base URL of the Datasette instance publishing the price data")
	rootCmd.PersistentFlags().String("datasette-db", "", "Name of the Datasette database")
	rootCmd.PersistentFlags().String("state-db-path", "", "Path to the SQLite database holding the saved selection")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	for _, name := range []string{"datasette-url", "datasette-db", "state-db-path", "log-level"} {
		if err := viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), rootCmd.PersistentFlags().Lookup(name)); err != nil {
			log.Fatalf("failed to bind flag %s: %v", name, err)
		}
	}

	serveCmd := &cobra.Command{
		Use:   "serve [--port <port>] [--schedule <cron>] [--debug]",
		Short: "Start the HTTP dashboard server",
		Run: func(_ *cobra.Command, _ []string) {
			if err := cmd.DashboardServer(debug); err != nil {
				log.Fatalf("dashboard server failed: %v", err)
			}
		},
	}
	serveCmd.Flags().Int("port", 0, "Port to run HTTP server on")
	serveCmd.Flags().String("schedule", "", "CRON schedule for refreshing prices")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Enable pprof endpoints")
	if err := viper.BindPFlag("port", serveCmd.Flags().Lookup("port")); err != nil {
		log.Fatalf("failed to bind flag port: %v", err)
	}
	if err := viper.BindPFlag("refresh_schedule", serveCmd.Flags().Lookup("schedule")); err != nil {
		log.Fatalf("failed to bind flag schedule: %v", err)
	}

	reportCmd := &cobra.Command{
		Use:   "report [--share <query>]",
		Short: "Print the current dashboard as JSON",
		Run: func(_ *cobra.Command, _ []string) {
			if err := cmd.Report(share, os.Stdout); err != nil {
				log.Fatalf("report failed: %v", err)
			}
		},
	}
	reportCmd.Flags().StringVar(&share, "share", "", "Shared link query, e.g. 'stations=a1,b2&fuels=diesel&time=7d'")

	searchCmd := &cobra.Command{
		Use:   "search <term> [--limit <n>]",
		Short: "Find stations by name or address",
		Args:  cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := cmd.SearchStations(strings.Join(args, " "), limit, os.Stdout); err != nil {
				log.Fatalf("search failed: %v", err)
			}
		},
	}
	searchCmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of stations to list")

	rootCmd.AddCommand(serveCmd, reportCmd, searchCmd)
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
