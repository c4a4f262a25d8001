// Command impulse runs the symposium registration API and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/config"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/database"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/repository"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "impulse",
	Short:   "Registration service for the Impulse symposium",
	Version: version,
	// Serving is the default action.
	RunE: runServe,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
		_ = v.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))

		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(cfg.Database); err != nil {
			return err
		}
		slog.Info("migrations applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the stored catalog with the bundled or a given YAML file",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./impulse.yaml or /etc/impulse/impulse.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("port", "", "HTTP listen port")
	seedCmd.Flags().StringP("file", "f", "", "catalog YAML file (default: bundled catalog)")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(c config.LogConfig) {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if c.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func runSeed(cmd *cobra.Command, args []string) error {
	entries, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	if err := repository.NewCatalogRepository(pool).ReplaceAll(ctx, entries); err != nil {
		return err
	}
	slog.Info("catalog seeded", "entries", len(entries))
	return nil
}

func loadCatalog(cmd *cobra.Command) ([]model.CatalogEntry, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return catalog.Seed()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Parse(f)
}
