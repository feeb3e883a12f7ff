package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/database"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/logging"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	level      zap.AtomicLevel
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bookcanvas",
		Short:         "Operate a bookcanvas server",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, level, err := logging.NewLeveled(cfg.Logging)
			if err != nil {
				return err
			}
			a.cfg, a.logger, a.level = cfg, logger, level
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "bookcanvas.yaml", "path to YAML config file")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newShareURLCmd(a),
		newExportCmd(a),
	)
	return root
}

// openDB connects and migrates the configured database.
func (a *app) openDB() (*gorm.DB, error) {
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
