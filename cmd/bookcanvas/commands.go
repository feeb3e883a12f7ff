package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/importexport"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/logging"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/server"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/share"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/store"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			srv, err := server.New(a.cfg, db, a.logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.configPath != "" {
				go a.watchConfig(ctx)
			}

			return srv.Run(ctx)
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.openDB(); err != nil {
				return err
			}
			a.logger.Info("migrations applied", zap.String("driver", a.cfg.Database.Driver))
			return nil
		},
	}
}

func newShareURLCmd(a *app) *cobra.Command {
	var copyURL bool

	cmd := &cobra.Command{
		Use:   "share-url <canvas-id>",
		Short: "Print the public share link of a canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := share.ShareURL(a.cfg.Server.BaseURL, args[0])
			fmt.Fprintln(cmd.OutOrStdout(), link)
			if !copyURL {
				return nil
			}
			// Clipboard access is best effort; the link is already printed.
			if err := share.NewCopier().Copy(link); err != nil {
				if errors.Is(err, share.ErrClipboardUnavailable) {
					fmt.Fprintln(cmd.ErrOrStderr(), "clipboard not available")
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "copy failed: %v\n", err)
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied!")
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyURL, "copy", false, "also copy the link to the clipboard")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <canvas-id>",
		Short: "Write a canvas with its groups and bookmarks to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "html", "cbor":
			default:
				return fmt.Errorf("unsupported format %q (want json, html or cbor)", format)
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			adapter := remotesync.New(store.NewGormStore(db), a.logger)
			canvas, err := adapter.GetCanvas(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tree, err := adapter.LoadTree(cmd.Context(), *canvas)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "html":
				return importexport.WriteNetscape(out, *tree)
			case "cbor":
				return importexport.WriteSnapshot(out, *tree)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(canvases.NewTreeResponse(*tree))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, html or cbor")
	return cmd
}

// watchConfig applies logging.level changes from the config file while the
// server runs.
func (a *app) watchConfig(ctx context.Context) {
	err := config.Watch(ctx, a.configPath, func(next *config.Config) {
		if err := logging.SetLevel(a.level, next.Logging.Level); err != nil {
			a.logger.Warn("ignoring log level from config", zap.Error(err))
		}
	}, func(err error) {
		a.logger.Warn("config reload failed", zap.Error(err))
	})
	if err != nil {
		a.logger.Debug("config watcher not running", zap.Error(err))
	}
}
