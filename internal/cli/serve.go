package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/server"
)

// ServeOptions override the environment configuration.
type ServeOptions struct {
	Host     string
	Port     string
	Dev      bool
	Mode     string
	Script   string
	Platform string
	DB       string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface",
		Long: `Run the HTTP control surface and the execution context it drives.

Configuration comes from the environment; flags override it. In remote
mode the web view connects to /webview; in embedded mode the editor
script runs in-process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg, rootOpts)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "listen host (HOST)")
	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "listen port (PORT)")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "development logging and dev-mode jobs")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "web view mode: embedded or remote (WEBVIEW_MODE)")
	cmd.Flags().StringVar(&opts.Script, "script", "", "editor script for embedded mode (WEBVIEW_SCRIPT)")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "android, ios or web (EDITOR_PLATFORM)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (STORAGE_PATH)")

	return cmd
}

// apply copies the flags the user set onto cfg
func (o *ServeOptions) apply(cmd *cobra.Command, cfg *config.Config, rootOpts *RootOptions) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = o.Host
	}
	if flags.Changed("port") {
		cfg.Server.Port = o.Port
	}
	if o.Dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
		cfg.Bridge.DevMode = true
	}
	if rootOpts.Verbose {
		cfg.Logging.Level = "debug"
	}
	if flags.Changed("mode") {
		cfg.Webview.Mode = o.Mode
	}
	if flags.Changed("script") {
		cfg.Webview.Script = o.Script
	}
	if flags.Changed("platform") {
		cfg.Editor.Platform = o.Platform
	}
	if flags.Changed("db") {
		cfg.Storage.Path = o.DB
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)

	srv, err := server.NewServerWithLogger(cfg, logger)
	if err != nil {
		return err
	}

	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("Server error", zap.Error(runErr))
	}
	if err := srv.Close(); err != nil {
		return err
	}
	return runErr
}
