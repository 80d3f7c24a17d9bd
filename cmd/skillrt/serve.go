package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jllopis/skillrt/pkg/config"
	skillmcp "github.com/jllopis/skillrt/pkg/mcp"
	"github.com/jllopis/skillrt/pkg/telemetry"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve enabled skills as MCP tools over stdio",
		Long: `Serve every enabled skill as an MCP tool on stdin/stdout.

With --watch, edits to the config file re-apply the manifest and the disabled
list, and the published tool list follows.`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if a.cfg.Telemetry.Enabled && a.cfg.Telemetry.Exporter == "stdout" {
				return NewInvalidArgumentError("telemetry.exporter", "stdout exporter would corrupt the stdio transport")
			}
			ctx := cmd.Context()
			a.startSweeper(ctx)

			srv := skillmcp.NewServer(a.cfg.MCP.Name, a.cfg.MCP.Version, a.registry, a.runtime,
				skillmcp.WithServerLogger(telemetry.Component(a.logger, "mcp")),
			)

			if watch && a.opts.Path != "" {
				watcher, err := config.NewWatcher(a.opts, config.WithWatchLogger(telemetry.Component(a.logger, "config")))
				if err != nil {
					return NewConfigError(err, a.opts.Path)
				}
				watcher.OnChange(func(cfg *config.Config) {
					if err := applySkillSettings(a.registry, cfg.Skills); err != nil {
						a.logger.Warn("skills.reload.error", slog.String("error", err.Error()))
					}
					srv.Sync()
				})
				if err := watcher.Start(ctx); err != nil {
					return NewConfigError(err, a.opts.Path)
				}
				defer watcher.Stop()
			}

			a.logger.Info("mcp.serve.start",
				slog.String("name", a.cfg.MCP.Name),
				slog.String("version", a.cfg.MCP.Version),
			)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ServeStdio() }()
			select {
			case <-ctx.Done():
				return nil
			case err := <-errCh:
				return err
			}
		}),
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload skill settings when the config file changes")
	return cmd
}
