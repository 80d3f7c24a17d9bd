package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jllopis/skillrt/pkg/config"
	"github.com/jllopis/skillrt/pkg/llm"
	skillmcp "github.com/jllopis/skillrt/pkg/mcp"
	"github.com/jllopis/skillrt/pkg/runtime"
	"github.com/jllopis/skillrt/pkg/skills"
	"github.com/jllopis/skillrt/pkg/skills/builtin"
	"github.com/jllopis/skillrt/pkg/telemetry"
)

// app holds the wired components shared by every command.
type app struct {
	opts     config.Options
	cfg      *config.Config
	logger   *slog.Logger
	registry *skills.Registry
	runtime  *runtime.Runtime
	audit    runtime.AuditStore
	sweeper  *runtime.RetentionSweeper

	closers []func(context.Context) error
}

func (f *rootFlags) options() config.Options {
	opts := config.Options{
		Path:      f.ConfigPath,
		Profile:   f.Profile,
		Overrides: append([]string(nil), f.Overrides...),
	}
	if f.LogLevel != "" {
		opts.Overrides = append(opts.Overrides, "log.level="+f.LogLevel)
	}
	return opts
}

func bootstrap(ctx context.Context, flags *rootFlags) (*app, error) {
	opts := flags.options()
	cfg, err := config.LoadWith(opts)
	if err != nil {
		return nil, NewConfigError(err, opts.Path)
	}

	a := &app{opts: opts, cfg: cfg}
	a.logger = telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitWithConfig(cfg.Telemetry.ServiceName, version, telemetry.Config{
			Exporter:           cfg.Telemetry.Exporter,
			OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
			OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
		})
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		a.closers = append(a.closers, shutdown)
	}
	metrics, err := telemetry.NewSkillMetrics(ctx)
	if err != nil {
		a.logger.Warn("telemetry.metrics.error", slog.String("error", err.Error()))
	}

	a.registry = skills.NewRegistry(skills.WithLogger(telemetry.Component(a.logger, "registry")))
	provider, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		a.Close(ctx)
		return nil, NewConfigError(err, opts.Path)
	}
	if err := builtin.Register(a.registry, provider, cfg.LLM.Model); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.importRemotes(ctx)
	if err := applySkillSettings(a.registry, cfg.Skills); err != nil {
		a.Close(ctx)
		return nil, NewConfigError(err, cfg.Skills.Manifest)
	}

	if err := a.openAudit(); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.runtime = runtime.New(a.registry,
		runtime.WithLogger(telemetry.Component(a.logger, "runtime")),
		runtime.WithMetrics(metrics),
		runtime.WithAuditStore(a.audit),
		runtime.WithTimeout(cfg.Runtime.Timeout()),
	)
	return a, nil
}

// importRemotes registers the tools of every configured MCP server.
// A remote that cannot be reached is logged and skipped.
func (a *app) importRemotes(ctx context.Context) {
	for name, remote := range a.cfg.MCP.Remotes {
		client, err := skillmcp.NewClientWithStdio(ctx, remote.Command, remote.Args)
		if err != nil {
			a.logger.Warn("mcp.remote.error", slog.String("remote", name), slog.String("error", err.Error()))
			continue
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })

		imported, err := skillmcp.ImportTools(ctx, client, name)
		if err != nil {
			a.logger.Warn("mcp.remote.error", slog.String("remote", name), slog.String("error", err.Error()))
			continue
		}
		for _, s := range imported {
			if err := a.registry.Register(s); err != nil {
				a.logger.Warn("mcp.remote.skip", slog.String("skill_id", s.ID), slog.String("error", err.Error()))
			}
		}
		a.logger.Info("mcp.remote.imported", slog.String("remote", name), slog.Int("skills", len(imported)))
	}
}

func (a *app) openAudit() error {
	audit := a.cfg.Runtime.Audit
	switch audit.Driver {
	case "none":
		return nil
	case "sqlite":
		store, err := runtime.OpenSQLiteAuditStore(audit.DSN)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		a.audit = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	default:
		a.audit = runtime.NewMemoryAuditStore()
	}
	return nil
}

// startSweeper prunes old audit records in the background until ctx ends.
func (a *app) startSweeper(ctx context.Context) {
	pruner, ok := a.audit.(runtime.AuditPruner)
	if !ok {
		return
	}
	audit := a.cfg.Runtime.Audit
	a.sweeper = runtime.NewRetentionSweeper(pruner,
		time.Duration(audit.RetentionHours)*time.Hour,
		time.Duration(audit.SweepIntervalSeconds)*time.Second,
		runtime.WithSweepLogger(telemetry.Component(a.logger, "retention")),
	)
	a.sweeper.Start(ctx)
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("shutdown.error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

// applySkillSettings reconciles the registry with the manifest and the
// disabled list. It is re-run after a config reload.
func applySkillSettings(reg *skills.Registry, settings config.SkillsConfig) error {
	var manifest skills.Manifest
	if settings.Manifest != "" {
		m, err := skills.LoadManifest(settings.Manifest)
		if err != nil {
			return err
		}
		manifest = m
	}
	return reg.Reconcile(manifest, settings.Disabled)
}
