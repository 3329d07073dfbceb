package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/officegrid/internal/config"
	"github.com/specialistvlad/officegrid/internal/ctxlog"
	"github.com/specialistvlad/officegrid/internal/floorfile"
	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/metrics"
	"github.com/specialistvlad/officegrid/internal/registry"
	"github.com/specialistvlad/officegrid/internal/team"
	"github.com/specialistvlad/officegrid/internal/tracing"
)

// newTracingProvider is replaced in tests to observe the provider's shutdown.
var newTracingProvider = tracing.NewProvider

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	settings *config.Settings

	registry   *registry.Registry
	floor      *floorfile.Floor
	office     *kernel.Office
	gatherer   *prometheus.Registry
	metrics    *metrics.Metrics
	tracing    *tracing.Provider
	httpServer *http.Server
}

// NewApp builds an application from settings and the floor files found under
// floorPaths. Without modules, every core module is registered.
func NewApp(outW io.Writer, settings *config.Settings, floorPaths []string, modules ...registry.Module) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(floorPaths) == 0 {
		return nil, errors.New("at least one floor path is required")
	}

	logger := newLogger(settings.LogLevel, settings.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "functions", reg.FunctionNames())

	floor, err := floorfile.NewLoader(reg).Load(ctx, floorPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load floor: %w", err)
	}
	logger.Debug("Floor loaded.", "files", floor.Files)

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(collectors.NewGoCollector())
	m := metrics.New(gatherer)

	tp, err := newTracingProvider(ctx, tracing.Config{ServiceName: settings.ServiceName, OTLPEndpoint: settings.OTLPEndpoint})
	if err != nil {
		return nil, err
	}
	// The exporter is released on every failure below.
	shutdownTracing := func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down tracing.", "error", err)
		}
	}

	teams, err := buildTeams(reg, floor.Teams, settings.TeamSize, logger, m)
	if err != nil {
		shutdownTracing()
		return nil, err
	}

	meta := floor.Office
	if meta.CheckInterval <= 0 {
		meta.CheckInterval = settings.CheckInterval
	}
	office, err := kernel.NewOffice(meta, teams,
		kernel.WithLogger(logger),
		kernel.WithMetrics(m),
		kernel.WithTracer(tp.Tracer()),
	)
	if err != nil {
		shutdownTracing()
		return nil, fmt.Errorf("failed to build office '%s': %w", meta.Name, err)
	}
	logger.Debug("Office built.", "office", meta.Name, "teams", len(teams))

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		settings: settings,
		registry: reg,
		floor:    floor,
		office:   office,
		gatherer: gatherer,
		metrics:  m,
		tracing:  tp,
	}, nil
}

// buildTeams creates every team declared by the floor. Pool teams without a
// size get defaultSize.
func buildTeams(reg *registry.Registry, specs []floorfile.TeamSpec, defaultSize int, logger *slog.Logger, observer team.Observer) (map[string]team.Team, error) {
	teams := make(map[string]team.Team, len(specs))
	for _, spec := range specs {
		src, err := reg.Team(spec.Kind)
		if err != nil {
			return nil, err
		}
		size := spec.Size
		if size == 0 {
			size = defaultSize
		}
		tm, err := src.CreateTeam(team.SourceContext{
			Name:     spec.Name,
			Size:     size,
			Logger:   logger,
			Observer: observer,
		})
		if err != nil {
			return nil, err
		}
		teams[spec.Name] = tm
	}
	return teams, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Office returns the office built from the floor.
func (a *App) Office() *kernel.Office {
	return a.office
}

// Floor returns the loaded floor.
func (a *App) Floor() *floorfile.Floor {
	return a.floor
}
