package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Arcensyl/modcrab/internal/config"
	"github.com/Arcensyl/modcrab/internal/logging"
	"github.com/Arcensyl/modcrab/internal/modpack"
	"github.com/Arcensyl/modcrab/internal/monitoring"
	"github.com/Arcensyl/modcrab/internal/sandbox"
)

// App wires the sandbox subsystem together from configuration: logger,
// metrics, the frozen capability registry, the invocation service and the
// modpack config evaluator.
type App struct {
	Config    *config.Config
	Log       *logging.Logger
	Metrics   *monitoring.Metrics
	Registry  *sandbox.Registry
	Service   *sandbox.Service
	Evaluator *modpack.Evaluator
}

// New assembles an App. Profile definitions come from the configured file
// when set, otherwise the built-in defaults. Any profile misconfiguration
// fails here, never at run time.
func New(cfg *config.Config, registerer prometheus.Registerer) (*App, error) {
	if cfg == nil {
		cfg = config.LoadOrDefault()
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics(registerer)

	registry, err := sandbox.NewStdlibRegistry()
	if err != nil {
		return nil, err
	}

	defs := sandbox.DefaultProfileDefs()
	if cfg.Sandbox.ProfilePath != "" {
		if defs, err = sandbox.LoadProfileDefs(cfg.Sandbox.ProfilePath); err != nil {
			return nil, err
		}
	}

	envCfg := sandbox.EnvConfig{
		CallStackSize: cfg.Sandbox.CallStackSize,
		RegistrySize:  cfg.Sandbox.RegistrySize,
	}
	svc, err := sandbox.NewService(sandbox.ServiceConfig{
		Env:            envCfg,
		DefaultTimeout: cfg.Sandbox.Timeout,
		PoolSize:       cfg.Sandbox.PoolSize,
		RatePerSecond:  cfg.RateLimit.RunsPerSecond,
		RateBurst:      cfg.RateLimit.Burst,
	}, registry, defs, log, metrics)
	if err != nil {
		return nil, err
	}

	evaluator, err := modpack.NewEvaluator(registry, modpack.EvalConfig{
		Env:     envCfg,
		Timeout: cfg.Sandbox.Timeout,
	}, log)
	if err != nil {
		svc.CloseAll()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   metrics,
		Registry:  registry,
		Service:   svc,
		Evaluator: evaluator,
	}, nil
}

// Run executes source under a named profile.
func (a *App) Run(ctx context.Context, profileName, source string) (*sandbox.Result, error) {
	return a.Service.Run(ctx, profileName, source, sandbox.Limits{})
}

// EvalModpack evaluates a modpack's config directory and validates the
// declared mod list.
func (a *App) EvalModpack(ctx context.Context, dir string, hostConfig map[string]any) (*modpack.Evaluation, error) {
	eval, err := a.Evaluator.EvalDir(ctx, dir, hostConfig)
	if err != nil {
		return nil, err
	}
	if eval.Specs, err = modpack.ValidateSpecs(eval.Specs); err != nil {
		return nil, err
	}
	return eval, nil
}

// Close releases pooled environments and flushes the logger.
func (a *App) Close() {
	a.Service.CloseAll()
	_ = a.Log.Sync()
}
