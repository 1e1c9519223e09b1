package modpack

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/Arcensyl/modcrab/internal/logging"
	"github.com/Arcensyl/modcrab/internal/sandbox"
)

// configPattern matches the Lua files of a modpack's config tree.
const configPattern = "**/*.lua"

// EvalConfig configures the modpack config evaluator.
type EvalConfig struct {
	Env     sandbox.EnvConfig
	Timeout time.Duration
	// Include overrides the capability set config scripts run under.
	// Empty uses the mod-script defaults.
	Include []string
}

// Evaluation is the combined product of a modpack's config scripts.
type Evaluation struct {
	Specs []ModSpec
	// Config is the modcrab table as the scripts left it.
	Config map[string]any
}

// Evaluator runs a modpack's Lua config inside the capability sandbox and
// collects the mod specifications the scripts declare.
type Evaluator struct {
	profile *sandbox.Profile
	builder *sandbox.Builder
	guard   *sandbox.Guard
	log     *logging.Logger
}

// NewEvaluator resolves the config-script capability profile against the
// registry. Profile resolution failures surface here, before any script
// ever runs.
func NewEvaluator(reg *sandbox.Registry, cfg EvalConfig, log *logging.Logger) (*Evaluator, error) {
	if log == nil {
		log = logging.NewNop()
	}

	include := cfg.Include
	if len(include) == 0 {
		include = sandbox.DefaultProfileDefs()[0].Include
	}
	profile, err := reg.BuildProfile(include...)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		profile: profile,
		builder: sandbox.NewBuilder(cfg.Env),
		guard:   sandbox.NewGuard(cfg.Timeout),
		log:     log,
	}, nil
}

// EvalDir runs every Lua script under dir, sorted by path, in one shared
// restricted environment. hostConfig is exposed to the scripts as the
// modcrab global and read back, mutations included, once all scripts ran.
func (e *Evaluator) EvalDir(ctx context.Context, dir string, hostConfig map[string]any) (*Evaluation, error) {
	scripts, err := findConfigScripts(dir)
	if err != nil {
		return nil, err
	}

	env, err := e.builder.Materialize(e.profile)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	if hostConfig == nil {
		hostConfig = map[string]any{}
	}
	if err := env.Seed("modcrab", hostConfig); err != nil {
		return nil, err
	}

	eval := &Evaluation{}
	for _, path := range scripts {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config script: %w", err)
		}

		res, err := e.guard.Run(ctx, env, string(source), sandbox.Limits{})
		if err != nil {
			return nil, err
		}
		if res.Outcome != sandbox.OutcomeValue {
			return nil, fmt.Errorf("config script %s: %w", filepath.Base(path), res.Err)
		}

		specs, err := decodeSpecList(res.Value)
		if err != nil {
			return nil, fmt.Errorf("config script %s: %w", filepath.Base(path), err)
		}
		eval.Specs = append(eval.Specs, specs...)

		e.log.Debug("config script evaluated",
			zap.String("script", filepath.Base(path)),
			zap.Int("specs", len(specs)),
		)
	}

	if cfg, ok := env.Export("modcrab").(map[string]any); ok {
		eval.Config = cfg
	}

	if len(eval.Specs) == 0 {
		e.log.Warn("modpack config declares no mods", zap.String("dir", dir))
	}
	return eval, nil
}

// findConfigScripts returns the Lua files under dir, sorted by path so
// config evaluation order is stable.
func findConfigScripts(dir string) ([]string, error) {
	var scripts []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		match, err := doublestar.Match(configPattern, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if match {
			scripts = append(scripts, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk config dir: %w", err)
	}
	sort.Strings(scripts)
	return scripts, nil
}

// ValidateSpecs checks a declared mod list for internal consistency:
// duplicate names are errors, missing dependencies are errors, and 'after'
// entries naming unknown mods are pruned. Names compare case-insensitively.
func ValidateSpecs(specs []ModSpec) ([]ModSpec, error) {
	known := make(map[string]bool, len(specs))
	for _, spec := range specs {
		key := strings.ToLower(spec.Name)
		if known[key] {
			return nil, fmt.Errorf("mod %q is declared twice", spec.Name)
		}
		known[key] = true
	}

	out := make([]ModSpec, 0, len(specs))
	for _, spec := range specs {
		for _, dep := range spec.Dependencies {
			if !known[strings.ToLower(dep)] {
				return nil, fmt.Errorf("mod %q depends on %q, which is not in the modpack", spec.Name, dep)
			}
		}

		kept := make([]string, 0, len(spec.After))
		for _, name := range spec.After {
			if known[strings.ToLower(name)] {
				kept = append(kept, name)
			}
		}
		spec.After = kept
		out = append(out, spec)
	}
	return out, nil
}
