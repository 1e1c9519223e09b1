package sandbox

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Arcensyl/modcrab/internal/logging"
	"github.com/Arcensyl/modcrab/internal/monitoring"
)

// ServiceConfig configures the invocation service.
type ServiceConfig struct {
	Env            EnvConfig
	DefaultTimeout time.Duration
	PoolSize       int
	// RatePerSecond caps sandbox runs per second across the service.
	// Zero disables admission control.
	RatePerSecond int
	RateBurst     int
}

type namedProfile struct {
	profile *Profile
	pool    *Pool
}

// Service is the host-facing invocation interface: named profiles in,
// structured run results out. Profiles are resolved eagerly at
// construction so misconfiguration never surfaces at run time.
type Service struct {
	builder  *Builder
	guard    *Guard
	profiles map[string]*namedProfile
	limiter  *rate.Limiter
	log      *logging.Logger
	metrics  *monitoring.Metrics
}

// NewService validates every profile definition against the registry and
// prepares pools for retained profiles. The registry is frozen if the
// caller has not done so already.
func NewService(cfg ServiceConfig, reg *Registry, defs []ProfileDef, log *logging.Logger, metrics *monitoring.Metrics) (*Service, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics(nil)
	}
	reg.Freeze()

	s := &Service{
		builder:  NewBuilder(cfg.Env),
		guard:    NewGuard(cfg.DefaultTimeout),
		profiles: make(map[string]*namedProfile),
		log:      log,
		metrics:  metrics,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = cfg.RatePerSecond
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	for _, def := range defs {
		profile, err := reg.BuildProfile(def.Include...)
		if err != nil {
			s.CloseAll()
			return nil, err
		}
		profile.name = def.Name
		profile.retain = def.Retain

		np := &namedProfile{profile: profile}
		if def.Retain {
			pool, err := NewPool(s.builder, profile, cfg.PoolSize)
			if err != nil {
				s.CloseAll()
				return nil, err
			}
			np.pool = pool
		}
		s.profiles[def.Name] = np

		log.Info("sandbox profile ready",
			zap.String("profile", def.Name),
			zap.Int("capabilities", len(profile.caps)),
			zap.Bool("pooled", def.Retain),
		)
	}
	return s, nil
}

// Profile returns a configured profile by name.
func (s *Service) Profile(name string) (*Profile, error) {
	np, ok := s.profiles[name]
	if !ok {
		return nil, &UnknownProfileError{Name: name}
	}
	return np.profile, nil
}

// Run executes source under the named profile. Pooled profiles reuse
// environments across calls; others get a fresh environment that is
// destroyed when the run ends.
func (s *Service) Run(ctx context.Context, profileName, source string, limits Limits) (*Result, error) {
	np, ok := s.profiles[profileName]
	if !ok {
		return nil, &UnknownProfileError{Name: profileName}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var env *Environment
	var err error
	if np.pool != nil {
		env, err = np.pool.Acquire(ctx)
	} else {
		env, err = s.builder.Materialize(np.profile)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RunStarted()
	res, err := s.guard.Run(ctx, env, source, limits)
	s.metrics.RunFinished()

	if np.pool != nil {
		if relErr := np.pool.Release(env); relErr != nil {
			s.log.Warn("environment replacement failed",
				zap.String("profile", profileName),
				zap.Error(relErr),
			)
		}
		s.metrics.SetPoolAvailable(profileName, np.pool.Available())
	} else {
		env.Close()
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRun(profileName, string(res.Outcome), res.Duration)
	s.log.Info("sandbox run finished",
		zap.String("run_id", res.ID.String()),
		zap.String("profile", profileName),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// CloseAll releases every pooled environment.
func (s *Service) CloseAll() {
	for _, np := range s.profiles {
		if np.pool != nil {
			np.pool.Close()
		}
	}
}
