package sandbox

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("environment pool is closed")
)

// Pool holds reusable environments for one profile. Reuse keeps script
// globals across runs, which is the explicit retention policy for stateful
// scripts; environments broken by an interrupted run are replaced with
// fresh ones on release.
type Pool struct {
	builder *Builder
	profile *Profile
	envs    chan *Environment
	size    int
	mu      sync.RWMutex
	closed  bool
}

// NewPool pre-materializes size environments from the profile.
func NewPool(builder *Builder, profile *Profile, size int) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	p := &Pool{
		builder: builder,
		profile: profile,
		envs:    make(chan *Environment, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		env, err := builder.Materialize(profile)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.envs <- env
	}
	return p, nil
}

// Acquire takes an environment, blocking until one is free or ctx ends.
func (p *Pool) Acquire(ctx context.Context) (*Environment, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case env := <-p.envs:
		return env, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an environment to the pool, replacing it if the last run
// broke it. The replacement failure is returned so the host can surface it;
// the pool stays usable either way.
func (p *Pool) Release(env *Environment) error {
	if env.Broken() {
		env.Close()
		fresh, err := p.builder.Materialize(p.profile)
		if err != nil {
			return err
		}
		env = fresh
	}

	// The read lock is held across the send so Close cannot close the
	// channel underneath it.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		env.Close()
		return nil
	}

	select {
	case p.envs <- env:
		return nil
	default:
		env.Close()
		return nil
	}
}

// Close drains and closes every pooled environment. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.envs)
	for env := range p.envs {
		env.Close()
	}
}

// Available reports how many environments are currently free.
func (p *Pool) Available() int {
	return len(p.envs)
}

// Size reports the pool capacity.
func (p *Pool) Size() int {
	return p.size
}
