package sandbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

// RunState tracks a run through the guard's state machine.
type RunState int

const (
	Ready RunState = iota
	Running
	Completed
	Failed
	TimedOut
	Aborted
)

func (s RunState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the invocation-boundary classification of a run.
type Outcome string

const (
	OutcomeValue            Outcome = "value"
	OutcomeScriptError      Outcome = "script_error"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeAborted          Outcome = "aborted"
	OutcomeResourceExceeded Outcome = "resource_exceeded"
)

// Limits bounds one run. A zero Timeout uses the guard's default.
type Limits struct {
	Timeout time.Duration
}

// Result is the structured outcome of one sandboxed run. Run-time failures
// land in Err as taxonomy errors; they never propagate as host faults.
type Result struct {
	ID       uuid.UUID
	State    RunState
	Outcome  Outcome
	Value    any
	Err      error
	Duration time.Duration
}

// Guard invokes untrusted code inside a materialized environment under a
// wall-clock deadline. The deadline is enforced through the interpreter's
// context checks between VM instructions, so a runaway script is stopped
// from outside its own control flow and never mid-host-call.
type Guard struct {
	defaultTimeout time.Duration
}

// NewGuard creates an execution guard.
func NewGuard(defaultTimeout time.Duration) *Guard {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &Guard{defaultTimeout: defaultTimeout}
}

var errEnvUnusable = errors.New("environment is broken or closed")

// Run executes source inside env. The returned error reports host-level
// misuse only; script failures, timeouts and cancellation are classified in
// the Result. Environments that were interrupted (timeout, abort, resource
// overrun) are marked broken and must be discarded, not reused.
func (g *Guard) Run(ctx context.Context, env *Environment, source string, limits Limits) (*Result, error) {
	if env == nil || env.closed || env.broken {
		return nil, errEnvUnusable
	}

	res := &Result{ID: uuid.New(), State: Ready}

	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = g.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	L := env.state
	start := time.Now()

	fn, err := L.LoadString(source)
	if err != nil {
		res.State = Failed
		res.Outcome = OutcomeScriptError
		res.Err = &ScriptError{Value: scriptErrorValue(err)}
		res.Duration = time.Since(start)
		return res, nil
	}
	L.SetFEnv(fn, env.globals)

	res.State = Running
	L.SetContext(runCtx)
	base := L.GetTop()
	L.Push(fn)
	err = L.PCall(0, lua.MultRet, nil)
	L.RemoveContext()
	res.Duration = time.Since(start)

	if err != nil {
		L.SetTop(base)
		g.classify(ctx, runCtx, err, env, res)
		return res, nil
	}

	res.State = Completed
	res.Outcome = OutcomeValue
	if top := L.GetTop(); top > base {
		if top == base+1 {
			res.Value = luaToGo(L.Get(base + 1))
		} else {
			vals := make([]any, 0, top-base)
			for i := base + 1; i <= top; i++ {
				vals = append(vals, luaToGo(L.Get(i)))
			}
			res.Value = vals
		}
		L.SetTop(base)
	}
	return res, nil
}

// classify maps an interpreter error to the taxonomy. Host-initiated
// cancellation always wins over the deadline so Aborted and TimedOut stay
// distinguishable.
func (g *Guard) classify(parent, runCtx context.Context, err error, env *Environment, res *Result) {
	switch {
	case parent.Err() != nil:
		env.broken = true
		res.State = Aborted
		res.Outcome = OutcomeAborted
		res.Err = ErrAborted
	case runCtx.Err() != nil:
		env.broken = true
		res.State = TimedOut
		res.Outcome = OutcomeTimeout
		res.Err = ErrTimedOut
	default:
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			if isVMOverrun(apiErr.Object) {
				env.broken = true
				res.State = Failed
				res.Outcome = OutcomeResourceExceeded
				res.Err = &ResourceExceededError{Kind: lua.LVAsString(apiErr.Object)}
				return
			}
			res.State = Failed
			res.Outcome = OutcomeScriptError
			res.Err = &ScriptError{Value: luaToGo(apiErr.Object)}
			return
		}
		res.State = Failed
		res.Outcome = OutcomeScriptError
		res.Err = &ScriptError{Value: err.Error()}
	}
}

// vmOverrunMessages are the literals the interpreter itself raises when a
// resource ceiling is hit. RaiseError prefixes them with "<source>:<line>: ",
// so both the bare and the prefixed form count. A script error that merely
// mentions overflow matches neither and stays a ScriptError.
var vmOverrunMessages = []string{"stack overflow", "registry overflow"}

func isVMOverrun(obj lua.LValue) bool {
	s, ok := obj.(lua.LString)
	if !ok {
		return false
	}
	msg := string(s)
	for _, lit := range vmOverrunMessages {
		if msg == lit || strings.HasSuffix(msg, ": "+lit) {
			return true
		}
	}
	return false
}

// scriptErrorValue extracts the script-visible message from a load error
// without carrying host stack detail.
func scriptErrorValue(err error) any {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return lua.LVAsString(apiErr.Object)
	}
	return err.Error()
}
