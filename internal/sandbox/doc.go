/*
Package sandbox provides capability-scoped execution of untrusted Lua
scripts, such as modpack configuration.

# Overview

The sandbox is built from four pieces, assembled by the Service:

 1. Registry: the process-wide allowlist of host capabilities, populated
    once from the static stdlib table and frozen.
 2. Profile: an immutable selection of registry capabilities, resolved
    eagerly so unknown names fail at configuration time.
 3. Builder: materializes a Profile into an Environment, a fresh
    restricted global scope backed by its own gopher-lua state.
 4. Guard: runs script source inside an Environment under a wall-clock
    deadline and classifies the outcome.

# Security Model

The restricted scope starts empty and is filled only from the profile;
nothing is inherited from the interpreter's ambient globals. Scripts
cannot:
  - Reach io.*, os.execute or any process/filesystem capability
  - Load code (dofile, loadfile, load, require are never registered)
  - Walk metatables back to host structures (getmetatable/setmetatable
    are boundary-aware wrappers)
  - Outrun their deadline (interrupted between VM instructions)

# Usage Example

	reg, _ := sandbox.NewStdlibRegistry()
	svc, err := sandbox.NewService(cfg, reg, sandbox.DefaultProfileDefs(), log, metrics)
	if err != nil {
		return err
	}
	res, err := svc.Run(ctx, "mod-script", source, sandbox.Limits{})

# Concurrency

One Environment belongs to one run at a time; concurrent invocations use
independent Environments. The frozen Registry is read without locking.
*/
package sandbox
