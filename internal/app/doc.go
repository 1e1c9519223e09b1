// Package app assembles the sandbox subsystem for an embedding host.
//
// It loads configuration, builds the logger and metrics, populates and
// freezes the capability registry, resolves sandbox profiles, and exposes
// the two host-facing operations: running source under a named profile and
// evaluating a modpack's Lua config directory.
//
// Example Usage:
//
//	a, err := app.New(config.LoadOrDefault(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//	res, err := a.Run(ctx, "mod-script", source)
package app
