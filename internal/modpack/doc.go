// Package modpack evaluates a modpack's Lua configuration inside the
// capability sandbox.
//
// Config scripts run under the mod-script profile in one shared restricted
// environment, sorted by path so evaluation order is stable. Each script
// may return mod specifications (names or spec tables); the host config is
// exposed to scripts as the modcrab global and read back after evaluation.
package modpack
