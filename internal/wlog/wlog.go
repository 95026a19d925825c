// Package wlog is the thin structured-logging wrapper the compiler and VM
// use for diagnostic tracing. It is never the error-reporting channel: a
// failed compile or a runtime fault is always returned as a Go error
// (compiler.Error / vm.Error) or a language-level value.Error, never only
// logged.
package wlog

import (
	"log/slog"
	"os"
)

var level = func() *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(slog.LevelWarn)
	return v
}()

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: level,
}))

// SetLevel adjusts the minimum level base and every logger Named derives
// from it emit at. Debug-level tracing in the compiler and VM is off by
// default; the CLI's -debug flag turns it on.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Named returns a child logger tagged with a "component" attribute, e.g.
// wlog.Named("compiler") or wlog.Named("vm").
func Named(component string) *slog.Logger {
	return base.With(slog.String("component", component))
}
