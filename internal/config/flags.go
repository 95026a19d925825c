// Package config loads the VM's gating Flags from the process environment.
// There is no configuration file format in this pipeline stage — the
// collaborators that would read a project manifest (scanner, parser,
// editor-integration tooling) sit upstream of the compiler and VM.
package config

import (
	"os"
	"strconv"
)

// Flags gates which builtin categories the VM exposes. A freshly
// constructed VM with the zero Flags value runs in the most restrictive
// mode: no I/O, no supplemental stdlib builtins, no debug-only builtins.
type Flags struct {
	IOEnabled           bool
	StdLibEnabled       bool
	ExposeDebugBuiltins bool
}

// LoadFlags reads WISP_IO_ENABLED, WISP_STDLIB_ENABLED and
// WISP_DEBUG_BUILTINS from the environment. An unset or unparseable
// variable is treated as false.
func LoadFlags() Flags {
	return Flags{
		IOEnabled:           envBool("WISP_IO_ENABLED"),
		StdLibEnabled:       envBool("WISP_STDLIB_ENABLED"),
		ExposeDebugBuiltins: envBool("WISP_DEBUG_BUILTINS"),
	}
}

func envBool(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
