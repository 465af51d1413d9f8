// Package config loads process-wide VM tuning knobs from the environment,
// the way the teacher anticipates via mainer.Parser.EnvVars but never
// exercises on its own (the teacher has no runtime limits to configure).
package config

import "github.com/caarlos0/env/v6"

// Config holds the limits internal/runcmd applies to a Thread before
// running a program. None of these are part of the value/bytecode model
// itself (spec §1 leaves resource limits unspecified); they exist purely
// so the host binary doesn't run an unbounded or infinitely recursive
// program forever.
type Config struct {
	// MaxSteps caps the number of instructions Run executes before aborting
	// with a budget-exceeded error. Zero means unlimited.
	MaxSteps int64 `env:"CALYX_MAX_STEPS" envDefault:"0"`

	// MaxCallDepth caps the depth of Thread.calls, guarding against
	// unbounded recursion growing the dispatch loop's call-frame stack
	// without limit. Zero means unlimited.
	MaxCallDepth int `env:"CALYX_MAX_CALL_DEPTH" envDefault:"10000"`
}

// Load reads a Config from the process environment, applying the defaults
// above to anything unset.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
