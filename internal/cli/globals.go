package cli

import (
	"github.com/korgan/korg/internal/output"
)

// Globals holds global flags available to all commands
type Globals struct {
	Env         string `help:"Korgan environment (production, staging, local)" default:"" name:"env" env:"KORG_ENV"`
	Output      string `help:"Output format" default:"" enum:"json,yaml,plain,rich,auto," short:"o" env:"KORG_OUTPUT"`
	Verbose     bool   `help:"Debug logging to stderr" short:"v" env:"KORG_VERBOSE"`
	ResultsOnly bool   `help:"Strip JSON envelope, return data array only" env:"KORG_RESULTS_ONLY"`
	Force       bool   `help:"Skip confirmation for destructive operations" env:"KORG_FORCE"`
	DryRun      bool   `help:"Preview operation without executing" name:"dry-run" env:"KORG_DRY_RUN"`
}

// ResolvedOutput returns the effective output mode: flag, then config
// default_output, then auto (rich on a TTY, plain otherwise).
func (g *Globals) ResolvedOutput(configured string) string {
	mode := g.Output
	if mode == "" {
		mode = configured
	}
	return output.ResolveMode(mode, output.StdoutIsTerminal())
}
