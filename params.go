package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework/scenario"
)

const bothBackends = "both"

type commandParams struct {
	backends     string
	configFile   string
	sandboxPort  uint
	sandboxKey   string
	contractWasm string
	filters      scenario.Filters
	debug        bool
	debugAll     bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.backends, "backend", "", `backend to run against: "sandbox", "testnet" or "both"`)
	fs.StringVar(&c.configFile, "config", "", "JSON or YAML file with run settings")
	fs.UintVar(&c.sandboxPort, "sandbox-port", 0, "attach to a sandbox node already listening on this port")
	fs.StringVar(&c.sandboxKey, "sandbox-key", "", "validator key file of the attached sandbox node")
	fs.StringVar(&c.contractWasm, "contract", "", "status-message contract to deploy in contract scenarios")
	fs.Var(&c.filters.Run, "run", "regex pattern(s) to select scenarios to run")
	fs.Var(&c.filters.Skip, "skip", "regex pattern(s) to select scenarios not to run")
	fs.BoolVar(&c.debug, "debug", false, "show debug output of failed scenarios")
	fs.BoolVar(&c.debugAll, "debug-all", false, "show debug output of all scenarios")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	switch c.backends {
	case "", backend.SandboxName, backend.TestnetName, bothBackends:
	default:
		fmt.Fprintf(os.Stderr, "-backend must be %q, %q or %q\n", backend.SandboxName, backend.TestnetName, bothBackends)
		fs.Usage()
		return false
	}
	if c.sandboxPort > 65535 {
		fmt.Fprintln(os.Stderr, "-sandbox-port is out of range")
		return false
	}
	return true
}

func (c commandParams) backendNames() []string {
	switch c.backends {
	case bothBackends:
		return []string{backend.SandboxName, backend.TestnetName}
	case "":
		return nil
	default:
		return []string{c.backends}
	}
}
