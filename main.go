package main

import (
	"fmt"
	"os"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/scenario"
	"github.com/near/workspaces-harness/suites"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	results, err := run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !results.OK() {
		os.Exit(1)
	}
}

func run(params commandParams) (*scenario.Results, error) {
	config, err := loadConfig(params)
	if err != nil {
		return nil, err
	}

	loggers := framework.ConsoleLoggers(params.debugAll)
	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = framework.LevelLogger(loggers, ldlog.Debug)
	}
	loggers.Infof("Running scenarios against: %v", config.Backends)
	if description := params.filters.Describe(); description != "" {
		loggers.Infof("Filters:\n%s", description)
	}

	consoleLogger := scenario.ConsoleLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	results := suites.RunSuite(config, params.filters.Match, consoleLogger, mainDebugLogger)

	fmt.Println()
	scenario.PrintResults(results)
	return &results, nil
}

// loadConfig starts from the config file, if any, and applies the flags on top of it.
func loadConfig(params commandParams) (suites.Config, error) {
	var config suites.Config
	if params.configFile != "" {
		var err error
		if config, err = suites.LoadConfig(params.configFile); err != nil {
			return config, err
		}
	}
	if names := params.backendNames(); names != nil {
		config.Backends = names
	}
	if len(config.Backends) == 0 {
		config.Backends = []string{backend.SandboxName}
	}
	if params.sandboxPort != 0 {
		config.SandboxPort = uint16(params.sandboxPort)
	}
	if params.sandboxKey != "" {
		config.SandboxRootKeyFile = params.sandboxKey
	}
	if params.contractWasm != "" {
		config.ContractWasm = params.contractWasm
	}
	return config, config.Validate()
}
