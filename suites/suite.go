package suites

import (
	"context"
	"time"

	"github.com/near/workspaces-harness/backend"
	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/scenario"
	"github.com/near/workspaces-harness/rpc"
	"github.com/near/workspaces-harness/runner"
)

const testnetExplanation = "the shared test network is outside of the harness's control"

type suite struct {
	config      Config
	debugLogger framework.Logger
}

// RunSuite runs every scenario for the configured backends.
func RunSuite(
	config Config,
	filter scenario.Filter,
	logger scenario.Logger,
	debugLogger framework.Logger,
) scenario.Results {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	s := suite{config: config, debugLogger: debugLogger}

	ctx := context.Background()
	if config.SettleDelay != nil {
		ctx = rpc.WithClientOptions(ctx, rpc.WithSettleDelay(time.Duration(*config.SettleDelay)))
	}
	return scenario.Run(scenario.Config{Filter: filter, Logger: logger, Context: ctx}, func(t *scenario.T) {
		for _, name := range config.Backends {
			name := name
			t.Run(name, func(t *scenario.T) {
				s.runBackend(t, name)
			})
		}
		t.Run("spooning", s.spooning)
	})
}

func (s suite) options(t *scenario.T) []runner.ScopeOption {
	options := []runner.ScopeOption{runner.WithLogger(t.DebugLogger())}
	return append(options, s.config.scopeOptions()...)
}

// runBackend holds one scope open while the per-backend scenarios run inside it.
func (s suite) runBackend(t *scenario.T, name string) {
	if name == backend.TestnetName {
		t.NonCritical(testnetExplanation)
	}
	s.debugLogger.Printf("Running scenarios against %s", name)
	_, err := runner.Scope(t.Context(), name, func(ctx context.Context) (struct{}, error) {
		t.RunWithContext(ctx, "status", doStatusScenario)
		t.RunWithContext(ctx, "dev accounts", doDevAccountScenarios)
		t.RunWithContext(ctx, "transfer", doTransferScenario)
		t.RunWithContext(ctx, "patch state", doPatchStateScenario)
		t.RunWithContext(ctx, "contract", s.doContractScenario)
		return struct{}{}, nil
	}, s.options(t)...)
	if err != nil {
		t.Errorf("%s backend: %s", name, err)
	}
}
