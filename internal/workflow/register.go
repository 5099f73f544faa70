package workflow

import (
	"github.com/warpmetrics/warp-coder/internal/executor"
)

// RegisterBuiltins installs the shipped executors, the deploy context
// provider and the effects into the registry. Called once at startup
// before the graph is compiled.
func RegisterBuiltins(reg *executor.Registry) error {
	builtins := []executor.Executor{
		implementExecutor{},
		awaitReplyExecutor{},
		reviewExecutor{},
		reviseExecutor{},
		mergeExecutor{},
		awaitDeployExecutor{},
		runDeployExecutor{},
		publishExecutor{},
	}

	for _, e := range builtins {
		if err := reg.Register(e); err != nil {
			return err
		}
	}

	reg.RegisterProvider(ExecRunDeploy, deployProvider)

	reg.RegisterEffect(ExecImplement, "ask_user", askUserEffect)
	reg.RegisterEffect(ExecImplement, "error", errorReportEffect)
	reg.RegisterEffect(ExecRevise, "error", errorReportEffect)
	reg.RegisterEffect(ExecMerge, "success", mergedEffect)
	reg.RegisterEffect(ExecRunDeploy, "success", deployedEffect)

	return nil
}
