// Package workflow ships the builtin executors, their effects, and the
// default graph. Everything here is an instance of the executor contract;
// the scheduler knows none of it by name.
package workflow

import (
	_ "embed"

	"github.com/warpmetrics/warp-coder/internal/config"
	"github.com/warpmetrics/warp-coder/internal/graph"
)

//go:embed workflow.yaml
var defaultWorkflow []byte

// LoadDocument returns the workflow document to compile: the user override
// under the config dir when one is configured, otherwise the shipped
// default.
func LoadDocument(cfg *config.Config) (*graph.Document, error) {
	if path := cfg.WorkflowPath(); path != "" {
		return graph.ParseFile(path)
	}
	return graph.ParseBytes(defaultWorkflow, "workflow.yaml")
}
