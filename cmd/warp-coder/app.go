package main

import (
	"fmt"
	"os"

	"github.com/warpmetrics/warp-coder/internal/board"
	"github.com/warpmetrics/warp-coder/internal/codehost"
	"github.com/warpmetrics/warp-coder/internal/coder"
	"github.com/warpmetrics/warp-coder/internal/config"
	"github.com/warpmetrics/warp-coder/internal/executor"
	"github.com/warpmetrics/warp-coder/internal/gitops"
	"github.com/warpmetrics/warp-coder/internal/graph"
	"github.com/warpmetrics/warp-coder/internal/hooks"
	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/logger"
	"github.com/warpmetrics/warp-coder/internal/memory"
	"github.com/warpmetrics/warp-coder/internal/notify"
	"github.com/warpmetrics/warp-coder/internal/workflow"
)

// app holds everything a command needs once configuration is loaded and
// the graph is compiled.
type app struct {
	cfg      *config.Config
	secrets  *config.Secrets
	log      *logger.Logger
	graph    *graph.Graph
	registry *executor.Registry
	clients  *executor.Clients
	board    board.Adapter
}

func newApp(flags *rootFlags) (*app, error) {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return nil, err
	}

	root := flags.projectRoot
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	secrets, err := config.LoadSecrets(root)
	if err != nil {
		return nil, err
	}
	if secrets.WarpmetricsKey == "" {
		log.Warn("WARP_CODER_WARPMETRICS_KEY is not set; telemetry and durable state are disabled")
	}

	registry := executor.NewRegistry()
	if err := workflow.RegisterBuiltins(registry); err != nil {
		return nil, err
	}

	doc, err := workflow.LoadDocument(cfg)
	if err != nil {
		return nil, err
	}
	g, warnings, err := graph.Compile(doc, registry.DeclaredResultTypes())
	if err != nil {
		return nil, err
	}
	for _, warning := range warnings {
		log.Warn(warning)
	}

	hookRunner, err := hooks.NewRunner()
	if err != nil {
		return nil, err
	}

	registerFakeBoard()
	adapter, err := board.New(cfg, secrets)
	if err != nil {
		return nil, err
	}

	clients := &executor.Clients{
		Git:    gitops.New(secrets.GitHubToken),
		Coder:  coder.NewSubprocess(coder.DefaultCommand),
		Ledger: ledger.NewClient(cfg.LedgerBaseURL(), secrets.WarpmetricsKey, log),
		Memory: memory.NewStore(cfg.ConfigDir(), cfg.Memory.Enabled, cfg.MemoryMaxLines()),
		Hooks:  hookRunner,
		Log:    log,
	}
	wireCodeHost(clients, log)

	return &app{
		cfg:      cfg,
		secrets:  secrets,
		log:      log,
		graph:    g,
		registry: registry,
		clients:  clients,
		board:    adapter,
	}, nil
}

// registerFakeBoard installs the in-memory board under the "fake"
// provider. Real providers register themselves the same way from their
// own packages.
func registerFakeBoard() {
	_ = board.Register("fake", func(_ *config.Config, _ *config.Secrets) (board.Adapter, error) {
		return board.NewFake(), nil
	})
}

// wireCodeHost fills the code-host slots of the client bundle. Concrete
// PR/issue/notify integrations plug in here; without one the in-memory
// fakes keep the daemon runnable for local development.
func wireCodeHost(clients *executor.Clients, log *logger.Logger) {
	if clients.PRs == nil {
		log.Warn("no code-host integration configured; using in-memory PR and issue clients")
		clients.PRs = codehost.NewFakePRClient()
		clients.Issues = codehost.NewFakeIssuesClient()
	}
	if clients.Notify == nil {
		clients.Notify = notify.NewIssueCommenter(clients.Issues)
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
