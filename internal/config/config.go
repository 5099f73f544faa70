package config

import (
	"path/filepath"
)

// Dir is the per-project configuration directory name.
const Dir = ".warp-coder"

// FileName is the configuration file name inside Dir.
const FileName = "config.json"

// Defaults applied when the configuration omits a key.
const (
	DefaultPollIntervalSeconds = 30
	DefaultConcurrency         = 1
	DefaultMaxRevisions        = 3
	DefaultLedgerBaseURL       = "https://api.warpmetrics.com"
	DefaultMemoryMaxLines      = 200
)

// Config is the daemon configuration loaded from
// <projectRoot>/.warp-coder/config.json.
type Config struct {
	Board        BoardConfig  `json:"board" validate:"required"`
	Repos        []string     `json:"repos" validate:"required,min=1,dive,url"`
	PollInterval int          `json:"pollInterval,omitempty" validate:"omitempty,min=1,max=3600"`
	Concurrency  int          `json:"concurrency,omitempty" validate:"omitempty,min=1,max=32"`
	MaxRevisions int          `json:"maxRevisions,omitempty" validate:"omitempty,min=1,max=20"`
	Claude       ClaudeConfig `json:"claude,omitempty"`
	Ledger       LedgerConfig `json:"ledger,omitempty"`
	Workflow     string       `json:"workflow,omitempty"`

	// Executors is accepted for forward compatibility but rejected at
	// validation time: executors are compiled into the binary and
	// registered at startup, so a config naming extra modules would
	// silently do nothing.
	Executors []string `json:"executors,omitempty"`
	Memory       MemoryConfig `json:"memory,omitempty"`
	Hooks        HooksConfig  `json:"hooks,omitempty"`
	Deploy       DeployConfig `json:"deploy,omitempty"`

	// ProjectRoot is where the config was loaded from; not part of the
	// document.
	ProjectRoot string `json:"-"`
}

// BoardConfig selects and parameterises the board adapter.
type BoardConfig struct {
	Provider string            `json:"provider" validate:"required,oneof=github linear fake"`
	Project  string            `json:"project,omitempty"`
	Owner    string            `json:"owner,omitempty"`
	Columns  map[string]string `json:"columns,omitempty"`
}

// ClaudeConfig bounds the coder subprocess.
type ClaudeConfig struct {
	MaxTurns        int      `json:"maxTurns,omitempty" validate:"omitempty,min=1,max=500"`
	AllowedTools    []string `json:"allowedTools,omitempty"`
	DisallowedTools []string `json:"disallowedTools,omitempty"`
}

// LedgerConfig points at the telemetry service.
type LedgerConfig struct {
	BaseURL string `json:"baseUrl,omitempty" validate:"omitempty,url"`
}

// MemoryConfig toggles the reflection memory file.
type MemoryConfig struct {
	Enabled  bool `json:"enabled,omitempty"`
	MaxLines int  `json:"maxLines,omitempty" validate:"omitempty,min=10,max=10000"`
}

// HooksConfig carries the shell commands run at lifecycle points. Each is
// invoked with ISSUE_NUMBER, PR_NUMBER, BRANCH and REPO in the
// environment.
type HooksConfig struct {
	OnBranchCreate string `json:"onBranchCreate,omitempty"`
	OnBeforePush   string `json:"onBeforePush,omitempty"`
	OnPRCreated    string `json:"onPRCreated,omitempty"`
	OnBeforeMerge  string `json:"onBeforeMerge,omitempty"`
	OnMerged       string `json:"onMerged,omitempty"`
}

// DeployConfig drives the run_deploy executor and release planning. Steps
// are shell command lines run in order; Dependencies maps a repo to the
// repos that must deploy before it.
type DeployConfig struct {
	Steps        []string            `json:"steps,omitempty"`
	Dependencies map[string][]string `json:"dependencies,omitempty"`
}

// Secrets are loaded from the project-root .env file and the process
// environment. None are required; an absent ledger key disables telemetry
// with a warning.
type Secrets struct {
	WarpmetricsKey   string
	GitHubToken      string
	ReviewToken      string
	LinearKey        string
	ChangelogToken   string
	TelegramBotToken string
}

// ConfigDir returns the project's configuration directory.
func (c *Config) ConfigDir() string {
	return filepath.Join(c.ProjectRoot, Dir)
}

// WorkflowPath returns the user workflow override path, or "" when the
// shipped default applies.
func (c *Config) WorkflowPath() string {
	if c.Workflow == "" {
		return ""
	}
	return filepath.Join(c.ConfigDir(), c.Workflow)
}

// PrimaryRepo returns the first configured repo URL.
func (c *Config) PrimaryRepo() string {
	if len(c.Repos) == 0 {
		return ""
	}
	return c.Repos[0]
}

// PollIntervalOrDefault returns the poll interval in seconds.
func (c *Config) PollIntervalOrDefault() int {
	if c.PollInterval <= 0 {
		return DefaultPollIntervalSeconds
	}
	return c.PollInterval
}

// ConcurrencyOrDefault returns the work-act concurrency cap.
func (c *Config) ConcurrencyOrDefault() int {
	if c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

// MaxRevisionsOrDefault returns the revision retry cap.
func (c *Config) MaxRevisionsOrDefault() int {
	if c.MaxRevisions <= 0 {
		return DefaultMaxRevisions
	}
	return c.MaxRevisions
}

// LedgerBaseURL returns the ledger endpoint.
func (c *Config) LedgerBaseURL() string {
	if c.Ledger.BaseURL == "" {
		return DefaultLedgerBaseURL
	}
	return c.Ledger.BaseURL
}

// MemoryMaxLines returns the reflection memory line cap.
func (c *Config) MemoryMaxLines() int {
	if c.Memory.MaxLines <= 0 {
		return DefaultMemoryMaxLines
	}
	return c.Memory.MaxLines
}
