package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

func writeConfig(t *testing.T, root, contents string) {
	t.Helper()
	dir := filepath.Join(root, Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0o644))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, `{
  "board": {"provider": "github", "project": "Roadmap", "owner": "acme"},
  "repos": ["https://github.com/acme/api.git"],
  "pollInterval": 10,
  "concurrency": 3,
  "memory": {"enabled": true, "maxLines": 50}
}`)

	cfg, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "github", cfg.Board.Provider)
	require.Equal(t, root, cfg.ProjectRoot)
	require.Equal(t, 10, cfg.PollIntervalOrDefault())
	require.Equal(t, 3, cfg.ConcurrencyOrDefault())
	require.Equal(t, 50, cfg.MemoryMaxLines())
	require.Equal(t, "https://github.com/acme/api.git", cfg.PrimaryRepo())
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
		missing  bool
		wantType any
	}{
		{
			name:     "missing file",
			missing:  true,
			wantType: &warperrors.ParseError{},
		},
		{
			name:     "malformed json",
			contents: `{"board":`,
			wantType: &warperrors.ParseError{},
		},
		{
			name:     "unknown provider",
			contents: `{"board": {"provider": "jira"}, "repos": ["https://github.com/acme/api"]}`,
			wantType: &warperrors.ValidationError{},
		},
		{
			name:     "no repos",
			contents: `{"board": {"provider": "github"}, "repos": []}`,
			wantType: &warperrors.ValidationError{},
		},
		{
			name:     "repo is not a url",
			contents: `{"board": {"provider": "github"}, "repos": ["not a url"]}`,
			wantType: &warperrors.ValidationError{},
		},
		{
			name:     "poll interval out of range",
			contents: `{"board": {"provider": "github"}, "repos": ["https://github.com/acme/api"], "pollInterval": 9000}`,
			wantType: &warperrors.ValidationError{},
		},
		{
			name:     "custom executor modules rejected",
			contents: `{"board": {"provider": "github"}, "repos": ["https://github.com/acme/api"], "executors": ["./my-executor"]}`,
			wantType: &warperrors.ValidationError{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			if !tc.missing {
				writeConfig(t, root, tc.contents)
			}

			_, err := Load(root)
			require.Error(t, err)
			switch tc.wantType.(type) {
			case *warperrors.ParseError:
				var parseErr *warperrors.ParseError
				require.ErrorAs(t, err, &parseErr)
			case *warperrors.ValidationError:
				var validationErr *warperrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
			}
		})
	}
}

func TestValidateRejectsExecutorModules(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Board:     BoardConfig{Provider: "fake"},
		Repos:     []string{"https://github.com/acme/api"},
		Executors: []string{"./my-executor"},
	}
	err := Validate(cfg)
	require.ErrorContains(t, err, "compiled into this binary")
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.Equal(t, DefaultPollIntervalSeconds, cfg.PollIntervalOrDefault())
	require.Equal(t, DefaultConcurrency, cfg.ConcurrencyOrDefault())
	require.Equal(t, DefaultMaxRevisions, cfg.MaxRevisionsOrDefault())
	require.Equal(t, DefaultLedgerBaseURL, cfg.LedgerBaseURL())
	require.Equal(t, DefaultMemoryMaxLines, cfg.MemoryMaxLines())
	require.Empty(t, cfg.WorkflowPath())
	require.Empty(t, cfg.PrimaryRepo())
}

func TestWorkflowPath(t *testing.T) {
	t.Parallel()

	cfg := &Config{ProjectRoot: "/proj", Workflow: "custom.yaml"}
	require.Equal(t, filepath.Join("/proj", Dir, "custom.yaml"), cfg.WorkflowPath())
}

func TestLoadSecrets(t *testing.T) {
	root := t.TempDir()
	env := "WARP_CODER_WARPMETRICS_KEY=wm_test\nWARP_CODER_GITHUB_TOKEN=gh_test\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0o600))
	t.Setenv("WARP_CODER_WARPMETRICS_KEY", "")
	t.Setenv("WARP_CODER_GITHUB_TOKEN", "")
	os.Unsetenv("WARP_CODER_WARPMETRICS_KEY")
	os.Unsetenv("WARP_CODER_GITHUB_TOKEN")

	secrets, err := LoadSecrets(root)
	require.NoError(t, err)
	require.Equal(t, "wm_test", secrets.WarpmetricsKey)
	require.Equal(t, "gh_test", secrets.GitHubToken)
}

func TestLoadSecretsMissingEnvFile(t *testing.T) {
	secrets, err := LoadSecrets(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, secrets)
}
