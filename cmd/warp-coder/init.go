package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/warpmetrics/warp-coder/internal/config"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create .warp-coder/config.json and .env interactively",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			root := flags.projectRoot
			if root == "" {
				var err error
				if root, err = os.Getwd(); err != nil {
					return err
				}
			}

			configPath := filepath.Join(root, config.Dir, config.FileName)
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}

			reader := bufio.NewReader(os.Stdin)

			provider, err := promptLine(reader, "Board provider (github/linear): ")
			if err != nil {
				return err
			}
			repoList, err := promptLine(reader, "Repo clone URLs (comma separated): ")
			if err != nil {
				return err
			}
			var repos []string
			for _, repo := range strings.Split(repoList, ",") {
				if trimmed := strings.TrimSpace(repo); trimmed != "" {
					repos = append(repos, trimmed)
				}
			}

			cfg := &config.Config{
				Board:       config.BoardConfig{Provider: provider},
				Repos:       repos,
				ProjectRoot: root,
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			ledgerKey, err := promptSecret("Warpmetrics API key (empty disables telemetry): ")
			if err != nil {
				return err
			}
			githubToken, err := promptSecret("GitHub token (empty skips pushes): ")
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath, append(data, '\n'), 0o644); err != nil {
				return err
			}

			var env strings.Builder
			if ledgerKey != "" {
				fmt.Fprintf(&env, "WARP_CODER_WARPMETRICS_KEY=%s\n", ledgerKey)
			}
			if githubToken != "" {
				fmt.Fprintf(&env, "WARP_CODER_GITHUB_TOKEN=%s\n", githubToken)
			}
			if env.Len() > 0 {
				envPath := filepath.Join(root, ".env")
				if err := os.WriteFile(envPath, []byte(env.String()), 0o600); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", envPath)
			}

			fmt.Printf("wrote %s\n", configPath)
			fmt.Println("run `warp-coder watch` to start the daemon")
			return nil
		},
	}
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo so tokens never land in scrollback.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
