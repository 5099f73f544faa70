package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warpmetrics/warp-coder/internal/coder"
)

func newCompactCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Summarize the reflection memory below its line cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			store := a.clients.Memory
			if !store.Enabled() {
				return fmt.Errorf("memory is disabled in config")
			}

			content, err := store.Read()
			if err != nil {
				return err
			}
			if strings.TrimSpace(content) == "" {
				a.printf("memory is empty, nothing to compact")
				return nil
			}

			maxLines := a.cfg.MemoryMaxLines()
			prompt := fmt.Sprintf(
				"Compact these project notes to at most %d lines, keeping the most "+
					"useful insights. Respond with the compacted notes only.\n\n%s",
				maxLines/2, content)

			res, err := a.clients.Coder.OneShot(cmd.Context(), coder.Request{Prompt: prompt})
			if err != nil {
				return err
			}
			compacted := strings.TrimSpace(res.Text)
			if compacted == "" {
				return fmt.Errorf("coder returned an empty summary, memory unchanged")
			}

			if err := store.Replace(compacted + "\n"); err != nil {
				return err
			}

			count, err := store.LineCount()
			if err != nil {
				return err
			}
			a.printf("memory compacted to %d lines", count)
			return nil
		},
	}
}
