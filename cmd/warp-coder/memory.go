package main

import (
	"github.com/spf13/cobra"
)

func newMemoryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Print the reflection memory file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}

			content, err := a.clients.Memory.Read()
			if err != nil {
				return err
			}
			if content == "" {
				a.printf("memory is empty")
				return nil
			}
			a.printf("%s", content)
			return nil
		},
	}
}
