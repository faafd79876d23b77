package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wasmfnd",
		Short:         "Run WebAssembly guest functions behind a unix socket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCommand(),
		newInvokeCommand(),
		newSchemaCommand(),
	)
	return cmd
}
