package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wasmfn/wasmfn/domain/entities"
	"github.com/wasmfn/wasmfn/transport"
	"github.com/wasmfn/wasmfn/wireformat"
)

type invokeOptions struct {
	socket     string
	function   string
	id         string
	timeout    time.Duration
	bufferSize int
}

func newInvokeCommand() *cobra.Command {
	opts := invokeOptions{}

	cmd := &cobra.Command{
		Use:   "invoke [OPTIONS] PAYLOAD",
		Short: "Send one invocation to a running daemon and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd.Context(), cmd, opts, []byte(args[0]))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.socket, "socket", "s", "/run/wasmfn/wasmfn.sock", "Daemon socket")
	flags.StringVarP(&opts.function, "function", "f", entities.FunctionText, "Guest function to call")
	flags.StringVar(&opts.id, "id", "", "Invocation ID (default: generated by the daemon)")
	flags.DurationVar(&opts.timeout, "timeout", time.Minute, "How long to wait for the response")
	flags.IntVar(&opts.bufferSize, "buffer-size", transport.DefaultBufferSize, "Response buffer size in bytes")
	return cmd
}

func runInvoke(ctx context.Context, cmd *cobra.Command, opts invokeOptions, payload []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	client, err := transport.Dial(ctx, opts.socket, opts.bufferSize)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Invoke(ctx, wireformat.InvocationRequest{
		ID:       opts.id,
		Function: opts.function,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	if resp.Failed() {
		return fmt.Errorf("invocation %s failed: %w", resp.ID, resp.Error)
	}

	out := cmd.OutOrStdout()
	if _, err := out.Write(resp.Output); err != nil {
		return err
	}
	if opts.function == entities.FunctionText {
		_, err = fmt.Fprintln(out)
	}
	return err
}
