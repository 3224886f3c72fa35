// FILENAME: cmd/mutafuzz/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/mutafuzz/internal/config"
	"github.com/xkilldash9x/mutafuzz/internal/script/builtin"
)

func main() {
	// -- Signal Handling --
	// an interrupt stops the run; results gathered so far are still written
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := Run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Run builds the command tree and executes it with args.
func Run(ctx context.Context, args []string, output io.Writer) error {
	root := newRootCmd(output)
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)
	return root.ExecuteContext(ctx)
}

type globalFlags struct {
	debug   bool
	logFile string
}

func newRootCmd(output io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mutafuzz",
		Short:         "Scriptable HTTP fuzzer with response calibration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Log file (default from campaign, then "+config.DefaultLogFile+")")

	root.AddCommand(newRunCmd(g, output), newScriptsCmd(output))
	return root
}

func newScriptsCmd(output io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List built-in scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range builtin.Registry().Names() {
				fmt.Fprintln(output, name)
			}
			return nil
		},
	}
}

// newLogger configures zap for file output only, so console rows stay readable.
func newLogger(path string, debug bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.OutputPaths = []string{path}
	logConfig.ErrorOutputPaths = []string{path}
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return logConfig.Build()
}
