// wdd copies files and raw disk devices block by block, in the manner of dd.
//
//	wdd if=<in_file> of=<out_file> [bs=N] [count=N] [status=progress]
//	wdd list
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sryze/wdd/drives"
	"github.com/sryze/wdd/progress"
	"github.com/sryze/wdd/screen"
	"github.com/sryze/wdd/transfer"
	"github.com/sryze/wdd/volume"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	code   int
}

// execute runs the command line and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := a.command()
	// a nil slice would make cobra fall back to os.Args
	root.SetArgs(append([]string{}, args...))
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return a.code
	}

	var exit *transfer.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}

	_, _ = fmt.Fprintln(stderr, color.New(color.FgRed, color.Bold).Sprint("wdd:"), err)
	if errors.Is(err, errUsage) {
		_, _ = fmt.Fprintln(stderr, usageText)
	}
	return 1
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "wdd if=<in_file> of=<out_file> [bs=N] [count=N] [status=progress]",
		Short: "Copy files and raw disk devices block by block",
		Long: `Copy a file or raw disk device to another file or device.

A destination device is dismounted and locked for the duration of the copy.
bs accepts K, M and G suffixes. "wdd list" prints the drives of this machine.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.run,
	}

	root.Flags().String("config", "", "path to a TOML config file")
	root.Flags().String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	root.Flags().Bool("log-json", false, "log as json format")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	return root
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	if err := setupConfig(a.v, cmd.Flags()); err != nil {
		return err
	}

	log, err := newLogger(a.stderr, a.v.GetString("log-level"), a.v.GetBool("log-json"))
	if err != nil {
		return err
	}

	ops, err := parseOperands(args, a.v.GetString("bs"), a.v.GetString("status"))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if ops.list {
		code, err := drives.Lister{Stdout: a.stdout, Stderr: a.stderr, Log: log}.List(ctx)
		a.code = code
		return err
	}

	log.Debug().
		Str("if", ops.input).
		Str("of", ops.output).
		Int64("bs", ops.bs).
		Int64("count", ops.count).
		Str("status", ops.status).
		Msg("starting copy")

	if ops.status == statusScreen {
		return a.copyOnScreen(ctx, ops, log)
	}

	opts := transfer.Options{
		Opener:  volume.New(log),
		Display: a.lineDisplay(),
		Stderr:  a.stderr,
		Log:     &log,
	}
	if ops.status == statusNone {
		opts.Display = progress.NewWriterDisplay(io.Discard, false)
	}
	return transfer.Run(ctx, ops.request(), opts)
}

// copyOnScreen runs the copy behind the full-screen view. Diagnostics are
// held back until the terminal is restored. Falls back to line output when
// there is no terminal to take over.
func (a *app) copyOnScreen(ctx context.Context, ops operands, log zerolog.Logger) error {
	diag := &bytes.Buffer{}
	view, err := screen.New(" wdd ", []string{"if=" + ops.input, "of=" + ops.output}, a.stdout)
	if err != nil {
		log.Warn().Err(err).Msg("full-screen view unavailable, using line output")
		return transfer.Run(ctx, ops.request(), transfer.Options{
			Opener:  volume.New(log),
			Display: a.lineDisplay(),
			Stderr:  a.stderr,
			Log:     &log,
		})
	}

	screenLog, _ := newLogger(diag, a.v.GetString("log-level"), a.v.GetBool("log-json"))

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-view.Done():
			cancel(errors.New("stopped by user"))
		case <-ctx.Done():
		}
	}()

	err = transfer.Run(ctx, ops.request(), transfer.Options{
		Opener:  volume.New(screenLog),
		Display: view,
		Stderr:  diag,
		Log:     &screenLog,
	})
	view.Close()
	_, _ = io.Copy(a.stderr, diag)
	return err
}

func (a *app) lineDisplay() progress.Display {
	if f, ok := a.stdout.(*os.File); ok {
		return progress.NewLineDisplay(f)
	}
	return progress.NewWriterDisplay(a.stdout, false)
}

// signalContext is cancelled on SIGINT or SIGTERM so the copy can stop
// between blocks and release the output volume.
func signalContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			cancel(fmt.Errorf("received %s", sig))
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel(nil)
	}
}
