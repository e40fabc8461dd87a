// Package main provides the physlink CLI entrypoint.
//
// Every command except version attaches to the shared memory block of a
// running physics server, or to an in-process demo server with --demo.
//
// Usage:
//
//	physlink [global options] <command> [options]
//
// Exit codes:
//   - 0: command completed
//   - 1: server reported a failure status
//   - 2: protocol violation
//   - 3: invalid input
//   - 4: no server behind the key
//   - 5: timed out waiting for a status
//   - 6: capture storage failed
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/physlink/cli/cmd"
	"github.com/pithecene-io/physlink/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "physlink",
		Usage:          "Shared memory client for physics simulation servers",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands:       cmd.Commands(commit),
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var w io.Writer = os.Stderr
	if c != nil && c.App != nil && c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	os.Exit(code)
}

// exitStatus returns the process exit code for err and the message to
// print, if any.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
