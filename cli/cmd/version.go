package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/physlink/cli/render"
	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/runtime"
	"github.com/pithecene-io/physlink/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	// Magic is the block layout version this client speaks.
	Magic int32 `json:"magic"`
}

// VersionCommand returns the version command. It never attaches to
// shared memory.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", runtime.ExitCodeInvalidInput)
		}

		return r.Render(VersionResponse{
			Version: types.Version,
			Commit:  commit,
			Magic:   ipc.MagicNumber,
		})
	}
}

// Commands returns every command of the physlink binary.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		ProbeCommand(),
		StepCommand(),
		ResetCommand(),
		LoadCommand(),
		BodiesCommand(),
		CameraCommand(),
		ContactsCommand(),
		OverlapCommand(),
		ShapesCommand(),
		LinesCommand(),
		CaptureCommand(),
		VersionCommand(commit),
	}
}
