// Package cmd provides the commands of the physlink binary.
package cmd

import "github.com/urfave/cli/v2"

// Output flags shared by every command.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only bodies, capture and probe have an interactive view.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (bodies, capture, probe only)",
	}
)

// Session flags, set once on the app and read through the context lineage.
var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./physlink.yaml when present)",
		EnvVars: []string{"PHYSLINK_CONFIG"},
	}

	KeyFlag = &cli.IntFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Shared memory key",
		EnvVars: []string{"PHYSLINK_SHM_KEY"},
	}

	TransportFlag = &cli.StringFlag{
		Name:  "transport",
		Usage: "Shared memory transport: sysv or memory",
	}

	DemoFlag = &cli.BoolFlag{
		Name:  "demo",
		Usage: "Run against an in-process demo server instead of a real one",
	}

	TimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Wait at most this long for each server status",
	}

	// VerboseFlag has no short alias; -v is the app's version flag.
	VerboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log protocol diagnostics to stderr",
	}

	ReportFlag = &cli.StringFlag{
		Name:  "report",
		Usage: "Write a JSON session report to this path (- for stderr)",
	}
)

// GlobalFlags returns the flags of the app itself.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		KeyFlag,
		TransportFlag,
		DemoFlag,
		TimeoutFlag,
		VerboseFlag,
		ReportFlag,
	}
}

// ReadOnlyFlags returns the output flags for every command.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// SceneFlags returns ReadOnlyFlags plus --load, which loads scene files
// before the command runs.
func SceneFlags(extra ...cli.Flag) []cli.Flag {
	flags := append(ReadOnlyFlags(), &cli.StringSliceFlag{
		Name:    "load",
		Aliases: []string{"l"},
		Usage:   "Load a scene file (.urdf, .sdf, .xml, .bullet) before querying; repeatable",
	})
	return append(flags, extra...)
}
