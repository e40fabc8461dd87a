package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/physlink/cli/render"
	"github.com/pithecene-io/physlink/cli/tui"
	"github.com/pithecene-io/physlink/runtime"
	"github.com/pithecene-io/physlink/types"
)

// ProbeView is the result of the probe command.
type ProbeView struct {
	Key       int    `json:"shm_key"`
	Transport string `json:"transport"`
	SessionID string `json:"session_id"`
	Demo      bool   `json:"demo"`
	Connected bool   `json:"connected"`
}

// StatusView reports the status that completed a command.
type StatusView struct {
	Command  string `json:"command"`
	Status   string `json:"status"`
	Sequence uint32 `json:"sequence"`
	// Count is the number of commands submitted.
	Count int `json:"count,omitempty"`
}

// ProbeCommand attaches to the block without exchanging commands.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:   "probe",
		Usage:  "Check that a server owns the shared memory block",
		Flags:  ReadOnlyFlags(),
		Action: sessionAction("probe", tui.ViewSession, probeAction),
	}
}

func probeAction(_ context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	outcome := &types.Outcome{Status: types.OutcomeSuccess, Message: "connected"}
	if c.Bool("tui") {
		return outcome, r.RenderTUI(tui.ViewSession, s.collector.Snapshot())
	}
	return outcome, r.Render(ProbeView{
		Key:       s.key,
		Transport: s.transport,
		SessionID: s.client.SessionID(),
		Demo:      s.demo,
		Connected: s.client.IsConnected(),
	})
}

// StepCommand advances the simulation.
func StepCommand() *cli.Command {
	return &cli.Command{
		Name:  "step",
		Usage: "Step the simulation forward",
		Flags: SceneFlags(&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Number of steps",
			Value:   1,
		}),
		Action: sessionAction("step", "", stepAction),
	}
}

func stepAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	count := c.Int("count")
	if count < 1 {
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: fmt.Sprintf("--count must be >= 1, got %d", count)}, nil
	}

	var st *types.Status
	var outcome *types.Outcome
	for range count {
		st, outcome = s.execute(ctx, types.CommandStepForwardSimulation, nil)
		if outcome.Status != types.OutcomeSuccess {
			return outcome, nil
		}
	}
	return outcome, r.Render(statusView(types.CommandStepForwardSimulation, st, count))
}

// ResetCommand removes every body from the simulation.
func ResetCommand() *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Reset the simulation",
		Flags:  ReadOnlyFlags(),
		Action: sessionAction("reset", "", resetAction),
	}
}

func resetAction(ctx context.Context, _ *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	st, outcome := s.execute(ctx, types.CommandResetSimulation, nil)
	if outcome.Status != types.OutcomeSuccess {
		return outcome, nil
	}
	return outcome, r.Render(statusView(types.CommandResetSimulation, st, 0))
}

func statusView(t types.CommandType, st *types.Status, count int) StatusView {
	return StatusView{Command: t.String(), Status: st.Type.String(), Sequence: st.Sequence, Count: count}
}

// LoadCommand loads scene files and lists the bodies they created.
func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Load scene files (.urdf, .sdf, .xml, .bullet)",
		ArgsUsage: "FILE...",
		Flags:     ReadOnlyFlags(),
		Action:    sessionAction("load", tui.ViewBodies, loadAction),
	}
}

func loadAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	files := c.Args().Slice()
	if len(files) == 0 {
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: "load requires at least one file"}, nil
	}
	for _, file := range files {
		if outcome := s.loadScene(ctx, file); outcome.Status != types.OutcomeSuccess {
			return outcome, nil
		}
	}
	return success("scene loaded"), show(c, r, tui.ViewBodies, runtime.BodyRecords(s.client))
}

// BodiesCommand lists the body directory with joints. The directory only
// holds bodies loaded by this session, so it is usually combined with --load.
func BodiesCommand() *cli.Command {
	return &cli.Command{
		Name:   "bodies",
		Usage:  "List loaded bodies and their joints",
		Flags:  SceneFlags(),
		Action: sessionAction("bodies", tui.ViewBodies, bodiesAction),
	}
}

func bodiesAction(_ context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	return success("bodies listed"), show(c, r, tui.ViewBodies, runtime.BodyRecords(s.client))
}

func success(msg string) *types.Outcome {
	return &types.Outcome{Status: types.OutcomeSuccess, Message: msg}
}
