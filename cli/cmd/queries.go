package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/physlink/cli/render"
	"github.com/pithecene-io/physlink/runtime"
	"github.com/pithecene-io/physlink/types"
)

// CameraView summarizes a rendered camera image.
type CameraView struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Pixels int `json:"pixels"`
	// Bodies counts the distinct body ids in the segmentation mask.
	Bodies int    `json:"bodies"`
	PNG    string `json:"png,omitempty"`
}

// LineRow is one debug line.
type LineRow struct {
	Index int          `json:"index"`
	From  types.Float3 `json:"from"`
	To    types.Float3 `json:"to"`
	Color types.Float3 `json:"color"`
}

// CameraCommand renders the camera and optionally saves it as PNG.
func CameraCommand() *cli.Command {
	return &cli.Command{
		Name:  "camera",
		Usage: "Render a camera image",
		Flags: SceneFlags(
			&cli.IntFlag{Name: "width", Usage: "Image width in pixels (server default when 0)"},
			&cli.IntFlag{Name: "height", Usage: "Image height in pixels (server default when 0)"},
			&cli.StringFlag{Name: "png", Usage: "Write the color channels to this PNG file"},
		),
		Action: sessionAction("camera", "", cameraAction),
	}
}

func cameraAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	args := types.CameraImageArgs{PixelWidth: int32(c.Int("width")), PixelHeight: int32(c.Int("height"))}
	if args.PixelWidth < 0 || args.PixelHeight < 0 {
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: "--width and --height must not be negative"}, nil
	}
	if _, outcome := s.execute(ctx, types.CommandRequestCameraImage, args); outcome.Status != types.OutcomeSuccess {
		return outcome, nil
	}

	img := s.client.CameraImage()
	view := CameraView{Width: img.Width, Height: img.Height, Pixels: len(img.Depth)}
	seen := make(map[int32]struct{})
	for _, id := range img.Segmentation {
		if id >= 0 {
			seen[id] = struct{}{}
		}
	}
	view.Bodies = len(seen)

	if path := c.String("png"); path != "" {
		data, err := runtime.EncodePNG(img)
		if err != nil {
			return &types.Outcome{Status: types.OutcomeOperationFailed, Message: err.Error()}, nil
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return &types.Outcome{Status: types.OutcomeStorageFailed, Message: err.Error()}, nil
		}
		view.PNG = path
	}
	return success("camera image rendered"), r.Render(view)
}

// ContactsCommand lists contact points, optionally filtered by body.
func ContactsCommand() *cli.Command {
	return &cli.Command{
		Name:  "contacts",
		Usage: "List contact points",
		Flags: SceneFlags(
			&cli.IntFlag{Name: "body-a", Usage: "Only contacts whose first body is this id (-1 for any)", Value: -1},
			&cli.IntFlag{Name: "body-b", Usage: "Only contacts whose second body is this id (-1 for any)", Value: -1},
		),
		Action: sessionAction("contacts", "", contactsAction),
	}
}

func contactsAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	args := types.ContactPointArgs{
		ObjectAIndexFilter: int32(c.Int("body-a")),
		ObjectBIndexFilter: int32(c.Int("body-b")),
	}
	if _, outcome := s.execute(ctx, types.CommandRequestContactPoints, args); outcome.Status != types.OutcomeSuccess {
		return outcome, nil
	}
	return success("contact points listed"), r.Render(s.client.ContactPoints())
}

// OverlapCommand lists the links inside an axis aligned box.
func OverlapCommand() *cli.Command {
	return &cli.Command{
		Name:  "overlap",
		Usage: "List objects overlapping an axis aligned bounding box",
		Flags: SceneFlags(
			&cli.Float64SliceFlag{Name: "min", Usage: "Box minimum corner as x,y,z", Required: true},
			&cli.Float64SliceFlag{Name: "max", Usage: "Box maximum corner as x,y,z", Required: true},
		),
		Action: sessionAction("overlap", "", overlapAction),
	}
}

func overlapAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	lo, err := vec3("min", c.Float64Slice("min"))
	if err != nil {
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: err.Error()}, nil
	}
	hi, err := vec3("max", c.Float64Slice("max"))
	if err != nil {
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: err.Error()}, nil
	}
	args := types.AABBOverlapArgs{AABBMin: lo, AABBMax: hi}
	if _, outcome := s.execute(ctx, types.CommandRequestAABBOverlap, args); outcome.Status != types.OutcomeSuccess {
		return outcome, nil
	}
	return success("overlapping objects listed"), r.Render(s.client.OverlappingObjects())
}

func vec3(name string, v []float64) ([3]float64, error) {
	if len(v) != 3 {
		return [3]float64{}, fmt.Errorf("--%s needs 3 values, got %d", name, len(v))
	}
	return [3]float64{v[0], v[1], v[2]}, nil
}

// ShapesCommand lists the visual shapes of one body.
func ShapesCommand() *cli.Command {
	return &cli.Command{
		Name:  "shapes",
		Usage: "List the visual shapes of a body",
		Flags: SceneFlags(
			&cli.IntFlag{Name: "body", Usage: "Body unique id", Required: true},
		),
		Action: sessionAction("shapes", "", shapesAction),
	}
}

func shapesAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	args := types.VisualShapeArgs{BodyUniqueID: int32(c.Int("body"))}
	if _, outcome := s.execute(ctx, types.CommandRequestVisualShapeInfo, args); outcome.Status != types.OutcomeSuccess {
		return outcome, nil
	}
	return success("visual shapes listed"), r.Render(s.client.VisualShapes())
}

// LinesCommand lists the debug lines.
func LinesCommand() *cli.Command {
	return &cli.Command{
		Name:  "lines",
		Usage: "List debug lines",
		Flags: SceneFlags(
			&cli.IntFlag{Name: "mode", Usage: "Debug draw mode"},
		),
		Action: sessionAction("lines", "", linesAction),
	}
}

func linesAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	args := types.DebugLinesArgs{DebugMode: int32(c.Int("mode"))}
	if _, outcome := s.execute(ctx, types.CommandRequestDebugLines, args); outcome.Status != types.OutcomeSuccess {
		return outcome, nil
	}
	lines := s.client.DebugLines()
	rows := make([]LineRow, lines.Len())
	for i := range rows {
		rows[i] = LineRow{Index: i, From: lines.From[i], To: lines.To[i], Color: lines.Color[i]}
	}
	return success("debug lines listed"), r.Render(rows)
}
