package client

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/types"
)

// chunkFamily describes one chunked transfer: how a chunk lands in its
// cache and how the request for the following chunk is built.
type chunkFamily struct {
	name      string
	completed types.StatusType
	failed    types.StatusType
	request   types.CommandType

	// store copies the chunk described by st from the server stream
	// into the cache.
	store func(c *Client, st *types.Status) error
	// reset empties the cache.
	reset func(c *Client)
	// next builds the request arguments for the chunk at start.
	next func(c *Client, st *types.Status, start int) types.CommandArgs
}

var chunkFamilies = []*chunkFamily{
	{
		name:      "debug_lines",
		completed: types.StatusDebugLinesCompleted,
		failed:    types.StatusDebugLinesOverflowFailed,
		request:   types.CommandRequestDebugLines,
		store:     storeDebugLines,
		reset:     func(c *Client) { c.caches.DebugLines.Reset() },
		next: func(c *Client, _ *types.Status, start int) types.CommandArgs {
			a, _ := lastArgs[types.DebugLinesArgs](c)
			a.StartingLineIndex = int32(start)
			return a
		},
	},
	{
		name:      "camera_image",
		completed: types.StatusCameraImageCompleted,
		failed:    types.StatusCameraImageFailed,
		request:   types.CommandRequestCameraImage,
		store:     storePixels,
		reset:     func(c *Client) { c.caches.Camera.Reset() },
		next: func(c *Client, _ *types.Status, start int) types.CommandArgs {
			a, _ := lastArgs[types.CameraImageArgs](c)
			a.StartPixelIndex = int32(start)
			return a
		},
	},
	{
		name:      "contact_points",
		completed: types.StatusContactPointInformationCompleted,
		failed:    types.StatusContactPointInformationFailed,
		request:   types.CommandRequestContactPoints,
		store:     storeContactPoints,
		reset:     func(c *Client) { c.caches.Contacts.Reset() },
		next: func(c *Client, _ *types.Status, start int) types.CommandArgs {
			a, ok := lastArgs[types.ContactPointArgs](c)
			if !ok {
				a.ObjectAIndexFilter, a.ObjectBIndexFilter = -1, -1
			}
			a.StartingContactPointIndex = int32(start)
			return a
		},
	},
	{
		name:      "overlapping_objects",
		completed: types.StatusAABBOverlapCompleted,
		failed:    types.StatusAABBOverlapFailed,
		request:   types.CommandRequestAABBOverlap,
		store:     storeOverlaps,
		reset:     func(c *Client) { c.caches.Overlaps.Reset() },
		next: func(c *Client, _ *types.Status, start int) types.CommandArgs {
			a, _ := lastArgs[types.AABBOverlapArgs](c)
			a.StartingOverlappingObjectIndex = int32(start)
			return a
		},
	},
	{
		name:      "visual_shapes",
		completed: types.StatusVisualShapeInfoCompleted,
		failed:    types.StatusVisualShapeInfoFailed,
		request:   types.CommandRequestVisualShapeInfo,
		store:     storeVisualShapes,
		reset:     func(c *Client) { c.caches.VisualShapes.Reset() },
		next: func(_ *Client, st *types.Status, start int) types.CommandArgs {
			a := st.Args.(types.VisualShapeChunkArgs)
			return types.VisualShapeArgs{
				BodyUniqueID:             a.BodyUniqueID,
				StartingVisualShapeIndex: int32(start),
			}
		},
	},
}

// lastArgs returns the arguments of the last published command when they
// have type T.
func lastArgs[T types.CommandArgs](c *Client) (T, bool) {
	a, ok := c.lastCommand.Args.(T)
	return a, ok
}

var errNoChunkArgs = errors.New("status carries no chunk description")

// onChunk stores a chunk and continues the transfer while the server
// reports remaining items and this chunk made progress. A chunk the
// cache cannot accept ends the transfer as the family's failure.
func (f *chunkFamily) onChunk(c *Client, st *types.Status) *followUp {
	args, ok := st.Args.(types.ChunkArgs)
	if !ok {
		f.reject(c, st, errNoChunkArgs)
		return nil
	}
	if err := f.store(c, st); err != nil {
		f.reject(c, st, err)
		return nil
	}

	start, copied, remaining := args.Chunk()
	c.logger.Debug("received chunk", map[string]any{
		"family": f.name, "start": start, "copied": copied, "remaining": remaining,
	})
	if remaining > 0 && copied > 0 {
		c.metrics.IncContinuation()
		return &followUp{cmd: f.request, args: f.next(c, st, start+copied)}
	}
	return nil
}

func (f *chunkFamily) onFailed(c *Client, st *types.Status) *followUp {
	f.reset(c)
	c.logger.Warn("server reported failure", map[string]any{"status": st.Type.String(), "family": f.name})
	c.metrics.IncOperationFailure(st.Type.String())
	return nil
}

func (f *chunkFamily) reject(c *Client, st *types.Status, err error) {
	f.reset(c)
	c.lastStatus.Type = f.failed
	c.logger.Warn("rejected chunk", map[string]any{
		"status": st.Type.String(), "family": f.name, "error": err.Error(),
	})
	c.metrics.IncRejectedChunk()
	c.metrics.IncOperationFailure(f.failed.String())
}

func storeDebugLines(c *Client, st *types.Status) error {
	a := st.Args.(types.DebugLinesChunkArgs)
	from, to, color, err := ipc.DebugLines(c.block.ServerStream(), int(a.NumDebugLines))
	if err != nil {
		return err
	}
	return c.caches.DebugLines.Put(int(a.StartingLineIndex), from, to, color, int(a.NumRemainingDebugLines))
}

func storePixels(c *Client, st *types.Status) error {
	a := st.Args.(types.PixelChunkArgs)
	if a.ImageWidth < 0 || a.ImageHeight < 0 {
		return fmt.Errorf("negative image size %dx%d", a.ImageWidth, a.ImageHeight)
	}
	rgba, depth, seg, err := ipc.Pixels(c.block.ServerStream(), int(a.NumPixelsCopied))
	if err != nil {
		return err
	}
	return c.caches.Camera.Put(int(a.StartingPixelIndex), rgba, depth, seg,
		int(a.NumRemainingPixels), int(a.ImageWidth), int(a.ImageHeight))
}

func storeContactPoints(c *Client, st *types.Status) error {
	a := st.Args.(types.ContactPointChunkArgs)
	points, err := ipc.ContactPoints(c.block.ServerStream(), int(a.NumContactPointsCopied))
	if err != nil {
		return err
	}
	return c.caches.Contacts.Put(int(a.StartingContactPointIndex), points, int(a.NumRemainingContactPoints))
}

func storeOverlaps(c *Client, st *types.Status) error {
	a := st.Args.(types.OverlapChunkArgs)
	objects, err := ipc.OverlappingObjects(c.block.ServerStream(), int(a.NumOverlappingObjectsCopied))
	if err != nil {
		return err
	}
	return c.caches.Overlaps.Put(int(a.StartingOverlappingObjectIndex), objects, int(a.NumRemainingOverlappingObjects))
}

func storeVisualShapes(c *Client, st *types.Status) error {
	a := st.Args.(types.VisualShapeChunkArgs)
	shapes, err := ipc.VisualShapes(c.block.ServerStream(), int(a.NumVisualShapesCopied))
	if err != nil {
		return err
	}
	return c.caches.VisualShapes.Put(int(a.StartingVisualShapeIndex), shapes, int(a.NumRemainingVisualShapes))
}
