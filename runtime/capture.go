package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/physlink/adapter"
	"github.com/pithecene-io/physlink/client"
	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/lode"
	"github.com/pithecene-io/physlink/log"
	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/policy"
	"github.com/pithecene-io/physlink/types"
)

// CaptureConfig configures one capture.
type CaptureConfig struct {
	// Policy receives every record. Required.
	Policy policy.Policy
	// FileWriter receives camera pixels as sidecar files. If nil, pixels
	// are carried inline in the camera record.
	FileWriter lode.FileWriter
	// Adapter is notified once the capture ends. Optional.
	Adapter adapter.Adapter
	// Kinds restricts the captured kinds. Empty captures every kind.
	Kinds []types.RecordKind
	// Camera is the camera request. Zero sizes leave sizing to the server.
	Camera types.CameraImageArgs
	// Overlap is the box of the overlap query.
	Overlap types.AABBOverlapArgs
	Await   AwaitConfig
	// Day is the storage partition day. Empty derives it from the start time.
	Day string
	// StoragePath is reported in the completion event.
	StoragePath string
	Collector   *metrics.Collector
	Logger      *log.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

// CaptureResult summarizes a capture.
type CaptureResult struct {
	CaptureID     string           `json:"capture_id"`
	SessionID     string           `json:"session_id"`
	Outcome       *types.Outcome   `json:"outcome"`
	Duration      time.Duration    `json:"duration"`
	RecordsByKind map[string]int64 `json:"records_by_kind"`
	// Failed lists the queries the server answered with a failure status.
	Failed      []string     `json:"failed,omitempty"`
	Files       []string     `json:"files,omitempty"`
	PolicyStats policy.Stats `json:"policy_stats"`
	// Published reports whether the completion event was delivered.
	Published bool `json:"published"`
}

// CameraRecord is the payload of a camera_image record. Pixels are either
// inline or named sidecar files.
type CameraRecord struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// PNGFile holds the color channels. PixelsFile holds all channels in
	// the stream layout.
	PNGFile      string    `json:"png_file,omitempty"`
	PixelsFile   string    `json:"pixels_file,omitempty"`
	RGBA         []byte    `json:"rgba,omitempty"`
	Depth        []float32 `json:"depth,omitempty"`
	Segmentation []int32   `json:"segmentation,omitempty"`
}

// CaptureOrchestrator queries the server through a connected client and
// persists every result as a capture record.
type CaptureOrchestrator struct {
	client    *client.Client
	config    *CaptureConfig
	logger    *log.Logger
	captureID string
	seq       int64
	started   time.Time
	result    *CaptureResult
}

// NewCaptureOrchestrator validates config.
func NewCaptureOrchestrator(c *client.Client, config *CaptureConfig) (*CaptureOrchestrator, error) {
	if c == nil {
		return nil, errors.New("capture requires a client")
	}
	if config.Policy == nil {
		return nil, errors.New("capture requires a policy")
	}
	for _, k := range config.Kinds {
		if !slices.Contains(types.RecordKinds(), k) {
			return nil, fmt.Errorf("unknown record kind %q", k)
		}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &CaptureOrchestrator{client: c, config: config, logger: logger}, nil
}

// errQueryFailed marks a query answered with a failure status. The capture
// goes on without its record.
var errQueryFailed = errors.New("query failed")

var errNotInitialized = errors.New("server not started")

type captureStep struct {
	kind types.RecordKind
	run  func(ctx context.Context) (payload any, count int, err error)
}

// Execute runs the capture end to end:
//  1. Query each requested kind and ingest its record
//  2. Flush the policy
//  3. Publish the completion event
//
// A protocol violation, timeout or rejected submit stops the queries. The
// records already ingested are still flushed.
func (o *CaptureOrchestrator) Execute(ctx context.Context) (*CaptureResult, error) {
	o.started = o.config.Now()
	o.captureID = uuid.NewString()
	o.result = &CaptureResult{
		CaptureID:     o.captureID,
		SessionID:     o.client.SessionID(),
		RecordsByKind: make(map[string]int64),
	}
	o.logger.Info("starting capture", map[string]any{"capture_id": o.captureID})

	outcome := o.query(ctx)

	if err := o.config.Policy.Flush(ctx); err != nil {
		o.logger.Error("capture flush failed", map[string]any{"error": err.Error()})
		if outcome.Status == types.OutcomeSuccess {
			outcome = &types.Outcome{Status: types.OutcomeStorageFailed, Message: err.Error()}
		}
	}

	o.result.Outcome = outcome
	o.result.PolicyStats = o.config.Policy.Stats()
	o.result.Duration = o.config.Now().Sub(o.started)
	o.publish(ctx)

	o.logger.Info("capture finished", map[string]any{
		"capture_id": o.captureID,
		"outcome":    string(outcome.Status),
		"records":    o.result.PolicyStats.TotalRecords,
	})
	return o.result, nil
}

func (o *CaptureOrchestrator) query(ctx context.Context) *types.Outcome {
	for _, step := range o.steps() {
		payload, count, err := step.run(ctx)
		if errors.Is(err, errQueryFailed) {
			o.result.Failed = append(o.result.Failed, err.Error())
			o.logger.Warn("capture query failed", map[string]any{"kind": string(step.kind), "error": err.Error()})
			continue
		}
		if err != nil {
			return captureOutcome(err)
		}
		if err := o.ingest(ctx, step.kind, payload, count); err != nil {
			return &types.Outcome{Status: types.OutcomeStorageFailed, Message: err.Error()}
		}
	}

	if len(o.result.Failed) > 0 {
		return &types.Outcome{
			Status:  types.OutcomeOperationFailed,
			Message: fmt.Sprintf("%d queries failed", len(o.result.Failed)),
		}
	}
	return &types.Outcome{Status: types.OutcomeSuccess, Message: "capture completed"}
}

func captureOutcome(err error) *types.Outcome {
	var se *captureStorageError
	switch {
	case errors.As(err, &se):
		return &types.Outcome{Status: types.OutcomeStorageFailed, Message: err.Error()}
	case errors.Is(err, errNotInitialized):
		return &types.Outcome{Status: types.OutcomeNotInitialized, Message: err.Error()}
	default:
		return DetermineOutcome(nil, err)
	}
}

func (o *CaptureOrchestrator) steps() []captureStep {
	all := []captureStep{
		{types.RecordKindBodies, o.captureBodies},
		{types.RecordKindActualState, o.captureActualStates},
		{types.RecordKindContactPoints, o.captureContacts},
		{types.RecordKindOverlaps, o.captureOverlaps},
		{types.RecordKindVisualShapes, o.captureVisualShapes},
		{types.RecordKindDebugLines, o.captureDebugLines},
		{types.RecordKindCameraImage, o.captureCamera},
	}
	if len(o.config.Kinds) == 0 {
		return all
	}
	return slices.DeleteFunc(all, func(s captureStep) bool {
		return !slices.Contains(o.config.Kinds, s.kind)
	})
}

func (o *CaptureOrchestrator) ingest(ctx context.Context, kind types.RecordKind, payload any, count int) error {
	o.seq++
	rec := &types.CaptureRecord{
		Kind:      kind,
		CaptureID: o.captureID,
		SessionID: o.result.SessionID,
		Seq:       o.seq,
		Ts:        o.config.Now().UTC().Format(time.RFC3339),
		Count:     count,
		Payload:   payload,
	}
	if err := o.config.Policy.Ingest(ctx, rec); err != nil {
		return fmt.Errorf("ingest %s: %w", kind, err)
	}
	o.result.RecordsByKind[string(kind)]++
	return nil
}

// execute runs one command and maps a failure status to errQueryFailed.
func (o *CaptureOrchestrator) execute(ctx context.Context, t types.CommandType, args types.CommandArgs) error {
	st, err := Execute(ctx, o.client, t, args, o.config.Await)
	if err != nil {
		return fmt.Errorf("%s: %w", t, err)
	}
	if st.Type == types.StatusSharedMemoryNotInitialized {
		return fmt.Errorf("%s: %w", t, errNotInitialized)
	}
	if st.Type.Failed() {
		return fmt.Errorf("%w: %s", errQueryFailed, st.Type)
	}
	return nil
}

// BodyIDs returns the ids of the body directory in serial order.
func BodyIDs(c *client.Client) []int {
	n := c.NumBodies()
	ids := make([]int, 0, n)
	for i := range n {
		if id, ok := c.BodyUniqueID(i); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// BodyRecords snapshots the body directory with the joints of every body.
func BodyRecords(c *client.Client) []types.BodyRecord {
	ids := BodyIDs(c)
	out := make([]types.BodyRecord, 0, len(ids))
	for _, id := range ids {
		info, ok := c.BodyInfo(id)
		if !ok {
			continue
		}
		rec := types.BodyRecord{BodyUniqueID: id, BaseName: info.BaseName, Joints: make([]types.JointInfo, 0, info.NumJoints)}
		for j := range info.NumJoints {
			if ji, ok := c.JointInfo(id, j); ok {
				rec.Joints = append(rec.Joints, ji)
			}
		}
		out = append(out, rec)
	}
	return out
}

func (o *CaptureOrchestrator) captureBodies(context.Context) (any, int, error) {
	out := BodyRecords(o.client)
	return out, len(out), nil
}

func (o *CaptureOrchestrator) captureActualStates(ctx context.Context) (any, int, error) {
	ids := BodyIDs(o.client)
	out := make([]types.ActualState, 0, len(ids))
	for _, id := range ids {
		err := o.execute(ctx, types.CommandRequestActualState, types.BodyArgs{BodyUniqueID: int32(id)})
		if errors.Is(err, errQueryFailed) {
			return nil, 0, fmt.Errorf("actual state of body %d: %w", id, err)
		}
		if err != nil {
			return nil, 0, err
		}
		if s, ok := o.client.ActualState(id); ok {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (o *CaptureOrchestrator) captureContacts(ctx context.Context) (any, int, error) {
	args := types.ContactPointArgs{ObjectAIndexFilter: -1, ObjectBIndexFilter: -1}
	if err := o.execute(ctx, types.CommandRequestContactPoints, args); err != nil {
		return nil, 0, err
	}
	points := o.client.ContactPoints()
	return points, len(points), nil
}

func (o *CaptureOrchestrator) captureOverlaps(ctx context.Context) (any, int, error) {
	args := o.config.Overlap
	args.StartingOverlappingObjectIndex = 0
	if err := o.execute(ctx, types.CommandRequestAABBOverlap, args); err != nil {
		return nil, 0, err
	}
	objects := o.client.OverlappingObjects()
	return objects, len(objects), nil
}

// captureVisualShapes queries each body in turn. A body the server has no
// visual information for is skipped.
func (o *CaptureOrchestrator) captureVisualShapes(ctx context.Context) (any, int, error) {
	var out []types.VisualShape
	for _, id := range BodyIDs(o.client) {
		err := o.execute(ctx, types.CommandRequestVisualShapeInfo, types.VisualShapeArgs{BodyUniqueID: int32(id)})
		if errors.Is(err, errQueryFailed) {
			o.logger.Debug("no visual shapes", map[string]any{"body_unique_id": id})
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o.client.VisualShapes()...)
	}
	if out == nil {
		out = []types.VisualShape{}
	}
	return out, len(out), nil
}

func (o *CaptureOrchestrator) captureDebugLines(ctx context.Context) (any, int, error) {
	if err := o.execute(ctx, types.CommandRequestDebugLines, types.DebugLinesArgs{}); err != nil {
		return nil, 0, err
	}
	lines := o.client.DebugLines()
	return lines, lines.Len(), nil
}

func (o *CaptureOrchestrator) captureCamera(ctx context.Context) (any, int, error) {
	args := o.config.Camera
	args.StartPixelIndex = 0
	if err := o.execute(ctx, types.CommandRequestCameraImage, args); err != nil {
		return nil, 0, err
	}
	img := o.client.CameraImage()
	rec := CameraRecord{Width: img.Width, Height: img.Height}
	n := len(img.Depth)

	if o.config.FileWriter == nil {
		rec.RGBA, rec.Depth, rec.Segmentation = img.RGBA, img.Depth, img.Segmentation
		return rec, n, nil
	}

	pngName, pixelsName, err := o.writeCameraFiles(ctx, img)
	if err != nil {
		return nil, 0, err
	}
	rec.PNGFile, rec.PixelsFile = pngName, pixelsName
	return rec, n, nil
}

func (o *CaptureOrchestrator) writeCameraFiles(ctx context.Context, img types.CameraImage) (string, string, error) {
	base := "camera-" + o.captureID

	pixels := make([]byte, len(img.Depth)*ipc.PixelSize)
	if err := ipc.PutPixels(pixels, img.RGBA, img.Depth, img.Segmentation); err != nil {
		return "", "", fmt.Errorf("encode camera pixels: %w", err)
	}
	pixelsName := base + ".pixels"
	if err := o.putFile(ctx, pixelsName, pixels); err != nil {
		return "", "", err
	}

	if !img.Complete() {
		return "", pixelsName, nil
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", "", err
	}
	pngName := base + ".png"
	if err := o.putFile(ctx, pngName, data); err != nil {
		return "", "", err
	}
	return pngName, pixelsName, nil
}

// EncodePNG encodes the color channels of a complete camera image.
func EncodePNG(img types.CameraImage) ([]byte, error) {
	if !img.Complete() {
		return nil, fmt.Errorf("camera image %dx%d has %d color bytes", img.Width, img.Height, len(img.RGBA))
	}
	var buf bytes.Buffer
	err := png.Encode(&buf, &image.NRGBA{
		Pix:    img.RGBA,
		Stride: 4 * img.Width,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("encode camera png: %w", err)
	}
	return buf.Bytes(), nil
}

// putFile failures are storage failures and stop the capture.
func (o *CaptureOrchestrator) putFile(ctx context.Context, name string, data []byte) error {
	if err := o.config.FileWriter.PutFile(ctx, name, data); err != nil {
		o.config.Collector.IncCaptureWriteFailure()
		return &captureStorageError{err: fmt.Errorf("write %s: %w", name, err)}
	}
	o.result.Files = append(o.result.Files, name)
	return nil
}

type captureStorageError struct{ err error }

func (e *captureStorageError) Error() string { return e.err.Error() }
func (e *captureStorageError) Unwrap() error { return e.err }

func (o *CaptureOrchestrator) publish(ctx context.Context) {
	if o.config.Adapter == nil {
		return
	}
	day := o.config.Day
	if day == "" {
		day = lode.DeriveDay(o.started)
	}
	event := &adapter.CaptureCompletedEvent{
		EventType:     adapter.EventTypeCaptureCompleted,
		Version:       types.Version,
		CaptureID:     o.captureID,
		SessionID:     o.result.SessionID,
		ShmKey:        o.client.Key(),
		Day:           day,
		Outcome:       string(o.result.Outcome.Status),
		StoragePath:   o.config.StoragePath,
		Timestamp:     o.config.Now().UTC().Format(time.RFC3339),
		RecordCount:   o.result.PolicyStats.TotalRecords,
		RecordsByKind: o.result.RecordsByKind,
		DurationMs:    o.result.Duration.Milliseconds(),
	}
	if err := o.config.Adapter.Publish(ctx, event); err != nil {
		o.logger.Warn("capture event not published", map[string]any{"error": err.Error()})
		return
	}
	o.result.Published = true
}
