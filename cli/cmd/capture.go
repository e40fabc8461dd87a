package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/physlink/adapter"
	"github.com/pithecene-io/physlink/adapter/redis"
	"github.com/pithecene-io/physlink/adapter/webhook"
	"github.com/pithecene-io/physlink/cli/config"
	"github.com/pithecene-io/physlink/cli/render"
	"github.com/pithecene-io/physlink/cli/tui"
	"github.com/pithecene-io/physlink/lode"
	"github.com/pithecene-io/physlink/policy"
	"github.com/pithecene-io/physlink/runtime"
	"github.com/pithecene-io/physlink/types"
)

// defaultDataset is the lode dataset used when the config names none.
const defaultDataset = "physlink"

// CaptureCommand snapshots every result family into the capture dataset.
func CaptureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Query every result family and persist the snapshots",
		Flags: SceneFlags(
			&cli.StringSliceFlag{Name: "kind", Usage: "Record kinds to capture (default all); repeatable"},
			&cli.IntFlag{Name: "width", Usage: "Camera width in pixels (server default when 0)"},
			&cli.IntFlag{Name: "height", Usage: "Camera height in pixels (server default when 0)"},
			&cli.Float64SliceFlag{Name: "min", Usage: "Overlap box minimum corner as x,y,z"},
			&cli.Float64SliceFlag{Name: "max", Usage: "Overlap box maximum corner as x,y,z"},
			&cli.StringFlag{Name: "policy", Usage: "Ingestion policy: strict or buffered"},
			&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3"},
			&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)"},
			&cli.BoolFlag{Name: "checksum", Usage: "Add an MD5 of each payload to the stored record"},
		),
		Action: sessionAction("capture", tui.ViewCapture, captureAction),
	}
}

func captureAction(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error) {
	storage := s.cfg.Storage
	if c.IsSet("storage-backend") {
		storage.Backend = c.String("storage-backend")
	}
	if c.IsSet("storage-path") {
		storage.Path = c.String("storage-path")
	}
	pc := s.cfg.Policy
	if c.IsSet("policy") {
		pc.Name = c.String("policy")
	}

	cfg := &runtime.CaptureConfig{
		Camera:    types.CameraImageArgs{PixelWidth: int32(c.Int("width")), PixelHeight: int32(c.Int("height"))},
		Await:     s.await,
		Day:       lode.DeriveDay(time.Now()),
		Collector: s.collector,
		Logger:    s.logger,
	}
	for _, k := range c.StringSlice("kind") {
		cfg.Kinds = append(cfg.Kinds, types.RecordKind(k))
	}
	if c.IsSet("min") || c.IsSet("max") {
		lo, err := vec3("min", c.Float64Slice("min"))
		if err != nil {
			return invalid(err), nil
		}
		hi, err := vec3("max", c.Float64Slice("max"))
		if err != nil {
			return invalid(err), nil
		}
		cfg.Overlap = types.AABBOverlapArgs{AABBMin: lo, AABBMax: hi}
	}

	sink, files, path, err := buildStorage(storage, s, cfg.Day, c.Bool("checksum"))
	if err != nil {
		return &types.Outcome{Status: types.OutcomeStorageFailed, Message: err.Error()}, nil
	}
	cfg.StoragePath, cfg.FileWriter = path, files

	pol, err := buildPolicy(pc, sink, s)
	if err != nil {
		_ = sink.Close()
		return invalid(err), nil
	}
	defer func() { _ = pol.Close() }()
	cfg.Policy = pol

	pub, err := buildAdapter(s.cfg.Adapter)
	if err != nil {
		return invalid(err), nil
	}
	if pub != nil {
		defer func() { _ = pub.Close() }()
		cfg.Adapter = pub
	}

	orch, err := runtime.NewCaptureOrchestrator(s.client, cfg)
	if err != nil {
		return invalid(err), nil
	}
	res, err := orch.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return res.Outcome, show(c, r, tui.ViewCapture, res)
}

func invalid(err error) *types.Outcome {
	return &types.Outcome{Status: types.OutcomeInvalidInput, Message: err.Error()}
}

// buildStorage opens the capture dataset. Without a path the records go to
// process memory under --demo and nowhere otherwise.
func buildStorage(sc config.StorageConfig, s *session, day string, checksum bool) (policy.Sink, lode.FileWriter, string, error) {
	lc := lode.Config{
		Dataset:   sc.Dataset,
		SessionID: s.client.SessionID(),
		Day:       day,
		Source:    s.transport,
		Checksum:  checksum,
	}
	if lc.Dataset == "" {
		lc.Dataset = defaultDataset
	}

	var (
		client *lode.LodeClient
		path   string
		err    error
	)
	switch {
	case sc.Path == "" && s.demo:
		client, err = lode.NewLodeMemoryClient(lc)
		path = "memory://" + lc.Dataset
	case sc.Path == "":
		return policy.NewStubSink(), nil, "", nil
	case sc.Backend == "fs" || sc.Backend == "":
		client, err = lode.NewLodeClient(lc, sc.Path)
		path, _ = filepath.Abs(sc.Path)
	case sc.Backend == "s3":
		bucket, prefix := lode.ParseS3Path(sc.Path)
		client, err = lode.NewLodeS3Client(lc, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.Region,
			Endpoint:     sc.Endpoint,
			UsePathStyle: sc.S3PathStyle,
		})
		path = "s3://" + sc.Path
	default:
		return nil, nil, "", fmt.Errorf("unknown storage backend: %s (must be fs or s3)", sc.Backend)
	}
	if err != nil {
		return nil, nil, "", err
	}

	sink := lode.NewInstrumentedSink(lode.NewSink(lc, client), s.collector)
	return sink, client, path, nil
}

func buildPolicy(pc config.PolicyConfig, sink policy.Sink, s *session) (policy.Policy, error) {
	switch pc.Name {
	case "strict", "":
		if pc.BufferRecords > 0 || pc.BufferBytes > 0 {
			s.logger.Warn("buffer limits ignored for strict policy", nil)
		}
		return policy.NewStrictPolicy(sink), nil
	case "buffered":
		bc := policy.DefaultBufferedConfig()
		if pc.BufferRecords > 0 || pc.BufferBytes > 0 {
			bc.MaxBufferRecords, bc.MaxBufferBytes = pc.BufferRecords, pc.BufferBytes
		}
		bc.Logger = s.logger
		return policy.NewBufferedPolicy(sink, bc)
	default:
		return nil, fmt.Errorf("invalid policy: %s (must be strict or buffered)", pc.Name)
	}
}

// buildAdapter returns nil when no adapter is configured.
func buildAdapter(ac config.AdapterConfig) (adapter.Adapter, error) {
	switch ac.Type {
	case "":
		return nil, nil
	case "redis":
		retries := redis.DefaultRetries
		if ac.Retries != nil {
			retries = *ac.Retries
		}
		return redis.New(redis.Config{
			URL:     ac.URL,
			Channel: ac.Channel,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "webhook":
		retries := webhook.DefaultRetries
		if ac.Retries != nil {
			retries = *ac.Retries
		}
		return webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", ac.Type)
	}
}
