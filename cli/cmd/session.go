package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/physlink/cli/config"
	"github.com/pithecene-io/physlink/cli/render"
	"github.com/pithecene-io/physlink/client"
	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/log"
	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/runtime"
	"github.com/pithecene-io/physlink/servertest"
	"github.com/pithecene-io/physlink/transport"
	"github.com/pithecene-io/physlink/types"
)

// demoPollInterval is how often the in-process demo server checks for
// commands.
const demoPollInterval = 50 * time.Microsecond

// session is one CLI invocation's connection to a server.
type session struct {
	cfg       *config.Config
	client    *client.Client
	collector *metrics.Collector
	logger    *log.Logger
	await     runtime.AwaitConfig
	key       int
	transport string
	demo      bool
	started   time.Time

	stopDemo func()
}

// openSession builds the client from config and flags. With --demo it also
// starts an in-process server behind a memory transport.
func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.LoadDefault(c.String("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("config: %v", err), runtime.ExitCodeInvalidInput)
	}

	s := &session{cfg: cfg, key: cfg.SharedMemory.Key, transport: cfg.SharedMemory.Transport, started: time.Now()}
	if s.key == 0 {
		s.key = ipc.DefaultKey
	}
	if c.IsSet("key") {
		s.key = c.Int("key")
	}
	if c.IsSet("transport") {
		s.transport = c.String("transport")
	}
	s.demo = c.Bool("demo")
	if s.demo {
		s.transport = transport.NameMemory
	}
	if s.transport == "" {
		s.transport = transport.NameSysV
	}

	s.await = runtime.AwaitConfig{Interval: cfg.Poll.Interval.Duration, Timeout: cfg.Poll.Timeout.Duration}
	if c.IsSet("timeout") {
		s.await.Timeout = c.Duration("timeout")
	}

	tr, err := transport.New(s.transport)
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	sessionID := uuid.NewString()
	s.logger = log.NewLogger(log.Session{Key: s.key, SessionID: sessionID}).WithOutput(c.App.ErrWriter)
	s.collector = metrics.NewCollector(s.transport, sessionID)

	if s.demo {
		if err := s.startDemo(tr.(*transport.Memory)); err != nil {
			return nil, err
		}
	}

	s.client = client.New(tr,
		client.WithKey(s.key),
		client.WithSessionID(sessionID),
		client.WithLogger(s.logger),
		client.WithMetrics(s.collector),
		client.WithVerbose(cfg.Verbose || c.Bool("verbose")),
	)
	return s, nil
}

func (s *session) startDemo(mem *transport.Memory) error {
	srv, err := servertest.New(mem, s.key)
	if err != nil {
		return fmt.Errorf("start demo server: %w", err)
	}
	sim := servertest.NewDemoSim()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, sim.Handle, demoPollInterval) }()

	s.stopDemo = func() {
		cancel()
		if err := <-done; err != nil && ctx.Err() == nil {
			s.logger.Warn("demo server stopped", map[string]any{"error": err.Error()})
		}
		srv.Close()
	}
	s.logger.Debug("demo server started", map[string]any{"key": s.key})
	return nil
}

// Close destroys the client session and stops the demo server.
func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("release shared memory", map[string]any{"error": err.Error()})
	}
	if s.stopDemo != nil {
		s.stopDemo()
	}
}

// connect attaches to the block. A nil outcome means connected.
func (s *session) connect() *types.Outcome {
	if s.client.Connect() {
		return nil
	}
	return &types.Outcome{
		Status:  types.OutcomeNotInitialized,
		Message: fmt.Sprintf("no server behind shared memory key %d", s.key),
	}
}

// execute runs one command and classifies its result.
func (s *session) execute(ctx context.Context, t types.CommandType, args types.CommandArgs) (*types.Status, *types.Outcome) {
	st, err := runtime.Execute(ctx, s.client, t, args, s.await)
	return st, runtime.DetermineOutcome(st, err)
}

// loadScene loads file with the command its extension selects.
func (s *session) loadScene(ctx context.Context, file string) *types.Outcome {
	cmdType, args, err := loadCommand(file)
	if err != nil {
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: err.Error()}
	}
	_, outcome := s.execute(ctx, cmdType, args)
	if outcome.Status == types.OutcomeOperationFailed {
		outcome.Message = fmt.Sprintf("load %s: %s", file, outcome.Message)
	}
	return outcome
}

func loadCommand(file string) (types.CommandType, types.CommandArgs, error) {
	if len(file) >= types.MaxFileNameLength {
		return 0, nil, fmt.Errorf("file name %q exceeds %d bytes", file, types.MaxFileNameLength-1)
	}
	var fa types.FileArgs
	types.PutFileName(&fa.FileName, file)

	switch strings.ToLower(filepath.Ext(file)) {
	case ".urdf":
		var ua types.URDFArgs
		types.PutFileName(&ua.FileName, file)
		ua.Orientation = [4]float64{0, 0, 0, 1}
		return types.CommandLoadURDF, ua, nil
	case ".sdf":
		return types.CommandLoadSDF, fa, nil
	case ".xml", ".mjcf":
		return types.CommandLoadMJCF, fa, nil
	case ".bullet":
		return types.CommandLoadBullet, fa, nil
	default:
		return 0, nil, fmt.Errorf("cannot tell the scene format of %q (want .urdf, .sdf, .xml or .bullet)", file)
	}
}

// finish writes the --report file and converts the outcome to an exit.
func (s *session) finish(c *cli.Context, command string, outcome *types.Outcome) error {
	if path := c.String("report"); path != "" {
		report := runtime.BuildSessionReport(command, s.key, outcome, s.collector.Snapshot(), time.Since(s.started))
		if err := runtime.WriteSessionReport(report, path); err != nil {
			s.logger.Warn("session report not written", map[string]any{"error": err.Error()})
		}
	}
	code := runtime.ExitCode(outcome)
	if code == runtime.ExitCodeCompleted {
		return nil
	}
	return cli.Exit(fmt.Sprintf("%s: %s", outcome.Status, outcome.Message), code)
}

// sessionFunc runs a command against a connected session. A non-nil error
// is an output failure, not a protocol outcome.
type sessionFunc func(ctx context.Context, c *cli.Context, s *session, r *render.Renderer) (*types.Outcome, error)

// sessionAction wraps fn with renderer setup, session lifetime, the --load
// scenes and the exit code. tuiView is empty for commands without a view.
func sessionAction(command, tuiView string, fn sessionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
		}
		if c.Bool("tui") && tuiView == "" {
			return cli.Exit(fmt.Sprintf("--tui is not supported for %s command", command), runtime.ExitCodeInvalidInput)
		}

		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if outcome := s.connect(); outcome != nil {
			return s.finish(c, command, outcome)
		}
		for _, file := range c.StringSlice("load") {
			if outcome := s.loadScene(ctx, file); outcome.Status != types.OutcomeSuccess {
				return s.finish(c, command, outcome)
			}
		}

		outcome, err := fn(ctx, c, s, r)
		if err != nil {
			return err
		}
		return s.finish(c, command, outcome)
	}
}

// show renders data, or its interactive view with --tui.
func show(c *cli.Context, r *render.Renderer, view string, data any) error {
	if c.Bool("tui") {
		return r.RenderTUI(view, data)
	}
	return r.Render(data)
}
