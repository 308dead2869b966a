package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/config"
	"github.com/ytget/mediaflow/internal/fetcher"
	"github.com/ytget/mediaflow/internal/model"
	"github.com/ytget/mediaflow/internal/resolver"
	"github.com/ytget/mediaflow/internal/tempfiles"
	"github.com/ytget/mediaflow/internal/transcode"
)

// Session error taxonomy
var (
	// ErrAlreadyRunning means Start was called while a session is active
	ErrAlreadyRunning = errors.New("a session is already running")

	// ErrToolNotFound means the fetcher path could not be resolved
	ErrToolNotFound = errors.New("fetcher executable not found")

	// ErrLaunchFailure means the fetcher subprocess could not be spawned
	ErrLaunchFailure = errors.New("failed to launch fetcher")

	// ErrFetchFailed means the fetcher exited with a failure code
	ErrFetchFailed = errors.New("fetcher exited with failure")

	// ErrNoSubtitles means a subtitle-only run produced no subtitle files
	ErrNoSubtitles = errors.New("no subtitles available")
)

// Cancellation grace bounds
const (
	CancelGracePeriod  = 5 * time.Second
	CancelPollInterval = 100 * time.Millisecond
)

// discoveredFile is one artifact reported by the output stream parser
type discoveredFile struct {
	path     string
	subtitle bool
}

// decider is the slice of the decision engine the coordinator drives
type decider interface {
	Decide(ctx context.Context, inputPath string, cfg config.Snapshot) (model.DecisionOutcome, model.MediaInfo)
}

// finalizer is the slice of the transcode runner the coordinator drives
type finalizer interface {
	Finalize(ctx context.Context, req transcode.FinalizeRequest, cfg config.Snapshot) (string, error)
}

// Options wire a coordinator's collaborators at construction. There is no
// process-wide singleton; every dependency is injected here.
type Options struct {
	Logger             zerolog.Logger
	FetcherResolver    resolver.Resolver
	TranscoderResolver resolver.Resolver
	Temps              *tempfiles.Registry

	// OnUpdate receives every published session snapshot, in order, on the
	// goroutine that produced the change. It must not call back into the
	// coordinator.
	OnUpdate func(model.SessionSnapshot)
}

// Coordinator owns one fetch session at a time: it launches the fetcher,
// feeds its stream to the output parser, and on success sequentially
// finalizes every discovered file. At most one fetcher and one transcoder
// subprocess are active at any instant.
type Coordinator struct {
	logger             zerolog.Logger
	fetcherResolver    resolver.Resolver
	transcoderResolver resolver.Resolver
	temps              *tempfiles.Registry
	onUpdate           func(model.SessionSnapshot)

	launch      launcher
	newPipeline func(transcoderPath string) (decider, finalizer)

	// stateMutex serializes published-state mutation and OnUpdate delivery,
	// so the foreground observer never sees interleaved partial updates.
	stateMutex sync.Mutex
	status     model.SessionStatus
	statusLine string
	progress   float64
	speed      string
	eta        string
	outputPath string
	lastError  string
	logs       model.LogBuffer
	rawOutput  string

	// filesMutex guards the pending/processed lists, which both the stream
	// callback and the finalization loop touch.
	filesMutex sync.Mutex
	pending    []discoveredFile
	processed  []discoveredFile

	// procMutex guards the live subprocess handle and the cancel flag
	procMutex       sync.Mutex
	proc            process
	cancelRequested bool
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		logger:             opts.Logger.With().Str("component", "session").Logger(),
		fetcherResolver:    opts.FetcherResolver,
		transcoderResolver: opts.TranscoderResolver,
		temps:              opts.Temps,
		onUpdate:           opts.OnUpdate,
		launch:             execLauncher{},
		status:             model.StatusIdle,
	}
	c.newPipeline = func(transcoderPath string) (decider, finalizer) {
		inspector := transcode.NewInspector(opts.Logger)
		engine := transcode.NewEngine(inspector, transcoderPath, opts.Logger)
		runner := transcode.NewRunner(inspector, c.temps, transcoderPath, c.appendLog, opts.Logger)
		return engine, runner
	}
	return c
}

// Start begins a new session for the given URLs. It is rejected with
// ErrAlreadyRunning while a session is active. The fetcher runs on a
// background goroutine; progress arrives through OnUpdate and Snapshot.
func (c *Coordinator) Start(ctx context.Context, urls []string, cfg config.Snapshot) error {
	c.stateMutex.Lock()
	if c.status.IsActive() {
		c.stateMutex.Unlock()
		return ErrAlreadyRunning
	}
	c.status = model.StatusRunning
	c.statusLine = "Starting download"
	c.progress = 0
	c.speed = ""
	c.eta = ""
	c.outputPath = ""
	c.lastError = ""
	c.rawOutput = ""
	c.logs.Reset()
	c.publishLocked()
	c.stateMutex.Unlock()

	c.filesMutex.Lock()
	c.pending = nil
	c.processed = nil
	c.filesMutex.Unlock()

	c.procMutex.Lock()
	c.proc = nil
	c.cancelRequested = false
	c.procMutex.Unlock()

	fetcherPath, err := c.resolveFetcher(ctx, cfg)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrToolNotFound, err)
		c.fail(wrapped)
		return wrapped
	}

	transcoderPath := c.resolveTranscoder(ctx, cfg)

	builder := fetcher.NewBuilder(c.temps, transcoderPath, c.logger)
	build, err := builder.Build(cfg, urls)
	if err != nil {
		c.fail(err)
		return err
	}

	parser := fetcher.NewParser(parserSink{c}, fetcher.ParserOptions{
		Verbose:      cfg.Verbose,
		SubtitleOnly: cfg.SubtitleOnly,
		CaptureRaw:   cfg.ShowRawOutput,
	}, c.logger)

	c.logger.Info().Strs("urls", urls).Str("fetcher", fetcherPath).Msg("session starting")
	go c.run(ctx, fetcherPath, transcoderPath, build, parser, cfg)
	return nil
}

// Cancel terminates a running session. It signals the fetcher, waits up to
// the grace period for it to exit, then kills it. Idempotent when idle.
// A transcoder step already in flight is not interrupted.
func (c *Coordinator) Cancel() {
	c.stateMutex.Lock()
	active := c.status.IsActive()
	c.stateMutex.Unlock()
	if !active {
		return
	}

	c.procMutex.Lock()
	c.cancelRequested = true
	proc := c.proc
	c.procMutex.Unlock()

	if proc != nil {
		if err := proc.Terminate(); err != nil {
			c.logger.Debug().Err(err).Msg("terminate signal failed")
		}
	}

	deadline := time.Now().Add(CancelGracePeriod)
	for time.Now().Before(deadline) {
		c.stateMutex.Lock()
		done := !c.status.IsActive()
		c.stateMutex.Unlock()
		if done {
			return
		}
		time.Sleep(CancelPollInterval)
	}
	if proc != nil {
		_ = proc.Kill()
	}
}

// Snapshot returns a copy of the current session state
func (c *Coordinator) Snapshot() model.SessionSnapshot {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.snapshotLocked()
}

// run owns the fetcher subprocess from launch to terminal state
func (c *Coordinator) run(ctx context.Context, fetcherPath, transcoderPath string, build fetcher.BuildResult, parser *fetcher.Parser, cfg config.Snapshot) {
	// Cookie and staging files are removed on every terminal path.
	defer c.temps.Cleanup()

	proc, err := c.launch.Start(ctx, fetcherPath, build.Args, parser.ProcessLine)
	if err != nil {
		c.clearFiles()
		c.fail(fmt.Errorf("%w: %v", ErrLaunchFailure, err))
		return
	}

	c.procMutex.Lock()
	c.proc = proc
	alreadyCancelled := c.cancelRequested
	c.procMutex.Unlock()
	if alreadyCancelled {
		_ = proc.Terminate()
	}

	code, waitErr := proc.Wait()

	c.stateMutex.Lock()
	c.rawOutput = parser.RawOutput()
	c.stateMutex.Unlock()

	c.procMutex.Lock()
	cancelled := c.cancelRequested
	c.proc = nil
	c.procMutex.Unlock()

	switch {
	case cancelled:
		c.clearFiles()
		c.terminate(model.StatusCancelled, "Cancelled", nil)
	case waitErr != nil:
		c.clearFiles()
		c.fail(fmt.Errorf("%w: %v", ErrLaunchFailure, waitErr))
	case code != 0:
		c.clearFiles()
		c.fail(fmt.Errorf("%w: exit code %d", ErrFetchFailed, code))
	default:
		c.finalizeAll(ctx, transcoderPath, build, cfg)
	}
}

// finalizeAll drives every discovered file through the decision engine and
// runner, strictly sequentially, then publishes the terminal status.
func (c *Coordinator) finalizeAll(ctx context.Context, transcoderPath string, build fetcher.BuildResult, cfg config.Snapshot) {
	if cfg.SubtitleOnly && c.countSubtitles() == 0 {
		c.clearFiles()
		c.fail(ErrNoSubtitles)
		return
	}

	needsWork := build.RequiresPostProcessing || build.RequiresPlaintextSubs
	if !needsWork {
		c.filesMutex.Lock()
		c.processed = append(c.processed, c.pending...)
		c.pending = nil
		c.filesMutex.Unlock()
	} else {
		c.setStatus(model.StatusFinalizing, "Finalizing downloads")
		engine, runner := c.newPipeline(transcoderPath)

		for {
			c.procMutex.Lock()
			cancelled := c.cancelRequested
			c.procMutex.Unlock()
			if cancelled {
				c.clearFiles()
				c.terminate(model.StatusCancelled, "Cancelled", nil)
				return
			}

			c.filesMutex.Lock()
			if len(c.pending) == 0 {
				c.filesMutex.Unlock()
				break
			}
			next := c.pending[0]
			c.pending = c.pending[1:]
			c.filesMutex.Unlock()

			req := transcode.FinalizeRequest{
				InputPath:     next.path,
				Outcome:       model.FinalizeAsIs,
				Subtitle:      next.subtitle,
				PlaintextSubs: build.RequiresPlaintextSubs,
			}
			if !next.subtitle && build.RequiresPostProcessing {
				req.Outcome, _ = engine.Decide(ctx, next.path, cfg)
			}

			finalPath, err := runner.Finalize(ctx, req, cfg)
			if err != nil {
				// A finalize failure aborts the remaining pending files.
				c.clearFiles()
				c.fail(err)
				return
			}
			c.filesMutex.Lock()
			c.processed = append(c.processed, discoveredFile{path: finalPath, subtitle: next.subtitle})
			c.filesMutex.Unlock()
			c.appendLog(fmt.Sprintf("Finalized %s", finalPath))
		}
	}

	output := c.representativePath(cfg.SubtitleOnly)
	c.stateMutex.Lock()
	c.status = model.StatusCompleted
	c.statusLine = "Completed"
	c.progress = 1.0
	c.outputPath = output
	c.logs.Append("Session completed")
	c.publishLocked()
	c.stateMutex.Unlock()
}

// representativePath picks the session's single reported output: the last
// non-subtitle artifact, unless subtitle-only mode prefers the last
// subtitle artifact.
func (c *Coordinator) representativePath(subtitleOnly bool) string {
	c.filesMutex.Lock()
	defer c.filesMutex.Unlock()

	var fallback string
	for i := len(c.processed) - 1; i >= 0; i-- {
		f := c.processed[i]
		if fallback == "" {
			fallback = f.path
		}
		if f.subtitle == subtitleOnly {
			return f.path
		}
	}
	return fallback
}

// resolveFetcher applies the explicit override or the injected resolver
func (c *Coordinator) resolveFetcher(ctx context.Context, cfg config.Snapshot) (string, error) {
	if cfg.FetcherPath != "" {
		return resolver.Static{Path: cfg.FetcherPath}.Resolve(ctx)
	}
	if c.fetcherResolver == nil {
		return "", resolver.ErrNotFound
	}
	return c.fetcherResolver.Resolve(ctx)
}

// resolveTranscoder is best-effort: a missing transcoder does not stop the
// run, it only disables post-processing later.
func (c *Coordinator) resolveTranscoder(ctx context.Context, cfg config.Snapshot) string {
	if cfg.TranscoderPath != "" {
		if path, err := (resolver.Static{Path: cfg.TranscoderPath}).Resolve(ctx); err == nil {
			return path
		}
	}
	if c.transcoderResolver == nil {
		return ""
	}
	path, err := c.transcoderResolver.Resolve(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("transcoder not resolved")
		return ""
	}
	return path
}

// countSubtitles counts pending subtitle artifacts
func (c *Coordinator) countSubtitles() int {
	c.filesMutex.Lock()
	defer c.filesMutex.Unlock()
	n := 0
	for _, f := range c.pending {
		if f.subtitle {
			n++
		}
	}
	return n
}

// clearFiles drops all pending and processed entries
func (c *Coordinator) clearFiles() {
	c.filesMutex.Lock()
	c.pending = nil
	c.processed = nil
	c.filesMutex.Unlock()
}

// setStatus updates the lifecycle state and status line
func (c *Coordinator) setStatus(status model.SessionStatus, line string) {
	c.stateMutex.Lock()
	c.status = status
	c.statusLine = line
	c.publishLocked()
	c.stateMutex.Unlock()
}

// terminate publishes a terminal state
func (c *Coordinator) terminate(status model.SessionStatus, line string, err error) {
	c.stateMutex.Lock()
	c.status = status
	c.statusLine = line
	if err != nil {
		c.lastError = err.Error()
	}
	c.logs.Append(line)
	c.publishLocked()
	c.stateMutex.Unlock()
}

// fail publishes a failed terminal state
func (c *Coordinator) fail(err error) {
	c.logger.Error().Err(err).Msg("session failed")
	c.stateMutex.Lock()
	c.status = model.StatusFailed
	c.statusLine = err.Error()
	c.lastError = err.Error()
	c.logs.Append("ERROR: " + err.Error())
	c.publishLocked()
	c.stateMutex.Unlock()
}

// appendLog records a session log line
func (c *Coordinator) appendLog(line string) {
	c.stateMutex.Lock()
	c.logs.Append(line)
	c.publishLocked()
	c.stateMutex.Unlock()
}

// snapshotLocked copies published state; callers hold stateMutex
func (c *Coordinator) snapshotLocked() model.SessionSnapshot {
	return model.SessionSnapshot{
		Status:     c.status,
		StatusLine: c.statusLine,
		Progress:   c.progress,
		Speed:      c.speed,
		ETA:        c.eta,
		OutputPath: c.outputPath,
		LastError:  c.lastError,
		Logs:       c.logs.Entries(),
		RawOutput:  c.rawOutput,
	}
}

// publishLocked delivers the current snapshot; callers hold stateMutex,
// which keeps delivery ordered and un-interleaved.
func (c *Coordinator) publishLocked() {
	if c.onUpdate != nil {
		c.onUpdate(c.snapshotLocked())
	}
}

// parserSink adapts parser events onto the coordinator's state
type parserSink struct {
	c *Coordinator
}

func (s parserSink) FileDiscovered(path string, subtitle bool) {
	s.c.filesMutex.Lock()
	s.c.pending = append(s.c.pending, discoveredFile{path: path, subtitle: subtitle})
	s.c.filesMutex.Unlock()
	s.c.appendLog("Discovered " + path)
}

func (s parserSink) Progress(fraction float64) {
	s.c.stateMutex.Lock()
	s.c.progress = fraction
	s.c.publishLocked()
	s.c.stateMutex.Unlock()
}

func (s parserSink) Speed(speed string) {
	s.c.stateMutex.Lock()
	s.c.speed = speed
	s.c.publishLocked()
	s.c.stateMutex.Unlock()
}

func (s parserSink) ETA(eta string) {
	s.c.stateMutex.Lock()
	s.c.eta = eta
	s.c.publishLocked()
	s.c.stateMutex.Unlock()
}

func (s parserSink) Status(line string, severity fetcher.Severity) {
	s.c.stateMutex.Lock()
	s.c.statusLine = line
	switch severity {
	case fetcher.SeverityError:
		s.c.logs.Append("ERROR: " + line)
	case fetcher.SeverityWarning:
		s.c.logs.Append("WARNING: " + line)
	}
	s.c.publishLocked()
	s.c.stateMutex.Unlock()
}
