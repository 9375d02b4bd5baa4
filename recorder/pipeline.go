// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

const drainTimeout = 30 * time.Second

type Stats struct {
	Name       string
	Connected  bool
	Recording  bool
	State      string
	FramesRead uint64
	Reconnects uint64
	Detections uint64
	Clips      uint64
	CurrentFps float64
	AverageFps float64
	LastFrame  time.Time
	LastClip   *Result `json:"LastClip,omitempty"`
}

type Option func(*Pipeline)

func WithClock(c clock.Clock) Option {
	return func(x *Pipeline) {
		x.clock = c
	}
}

func WithDeviceControl(control base.IDeviceControl) Option {
	return func(x *Pipeline) {
		x.control = control
	}
}

func WithAnnotator(annotator base.IAnnotator) Option {
	return func(x *Pipeline) {
		x.annotator = annotator
	}
}

func WithExif(info *base.ExifInfo) Option {
	return func(x *Pipeline) {
		x.exif = info
	}
}

// Pipeline owns one camera: a single goroutine reads, detects, buffers and
// steps the recording controller. Only the FrameCache and Stats are read
// from other goroutines.
type Pipeline struct {
	config     *base.CameraConfig
	resolution base.Resolution
	source     base.ISource
	control    base.IDeviceControl
	detector   base.IDetector
	annotator  base.IAnnotator
	exif       *base.ExifInfo
	clock      clock.Clock

	buffer     *PreEventBuffer
	fps        *FpsEstimator
	controller *Controller
	cache      *FrameCache

	lastFrameAt time.Time

	statsMutex sync.Mutex
	stats      Stats

	runMutex sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPipeline applies config defaults; the config must not be changed while
// the pipeline runs.
func NewPipeline(config *base.CameraConfig, source base.ISource, detector base.IDetector, persister IPersister, options ...Option) (*Pipeline, error) {
	config.Defaults()
	resolution, err := base.LookupResolution(config.Resolution)
	if err != nil {
		return nil, err
	}
	x := &Pipeline{
		config:     config,
		resolution: resolution,
		source:     source,
		detector:   detector,
		clock:      clock.New(),
		stats:      Stats{Name: config.Name},
	}
	for _, option := range options {
		option(x)
	}
	x.buffer = NewPreEventBuffer(config.CaptureLength)
	x.fps = NewFpsEstimator(config.CaptureLength, float64(config.Rate))
	x.controller = NewController(config, x.buffer, x.fps, persister)
	x.cache = NewFrameCache(config.Name, config.Recording.Quality, x.exif)
	return x, nil
}

func (x *Pipeline) Name() string {
	return x.config.Name
}

func (x *Pipeline) Config() *base.CameraConfig {
	return x.config
}

func (x *Pipeline) Cache() *FrameCache {
	return x.cache
}

// Snapshot is the latest frame as JPEG, or nil before the first frame.
func (x *Pipeline) Snapshot() []byte {
	return x.cache.Snapshot()
}

func (x *Pipeline) Stats() Stats {
	x.statsMutex.Lock()
	defer x.statsMutex.Unlock()
	out := x.stats
	if out.LastClip != nil {
		clip := *out.LastClip
		out.LastClip = &clip
	}
	return out
}

// Start runs the pipeline on its own goroutine until Stop.
func (x *Pipeline) Start() {
	x.runMutex.Lock()
	defer x.runMutex.Unlock()
	if x.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	x.cancel = cancel
	x.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		x.Run(ctx)
	}(x.done)
}

// Stop cancels the loop and waits for it to release the camera and flush
// any clip in flight.
func (x *Pipeline) Stop() {
	x.runMutex.Lock()
	defer x.runMutex.Unlock()
	if x.cancel == nil {
		return
	}
	x.cancel()
	<-x.done
	x.cancel = nil
}

func (x *Pipeline) Running() bool {
	x.runMutex.Lock()
	defer x.runMutex.Unlock()
	return x.cancel != nil
}

// Run is the ingestion loop. Connection and read failures are retried
// forever, one ReconnectDelay apart; the camera is assumed to be always on.
// Run returns when ctx is cancelled, after the current iteration.
func (x *Pipeline) Run(ctx context.Context) error {
	defer x.shutdown()

	log.Info().Str("component", "pipeline").Str("name", x.config.Name).Str("source", x.source.Name()).Msg("started")
	connected := false
	for {
		if ctx.Err() != nil {
			return nil
		}
		if !connected {
			if err := x.connect(); err != nil {
				log.Error().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Dur("retry", x.config.ReconnectDelay()).Msg("connect")
				if !x.reconnectWait(ctx) {
					return nil
				}
				continue
			}
			connected = true
			x.setConnected(true)
		}
		if err := x.step(); err != nil {
			log.Warn().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Dur("retry", x.config.ReconnectDelay()).Msg("read")
			x.disconnect()
			connected = false
			if !x.reconnectWait(ctx) {
				return nil
			}
		}
	}
}

func (x *Pipeline) connect() error {
	if err := x.source.Open(); err != nil {
		return fmt.Errorf("%s: %w", x.source.Name(), multierr.Combine(base.ErrConnection, err))
	}
	x.lastFrameAt = time.Time{}
	if x.control != nil {
		if err := x.control.Configure(x.resolution, x.config.VFlip, x.config.HFlip); err != nil {
			log.Warn().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Str("resolution", x.resolution.String()).Msg("device configuration")
		}
	}
	return nil
}

func (x *Pipeline) disconnect() {
	if err := x.source.Close(); err != nil {
		log.Warn().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Msg("close")
	}
	x.setConnected(false)
}

func (x *Pipeline) reconnectWait(ctx context.Context) bool {
	x.statsMutex.Lock()
	x.stats.Reconnects++
	x.statsMutex.Unlock()
	select {
	case <-x.clock.After(x.config.ReconnectDelay()):
		return true
	case <-ctx.Done():
		return false
	}
}

func (x *Pipeline) step() error {
	readAt := x.clock.Now()
	frame, err := x.source.Read()
	if err != nil {
		return err
	}
	if frame == nil || frame.Empty() {
		if frame != nil {
			frame.Close()
		}
		return fmt.Errorf("%w: empty frame", base.ErrRead)
	}

	now := x.clock.Now()
	elapsed := now.Sub(readAt)
	if !x.lastFrameAt.IsZero() {
		elapsed = now.Sub(x.lastFrameAt)
	}
	x.lastFrameAt = now
	x.fps.Observe(elapsed.Seconds())

	boxes := x.detect(frame)

	if evicted := x.buffer.Push(frame); evicted != nil {
		evicted.Close()
	}
	x.controller.Step(frame, boxes)

	preview := frame.Clone()
	if x.annotator != nil && x.config.Detection.Decorate && len(boxes) > 0 {
		preview = x.annotator.Annotate(preview, boxes)
	}
	x.cache.Update(preview)

	x.updateStats(frame, len(boxes) > 0)
	return nil
}

// detect treats a detector failure as nothing detected for this frame.
func (x *Pipeline) detect(frame base.IFrame) []base.BoundingBox {
	if x.detector == nil || !x.config.Detection.Enabled {
		return nil
	}
	boxes, err := x.detector.Detect(frame)
	if err != nil {
		log.Warn().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Str("detector", x.detector.Name()).Msg("detect")
		return nil
	}
	return boxes
}

func (x *Pipeline) updateStats(frame base.IFrame, detected bool) {
	recording := x.controller.Active()
	x.statsMutex.Lock()
	defer x.statsMutex.Unlock()
	x.stats.FramesRead++
	if detected {
		x.stats.Detections++
	}
	x.stats.Recording = recording
	x.stats.State = x.controller.State().String()
	x.stats.Clips = x.controller.Clips()
	x.stats.CurrentFps = x.fps.Current()
	x.stats.AverageFps = x.fps.Average()
	x.stats.LastFrame = frame.Time()
	x.stats.LastClip = x.controller.LastResult()
}

func (x *Pipeline) setConnected(connected bool) {
	x.statsMutex.Lock()
	x.stats.Connected = connected
	x.statsMutex.Unlock()
}

func (x *Pipeline) shutdown() {
	x.disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := x.controller.Drain(ctx); err != nil {
		log.Error().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Msg("drain")
	}
	x.controller.Close()

	x.buffer.Close()
	x.cache.Close()
	x.fps.Reset()

	x.statsMutex.Lock()
	x.stats.Recording = false
	x.stats.State = x.controller.State().String()
	x.stats.Clips = x.controller.Clips()
	x.stats.LastClip = x.controller.LastResult()
	x.statsMutex.Unlock()
	log.Info().Str("component", "pipeline").Str("name", x.config.Name).Msg("stopped")
}
