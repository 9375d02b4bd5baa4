// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Idle State = iota
	Recording
)

func (x State) String() string {
	switch x {
	case Recording:
		return "recording"
	default:
		return "idle"
	}
}

const clipTimeLayout = "2006-01-02_15-04-05.000"

type session struct {
	id     string
	start  time.Time
	fps    float64
	count  int
	frames []base.IFrame
}

// Controller is the recording state machine. It is stepped once per frame by
// the ingestion loop and never blocks on persistence: completion of the
// in-flight job is checked with Handle.Done.
type Controller struct {
	config    *base.CameraConfig
	buffer    *PreEventBuffer
	fps       *FpsEstimator
	persister IPersister
	state     State
	cooldown  int
	session   *session
	inflight  *Handle
	last      *Result
	clips     uint64
}

func NewController(config *base.CameraConfig, buffer *PreEventBuffer, fps *FpsEstimator, persister IPersister) *Controller {
	return &Controller{
		config:    config,
		buffer:    buffer,
		fps:       fps,
		persister: persister}
}

// Step evaluates one ingested frame, which must already be in the buffer.
// It returns the handle of a job submitted during this step, if any.
func (x *Controller) Step(frame base.IFrame, boxes []base.BoundingBox) *Handle {
	x.reap()

	switch x.state {
	case Recording:
		x.session.frames = append(x.session.frames, frame.Clone())
		x.session.count++
		if x.session.count >= x.config.AfterEventLength {
			return x.finalize()
		}
		return nil
	default:
		if x.cooldown > 0 {
			x.cooldown--
			return nil
		}
		if len(boxes) == 0 {
			return nil
		}
		if x.inflight != nil {
			log.Debug().Str("component", "controller").Str("name", x.config.Name).Msg("trigger ignored, clip still being written")
			return nil
		}
		x.begin(frame)
		if x.config.AfterEventLength <= 0 {
			return x.finalize()
		}
		return nil
	}
}

func (x *Controller) begin(frame base.IFrame) {
	x.session = &session{
		id:     uuid.NewString(),
		start:  frame.Time(),
		fps:    x.fps.Average(),
		frames: x.buffer.Snapshot(),
	}
	x.state = Recording
	log.Info().Str("component", "controller").Str("name", x.config.Name).Str("session", x.session.id).
		Int("pre_event", len(x.session.frames)).Float64("fps", x.session.fps).Msg("recording started")
}

func (x *Controller) finalize() *Handle {
	s := x.session
	x.session = nil
	x.state = Idle
	x.cooldown = x.config.AfterEventLength

	job := &Job{
		ID:     s.id,
		Camera: x.config.Name,
		Path:   x.clipPath(s.start),
		Fps:    s.fps,
		Start:  s.start,
		Frames: s.frames,
	}
	frames, path := len(job.Frames), job.Path
	handle, err := x.persister.Submit(job)
	if err != nil {
		log.Error().Err(err).Str("component", "controller").Str("name", x.config.Name).Str("session", s.id).Msg("session aborted")
		job.release()
		return nil
	}
	// the persister owns job from here on
	x.inflight = handle
	log.Info().Str("component", "controller").Str("name", x.config.Name).Str("session", s.id).
		Int("frames", frames).Str("path", path).Msg("recording finalized")
	return handle
}

func (x *Controller) reap() {
	if x.inflight == nil || !x.inflight.Done() {
		return
	}
	result := x.inflight.Result()
	x.inflight = nil
	x.last = &result
	if result.Err == nil {
		x.clips++
	}
}

func (x *Controller) clipPath(start time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, x.config.Name)
	file := fmt.Sprintf("%s_%s%s", name, start.Format(clipTimeLayout), x.config.Recording.Extension)
	return filepath.Join(x.config.Recording.OutputDir, file)
}

func (x *Controller) State() State {
	return x.state
}

func (x *Controller) Cooldown() int {
	return x.cooldown
}

// Active reports whether a session is recording or still being persisted.
func (x *Controller) Active() bool {
	x.reap()
	return x.state == Recording || x.inflight != nil
}

func (x *Controller) LastResult() *Result {
	return x.last
}

func (x *Controller) Clips() uint64 {
	return x.clips
}

// Drain hands a partially recorded session to the persister and waits for
// the in-flight job to finish flushing.
func (x *Controller) Drain(ctx context.Context) error {
	if x.state == Recording {
		log.Info().Str("component", "controller").Str("name", x.config.Name).Str("session", x.session.id).
			Int("tail", x.session.count).Msg("stopping mid-recording, saving partial clip")
		x.finalize()
	}
	if x.inflight == nil {
		return nil
	}
	_, err := x.inflight.Wait(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	x.reap()
	x.cooldown = 0
	return err
}

// Close discards an unfinished session without persisting it.
func (x *Controller) Close() {
	if x.session != nil {
		for _, frame := range x.session.frames {
			frame.Close()
		}
		x.session = nil
	}
	x.state = Idle
}
