// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var ErrEmptyJob = errors.New("persistence job has no frames")

// Job is an owned snapshot of frames destined for one clip. Once submitted
// the persister owns the frames and releases them when the clip is closed.
type Job struct {
	ID     string
	Camera string
	Path   string
	Fps    float64
	Start  time.Time
	Frames []base.IFrame
}

func (x *Job) release() {
	for _, frame := range x.Frames {
		frame.Close()
	}
	x.Frames = nil
}

const (
	STATUS_COMPLETE = "complete"
	STATUS_ABORTED  = "aborted"
)

type Result struct {
	ID      string
	Camera  string
	Path    string
	Start   time.Time
	Frames  int
	Fps     float64
	Bytes   int64
	Elapsed time.Duration
	Status  string
	Error   string `json:"Error,omitempty"`
	Err     error  `json:"-"`
}

// SetErr marks the result aborted; a nil err marks it complete.
func (x *Result) SetErr(err error) {
	x.Err = err
	x.Status = STATUS_COMPLETE
	x.Error = ""
	if err != nil {
		x.Status = STATUS_ABORTED
		x.Error = err.Error()
	}
}

// Handle tracks one submitted job.
type Handle struct {
	done   chan struct{}
	result Result
}

// Done reports whether the job has finished without blocking.
func (x *Handle) Done() bool {
	select {
	case <-x.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the job finishes or ctx is done.
func (x *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-x.done:
		return x.result, x.result.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Err is nil until the job has finished.
func (x *Handle) Err() error {
	if !x.Done() {
		return nil
	}
	return x.result.Err
}

// Result is only meaningful once Done returns true.
func (x *Handle) Result() Result {
	if !x.Done() {
		return Result{}
	}
	return x.result
}

type ICatalog interface {
	Record(result Result) error
}

type IPersister interface {
	Submit(job *Job) (*Handle, error)
}

// Persister writes one clip at a time on its own goroutine so disk latency
// never reaches the ingestion loop.
type Persister struct {
	name    string
	factory base.ClipWriterFactory
	catalog ICatalog
	busy    atomic.Bool
}

func NewPersister(name string, factory base.ClipWriterFactory, catalog ICatalog) *Persister {
	return &Persister{name: name, factory: factory, catalog: catalog}
}

func (x *Persister) Busy() bool {
	return x.busy.Load()
}

// Submit starts writing job. On error the caller keeps ownership of the
// job frames.
func (x *Persister) Submit(job *Job) (*Handle, error) {
	if job == nil || len(job.Frames) == 0 {
		return nil, ErrEmptyJob
	}
	if !x.busy.CompareAndSwap(false, true) {
		return nil, base.ErrPersisterBusy
	}
	handle := &Handle{done: make(chan struct{})}
	go x.run(job, handle)
	return handle, nil
}

func (x *Persister) run(job *Job, handle *Handle) {
	started := time.Now()
	result := Result{
		ID:     job.ID,
		Camera: job.Camera,
		Path:   job.Path,
		Start:  job.Start,
		Frames: len(job.Frames),
		Fps:    job.Fps}

	span := tracer.StartSpan("persist_clip", tracer.ResourceName(job.Camera))
	err := x.write(job, &result)
	span.Finish(tracer.WithError(err))

	result.Elapsed = time.Since(started)
	if err != nil {
		result.SetErr(fmt.Errorf("%w: %w", base.ErrSessionAborted, err))
		log.Error().Err(err).Str("component", "persister").Str("name", x.name).Str("session", job.ID).Str("path", job.Path).Msg("session aborted")
	} else {
		result.SetErr(nil)
		log.Info().Str("component", "persister").Str("name", x.name).Str("session", job.ID).Str("path", job.Path).
			Int("frames", result.Frames).Float64("fps", result.Fps).Str("size", humanize.Bytes(uint64(result.Bytes))).
			Dur("elapsed", result.Elapsed).Msg("clip saved")
	}

	if x.catalog != nil {
		if err := x.catalog.Record(result); err != nil {
			log.Error().Err(err).Str("component", "persister").Str("name", x.name).Str("session", job.ID).Msg("catalog record")
		}
	}

	handle.result = result
	x.busy.Store(false)
	close(handle.done)
}

func (x *Persister) write(job *Job, result *Result) (err error) {
	defer job.release()

	if err = os.MkdirAll(filepath.Dir(job.Path), 0755); err != nil {
		return err
	}
	first := job.Frames[0]
	writer, err := x.factory(job.Path, job.Fps, first.Width(), first.Height())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, writer.Close())
		if info, serr := os.Stat(job.Path); serr == nil {
			result.Bytes = info.Size()
		}
	}()

	for i, frame := range job.Frames {
		if werr := writer.Write(frame); werr != nil {
			return fmt.Errorf("frame %d of %d: %w", i+1, len(job.Frames), werr)
		}
	}
	return nil
}
