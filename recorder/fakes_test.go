// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/osintami/sentrycam/base"
)

var tinyJpeg = base.EmptyFrame(8, 8)

type fakeFrame struct {
	id      int
	t       time.Time
	encodes *atomic.Int32
	closed  atomic.Bool
}

func newFakeFrame(id int) *fakeFrame {
	return &fakeFrame{id: id, t: time.Unix(int64(1700000000+id), 0), encodes: &atomic.Int32{}}
}

func (x *fakeFrame) Width() int      { return 8 }
func (x *fakeFrame) Height() int     { return 8 }
func (x *fakeFrame) Empty() bool     { return x.closed.Load() }
func (x *fakeFrame) Time() time.Time { return x.t }

func (x *fakeFrame) ToJpeg(quality int) ([]byte, error) {
	if x.closed.Load() {
		return nil, base.ErrEmptyFrame
	}
	x.encodes.Add(1)
	return tinyJpeg, nil
}

func (x *fakeFrame) Clone() base.IFrame {
	return &fakeFrame{id: x.id, t: x.t, encodes: x.encodes}
}

func (x *fakeFrame) Close() {
	x.closed.Store(true)
}

func ids(frames []base.IFrame) []int {
	out := make([]int, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.(*fakeFrame).id)
	}
	return out
}

func seq(from, to int) []int {
	out := []int{}
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

var detection = []base.BoundingBox{{X: 10, Y: 10, W: 20, H: 40}}

// fakeWriters hands out writers that record frame ids and can be held open
// with a gate to simulate slow disks.
type fakeWriters struct {
	mutex      sync.Mutex
	paths      []string
	written    [][]int
	closed     int
	failWrite  error
	failCreate error
	gate       chan struct{}
}

type fakeWriter struct {
	parent *fakeWriters
	index  int
}

func (x *fakeWriters) factory(path string, fps float64, width, height int) (base.IClipWriter, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.failCreate != nil {
		return nil, x.failCreate
	}
	x.paths = append(x.paths, path)
	x.written = append(x.written, []int{})
	return &fakeWriter{parent: x, index: len(x.written) - 1}, nil
}

func (x *fakeWriter) Write(frame base.IFrame) error {
	if x.parent.gate != nil {
		<-x.parent.gate
	}
	x.parent.mutex.Lock()
	defer x.parent.mutex.Unlock()
	if x.parent.failWrite != nil {
		return x.parent.failWrite
	}
	if frame.Empty() {
		return errors.New("frame released before write")
	}
	x.parent.written[x.index] = append(x.parent.written[x.index], frame.(*fakeFrame).id)
	return nil
}

func (x *fakeWriter) Close() error {
	x.parent.mutex.Lock()
	defer x.parent.mutex.Unlock()
	x.parent.closed++
	return nil
}

func (x *fakeWriters) Written() [][]int {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	out := make([][]int, len(x.written))
	copy(out, x.written)
	return out
}

func (x *fakeWriters) Closed() int {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.closed
}

type fakeCatalog struct {
	mutex   sync.Mutex
	results []Result
}

func (x *fakeCatalog) Record(result Result) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.results = append(x.results, result)
	return nil
}

func (x *fakeCatalog) Results() []Result {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]Result{}, x.results...)
}

// fakeSource serves numbered frames, fails the reads listed in failReads and
// blocks once limit frames have been served until release is closed.
type fakeSource struct {
	mutex     sync.Mutex
	clock     clock.Clock
	opens     []time.Time
	closes    int
	reads     int
	served    int
	limit     int
	failReads map[int]bool
	failOpens int
	blocked   bool
	release   chan struct{}
}

func newFakeSource(c clock.Clock, limit int, failReads ...int) *fakeSource {
	x := &fakeSource{clock: c, limit: limit, failReads: map[int]bool{}, release: make(chan struct{})}
	for _, n := range failReads {
		x.failReads[n] = true
	}
	return x
}

func (x *fakeSource) Name() string { return "fake" }

func (x *fakeSource) Open() error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.opens = append(x.opens, x.clock.Now())
	if x.failOpens > 0 {
		x.failOpens--
		return errors.New("connection refused")
	}
	return nil
}

func (x *fakeSource) Close() error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.closes++
	return nil
}

func (x *fakeSource) Read() (base.IFrame, error) {
	x.mutex.Lock()
	x.reads++
	if x.failReads[x.reads] {
		x.mutex.Unlock()
		return nil, base.ErrRead
	}
	if x.served >= x.limit {
		x.blocked = true
		x.mutex.Unlock()
		<-x.release
		return nil, base.ErrEndOfStream
	}
	x.served++
	frame := newFakeFrame(x.served)
	frame.t = x.clock.Now()
	x.mutex.Unlock()
	return frame, nil
}

func (x *fakeSource) Blocked() bool {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.blocked
}

func (x *fakeSource) Opens() []time.Time {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]time.Time{}, x.opens...)
}

type fakeDetector struct {
	fireOn map[int]bool
	err    error
}

func (x *fakeDetector) Name() string { return "fake" }

func (x *fakeDetector) Detect(frame base.IFrame) ([]base.BoundingBox, error) {
	if x.err != nil {
		return nil, x.err
	}
	if x.fireOn[frame.(*fakeFrame).id] {
		return detection, nil
	}
	return nil, nil
}

type fakeControl struct {
	mutex sync.Mutex
	calls int
	err   error
}

func (x *fakeControl) Configure(resolution base.Resolution, vflip, hflip bool) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.calls++
	return x.err
}

func (x *fakeControl) Calls() int {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.calls
}

func testConfig(t *testing.T, capture, after int) *base.CameraConfig {
	config := &base.CameraConfig{
		Name:             "front door",
		Addr:             "127.0.0.1",
		Resolution:       "QVGA",
		CaptureLength:    capture,
		AfterEventLength: after,
		ReconnectSeconds: 3,
		Detection:        &base.DetectionConfig{Enabled: true},
		Recording:        &base.RecordingConfig{OutputDir: t.TempDir(), Format: base.FORMAT_MJPEG},
	}
	config.Defaults()
	return config
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
