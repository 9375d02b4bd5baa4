// Copyright © 2023 Sloan Childers
package recorder

import "github.com/osintami/sentrycam/base"

// PreEventBuffer is a fixed capacity ring of the most recent frames. It is
// owned by the ingestion loop and is not safe for concurrent use.
type PreEventBuffer struct {
	frames []base.IFrame
	head   int
	size   int
}

func NewPreEventBuffer(capacity int) *PreEventBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &PreEventBuffer{frames: make([]base.IFrame, capacity)}
}

// Push appends frame and returns the evicted oldest frame, if any. The caller
// owns the evicted frame.
func (x *PreEventBuffer) Push(frame base.IFrame) base.IFrame {
	capacity := len(x.frames)
	if x.size < capacity {
		x.frames[(x.head+x.size)%capacity] = frame
		x.size++
		return nil
	}
	evicted := x.frames[x.head]
	x.frames[x.head] = frame
	x.head = (x.head + 1) % capacity
	return evicted
}

func (x *PreEventBuffer) Len() int {
	return x.size
}

func (x *PreEventBuffer) Cap() int {
	return len(x.frames)
}

// Frames returns the buffered frames oldest to newest. The frames are still
// owned by the buffer.
func (x *PreEventBuffer) Frames() []base.IFrame {
	out := make([]base.IFrame, 0, x.size)
	for i := 0; i < x.size; i++ {
		out = append(out, x.frames[(x.head+i)%len(x.frames)])
	}
	return out
}

// Snapshot returns owned clones of the buffered frames, oldest to newest.
func (x *PreEventBuffer) Snapshot() []base.IFrame {
	frames := x.Frames()
	for i, frame := range frames {
		frames[i] = frame.Clone()
	}
	return frames
}

func (x *PreEventBuffer) Close() {
	for i := 0; i < x.size; i++ {
		idx := (x.head + i) % len(x.frames)
		x.frames[idx].Close()
		x.frames[idx] = nil
	}
	x.head = 0
	x.size = 0
}
