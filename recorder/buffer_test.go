// Copyright © 2023 Sloan Childers
package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreEventBufferEvictsOldest(t *testing.T) {
	buffer := NewPreEventBuffer(3)
	var evicted []int
	for i := 1; i <= 5; i++ {
		if old := buffer.Push(newFakeFrame(i)); old != nil {
			evicted = append(evicted, old.(*fakeFrame).id)
		}
		assert.LessOrEqual(t, buffer.Len(), buffer.Cap())
	}
	assert.Equal(t, []int{1, 2}, evicted)
	assert.Equal(t, []int{3, 4, 5}, ids(buffer.Frames()))
}

func TestPreEventBufferPartiallyFilled(t *testing.T) {
	buffer := NewPreEventBuffer(5)
	assert.Empty(t, buffer.Frames())
	buffer.Push(newFakeFrame(1))
	buffer.Push(newFakeFrame(2))
	assert.Equal(t, 2, buffer.Len())
	assert.Equal(t, []int{1, 2}, ids(buffer.Frames()))
}

func TestPreEventBufferMinimumCapacity(t *testing.T) {
	buffer := NewPreEventBuffer(0)
	assert.Equal(t, 1, buffer.Cap())
	assert.Nil(t, buffer.Push(newFakeFrame(1)))
	assert.Equal(t, 1, buffer.Push(newFakeFrame(2)).(*fakeFrame).id)
}

func TestPreEventBufferSnapshotIsIndependent(t *testing.T) {
	buffer := NewPreEventBuffer(3)
	frames := []*fakeFrame{newFakeFrame(1), newFakeFrame(2)}
	for _, f := range frames {
		buffer.Push(f)
	}
	snapshot := buffer.Snapshot()
	assert.Equal(t, []int{1, 2}, ids(snapshot))

	buffer.Close()
	assert.Equal(t, 0, buffer.Len())
	for _, f := range frames {
		assert.True(t, f.Empty())
	}
	for _, f := range snapshot {
		assert.False(t, f.Empty())
	}
}
