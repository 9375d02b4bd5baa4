// Copyright © 2023 Sloan Childers
package recorder

import (
	"sync"
	"testing"
	"time"

	"github.com/osintami/sentrycam/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCacheEmpty(t *testing.T) {
	cache := NewFrameCache("test", 80, nil)
	assert.Nil(t, cache.Snapshot())
	assert.True(t, cache.Time().IsZero())
}

func TestFrameCacheEncodesOncePerFrame(t *testing.T) {
	cache := NewFrameCache("test", 80, nil)
	frame := newFakeFrame(1)
	cache.Update(frame)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.True(t, base.ValidateJPEG(cache.Snapshot()))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), frame.encodes.Load())
	assert.Equal(t, frame.Time(), cache.Time())
}

func TestFrameCacheUpdateReleasesPrevious(t *testing.T) {
	cache := NewFrameCache("test", 80, nil)
	first := newFakeFrame(1)
	second := newFakeFrame(2)
	cache.Update(first)
	cache.Update(second)
	assert.True(t, first.Empty())
	assert.False(t, second.Empty())
	assert.Equal(t, second.Time(), cache.Time())

	cache.Close()
	assert.True(t, second.Empty())
	assert.Nil(t, cache.Snapshot())
}

func TestFrameCacheConcurrentUpdates(t *testing.T) {
	cache := NewFrameCache("test", 80, nil)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					if data := cache.Snapshot(); data != nil {
						assert.True(t, base.ValidateJPEG(data))
					}
				}
			}
		}()
	}
	for i := 1; i <= 200; i++ {
		cache.Update(newFakeFrame(i))
	}
	close(done)
	wg.Wait()
	cache.Close()
}

func TestFrameCacheStampsExif(t *testing.T) {
	info := &base.ExifInfo{Artist: "sentrycam", Make: "ESP32", Model: "OV2640", Host: "test"}
	cache := NewFrameCache("test", 80, info)
	data := base.EmptyFrame(32, 24)
	frame, err := base.NewJpegFrame(data, time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	cache.Update(frame)

	snapshot := cache.Snapshot()
	assert.True(t, base.ValidateJPEG(snapshot))
	assert.Greater(t, len(snapshot), len(data))
	assert.Contains(t, string(snapshot), "sentrycam")
	// the template is not modified by stamping
	assert.True(t, info.Time.IsZero())
}
